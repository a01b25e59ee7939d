package core

import "wsconnector/internal/proto"

// Reachability is the two-state signal a Monitor pushes: Satisfied or
// Unsatisfied path transitions.
type Reachability int

const (
	Unsatisfied Reachability = iota
	Satisfied
)

// Monitor is the external reachability collaborator the Supervisor consumes.
// Watch starts observation and must invoke onChange for every edge
// (duplicate-edge filtering is the Supervisor's job, not the Monitor's); the
// returned stop function ends observation and must be safe to call more than
// once.
type Monitor interface {
	Watch(onChange func(Reachability)) (stop func())
}

// UsingMonitor attaches or replaces the reachability Monitor. Passing nil
// disables monitoring and stops whatever Monitor was previously watching.
// Should be called before Open or between closes.
func (s *Supervisor) UsingMonitor(m Monitor) {
	s.mu.Lock()
	previousStop := s.monitorStop
	s.monitor = m
	s.reachabilityKnown = false
	s.monitorStop = nil
	s.mu.Unlock()

	if previousStop != nil {
		previousStop()
	}
	if m == nil {
		return
	}

	stop := m.Watch(s.onReachabilityChange)
	s.mu.Lock()
	s.monitorStop = stop
	s.mu.Unlock()
}

// onReachabilityChange is edge-triggered, duplicates filtered, observed
// under the Supervisor's critical section.
func (s *Supervisor) onReachabilityChange(r Reachability) {
	s.mu.Lock()
	if s.reachabilityKnown && s.reachability == r {
		s.mu.Unlock()
		return
	}
	s.reachabilityKnown = true
	s.reachability = r
	status := s.status
	s.mu.Unlock()

	switch r {
	case Unsatisfied:
		s.CloseLocal(proto.CloseInvalid, proto.ReasonForMonitor())
	case Satisfied:
		// "Satisfied... if current status is Closed(_, reason) with some
		// reason (not manual), call open(). Nil-reason closes are sticky."
		if status.Kind == proto.StatusClosed && !proto.IsManual(status.Reason) {
			s.Open()
		}
	}
}
