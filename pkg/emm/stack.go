package emm

// Stack is the ordered, last-in-first-out list of ongoing EMM procedures
// (spec.md §3 "EMM Procedure Stack"). The topmost procedure's filter set
// governs which inbound NAS is routed to it.
type Stack struct {
	procs []Procedure
}

// Top returns the topmost procedure, or nil if the stack is empty.
func (s *Stack) Top() Procedure {
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

// Empty reports whether no procedure is in progress. The Dispatcher uses it
// for routing; pkg/ue's `ready` channel is not driven by it.
func (s *Stack) Empty() bool {
	return len(s.procs) == 0
}

// Push starts a new procedure on top of the stack.
func (s *Stack) Push(p Procedure) {
	s.procs = append(s.procs, p)
}

// Pop removes and returns the topmost procedure.
func (s *Stack) Pop() Procedure {
	if len(s.procs) == 0 {
		return nil
	}
	p := s.procs[len(s.procs)-1]
	s.procs = s.procs[:len(s.procs)-1]
	return p
}

// AbortTop aborts and pops the topmost procedure.
func (s *Stack) AbortTop() {
	if p := s.Pop(); p != nil {
		p.Abort()
	}
}

// Clear aborts every procedure in stack order (top first), emptying the
// stack (spec.md §5 "Cancellation": "clear() on EMM aborts every procedure
// in stack order (top first)").
func (s *Stack) Clear() {
	for len(s.procs) > 0 {
		s.AbortTop()
	}
}

// HasKind reports whether a procedure of the given common-procedure name is
// already on the stack, enforcing the invariant that the stack never holds
// two common procedures of the same kind concurrently (spec.md §8).
func (s *Stack) HasKind(name string) bool {
	for _, p := range s.procs {
		if p.Name() == name {
			return true
		}
	}
	return false
}

// Len reports the current stack depth.
func (s *Stack) Len() int { return len(s.procs) }
