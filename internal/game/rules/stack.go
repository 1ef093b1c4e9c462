package rules

// ActionStack manages the single currently required action, a LIFO stack of
// suspended actions (interrupts), and a FIFO queue of deferred follow-up
// actions. The engine is single-caller by contract, so the stack carries no
// lock and is copied wholesale when the game state is cloned.
type ActionStack struct {
	Active     Action
	Interrupts []Action // LIFO, most recently suspended last
	Queue      []Action // FIFO, drained front first
}

// Pending reports whether an action is currently required.
func (s *ActionStack) Pending() bool {
	return s.Active != nil
}

// Issue installs the action as the active requirement. If another action is
// already active it is suspended onto the interrupt stack and restored once
// the new action fully resolves.
func (s *ActionStack) Issue(a Action) {
	if s.Active != nil {
		s.Interrupts = append(s.Interrupts, s.Active)
	}
	s.Active = a
}

// Enqueue defers a follow-up action. Queued actions drain one at a time,
// after the active action and all interrupts have resolved.
func (s *ActionStack) Enqueue(a Action) {
	s.Queue = append(s.Queue, a)
}

// Complete clears the active action and restores the next one owed: the most
// recently suspended interrupt first, then the front of the follow-up queue.
// It returns the new active action, or nil when control should return to the
// phase machine.
func (s *ActionStack) Complete() Action {
	s.Active = nil

	if n := len(s.Interrupts); n > 0 {
		s.Active = s.Interrupts[n-1]
		s.Interrupts = s.Interrupts[:n-1]
		return s.Active
	}

	if len(s.Queue) > 0 {
		s.Active = s.Queue[0]
		s.Queue = s.Queue[1:]
		return s.Active
	}

	return nil
}

// Depth returns the number of suspended interrupts.
func (s *ActionStack) Depth() int {
	return len(s.Interrupts)
}

// Clone returns a copy sharing no slice storage with the receiver. Action
// values themselves are immutable once issued.
func (s *ActionStack) Clone() ActionStack {
	out := ActionStack{Active: s.Active}
	if len(s.Interrupts) > 0 {
		out.Interrupts = make([]Action, len(s.Interrupts))
		copy(out.Interrupts, s.Interrupts)
	}
	if len(s.Queue) > 0 {
		out.Queue = make([]Action, len(s.Queue))
		copy(out.Queue, s.Queue)
	}
	return out
}
