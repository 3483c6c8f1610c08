package ledger

// Sequence is a monotonic identifier counter for one registry.
//
// Identifiers start at 1 and are never reused. Sequence is a plain value so
// that cloning a registry also clones its counter.
type Sequence struct {
	last ID
}

// NewSequenceAt creates a sequence whose next identifier is start+1.
func NewSequenceAt(start ID) Sequence {
	return Sequence{last: start}
}

// Peek returns the identifier the next call to Next will return.
// Mutators use it while validating so nothing is consumed on failure.
func (s *Sequence) Peek() ID {
	return s.last + 1
}

// Next consumes and returns the next identifier.
func (s *Sequence) Next() ID {
	s.last++
	return s.last
}

// Current returns the last assigned identifier (0 if none).
func (s *Sequence) Current() ID {
	return s.last
}
