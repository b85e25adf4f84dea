package anamnesis

// Subject is a permanent identity token. All versions of a belief (created
// by replace or branch) share one Subject; subjects are never destroyed and
// never compare by label, only by sid (spec §3.1).
type Subject struct {
	sid   int
	label *string

	// homeMind is a weak back-lookup to the mind hierarchy this subject was
	// first declared in, used as the starting point for GetBeliefByState
	// when the caller doesn't already have a specific state in hand.
	homeMind Mind
}

// SID returns the subject's permanent integer identity.
func (s *Subject) SID() int { return s.sid }

// Label returns the subject's optional human-readable label.
func (s *Subject) Label() *string { return s.label }

// Equal reports whether two subjects are the same identity. Subjects are
// compared by sid, never by label (spec §3.1).
func (s *Subject) Equal(other *Subject) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.sid == other.sid
}

// GetBeliefByState returns the version of this subject's belief that is
// visible in state, i.e. the result of state's subject-resolution rule
// (spec §4.3): the local/base-chain version wins over a tracked one.
func (s *Subject) GetBeliefByState(state State) (*Belief, error) {
	b, ok, err := state.GetBeliefBySubject(s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, identityf("Subject.GetBeliefByState", "no belief for subject %d in state %d", s.sid, state.ID())
	}
	return b, nil
}
