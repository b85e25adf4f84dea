package anamnesis

import "github.com/ashita-ai/anamnesis/internal/integrity"

// TimelessState is the single process-wide state with ground_state = nil,
// tt = vt = nil, used as the ground of primordial minds (spec §3.1). It
// holds no beliefs of its own: Eidos's prototype beliefs live in Eidos's own
// Temporal origin state, anchored to this Timeless state as their ground.
type TimelessState struct {
	stateCore
}

func newTimelessState(id int, mind Mind) *TimelessState {
	t := &TimelessState{stateCore: newStateCore(id, mind, nil, StateOptions{})}
	t.locked = true
	return t
}

func (t *TimelessState) Kind() StateKind { return StateKindTimeless }

func (t *TimelessState) Lock() error { t.locked = true; return nil }

func (t *TimelessState) AddBelief(BeliefTemplate) (*Belief, error) {
	return nil, schemaf("TimelessState.AddBelief", "the Timeless state holds no beliefs")
}

func (t *TimelessState) RemoveBeliefs(...int) error {
	return schemaf("TimelessState.RemoveBeliefs", "the Timeless state holds no beliefs")
}

func (t *TimelessState) Branch(State, int64) (State, error) {
	return nil, schemaf("TimelessState.Branch", "branch Eidos/Logos's origin Temporal state instead of the Timeless ground")
}

func (t *TimelessState) GetBeliefs() ([]*Belief, error) { return nil, nil }

func (t *TimelessState) GetBeliefByLabel(string) (*Belief, bool, error) { return nil, false, nil }

func (t *TimelessState) GetBeliefBySubject(*Subject) (*Belief, bool, error) { return nil, false, nil }

func (t *TimelessState) RevTrait(*Traittype, *Subject) ([]*Belief, error) { return nil, nil }

func (t *TimelessState) ContentHash() (string, error) {
	return integrity.HashFields("Timeless", "0"), nil
}
