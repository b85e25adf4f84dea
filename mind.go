package anamnesis

import "sync"

// MindKind distinguishes the three Mind variants, plus the synthetic
// composed-Convergence view returned by Mind-kind trait composition
// (spec §4.1; see convergenceMind in traittype.go).
type MindKind int

const (
	MindKindMateria MindKind = iota
	MindKindLogos
	MindKindEidos
	MindKindConvergenceView
)

// Mind is the common surface of Materia, Logos, and Eidos (spec §3.1, §6.2).
type Mind interface {
	ID() int
	Label() *string
	Parent() Mind
	OriginState() State
	Kind() MindKind

	CreateState(ground State, opts StateOptions) (State, error)
	GetStatesByGroundState(ground State) ([]State, error)
	StatesAtTT(ground State, tt int64) ([]State, error)
	RecallBySubject(s *Subject) (*Belief, bool, error)

	// AllStates and AllBeliefs enumerate everything this mind owns, for the
	// JSON codec (spec §6.1) — normal callers reach beliefs/states through
	// a specific state's GetBeliefs, not through a flat dump.
	AllStates() []State
	AllBeliefs() []*Belief
}

// mindCore holds the fields and behavior shared by Materia, Logos, and
// Eidos: a mind exclusively owns its beliefs and its states (spec §3.3).
type mindCore struct {
	mu sync.Mutex

	id     int
	label  *string
	parent Mind
	origin State

	states  []State
	beliefs []*Belief
}

func (m *mindCore) ID() int            { return m.id }
func (m *mindCore) Label() *string     { return m.label }
func (m *mindCore) Parent() Mind       { return m.parent }
func (m *mindCore) OriginState() State { return m.origin }

func (m *mindCore) addState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
}

func (m *mindCore) addBelief(b *Belief) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beliefs = append(m.beliefs, b)
}

func (m *mindCore) allStates() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.states))
	copy(out, m.states)
	return out
}

func (m *mindCore) AllStates() []State { return m.allStates() }

func (m *mindCore) AllBeliefs() []*Belief {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Belief, len(m.beliefs))
	copy(out, m.beliefs)
	return out
}

// createState builds a new Temporal state owned by self, validating the
// fork invariant (spec §3.1 invariant 2: child_state.tt == parent_state.vt
// unless the parent is Timeless) before allocating an id. A tt left unset
// matches a ground whose vt is unset.
func (m *mindCore) createState(self Mind, ground State, opts StateOptions) (State, error) {
	if ground != nil && ground.Kind() != StateKindTimeless {
		gvt := ground.VT()
		if (opts.TT == nil) != (gvt == nil) || (opts.TT != nil && *opts.TT != *gvt) {
			return nil, temporalf("Mind.CreateState", "fork invariant violated: new state's tt must equal ground_state.vt")
		}
	}
	id := db.ids.nextID()
	s := newTemporalState(id, self, ground, opts)
	m.addState(s)
	db.registerState(s)
	return s, nil
}

// GetStatesByGroundState returns every state this mind owns whose
// ground_state is ground (spec §6.2).
func (m *mindCore) GetStatesByGroundState(ground State) ([]State, error) {
	var out []State
	for _, s := range m.allStates() {
		if sameState(s.GroundState(), ground) {
			out = append(out, s)
		}
	}
	return out, nil
}

// StatesAtTT yields the branch tips of the mind's state DAG restricted to
// ground, with state.tt ≤ tt. A state is a branch tip if no other valid
// state in the same ground-restricted set has it as an ancestor along
// base (spec §4.5).
func (m *mindCore) StatesAtTT(ground State, tt int64) ([]State, error) {
	all := m.allStates()
	var candidates []State
	for _, s := range all {
		if !sameState(s.GroundState(), ground) {
			continue
		}
		if s.TT() == nil || *s.TT() > tt {
			continue
		}
		candidates = append(candidates, s)
	}
	isAncestorOfSome := map[int]bool{}
	for _, s := range candidates {
		for base := baseOf(s); base != nil; base = baseOf(base) {
			isAncestorOfSome[base.ID()] = true
		}
	}
	var tips []State
	for _, s := range candidates {
		if !isAncestorOfSome[s.ID()] {
			tips = append(tips, s)
		}
	}
	return tips, nil
}

// RecallBySubject searches this mind's states, most recently created first,
// for a visible belief with the given subject. The spec names this
// operation in §6.2's public surface without elaborating its search order;
// "most recent state first" is the natural reading for an agent that wants
// its current opinion about a subject.
func (m *mindCore) RecallBySubject(s *Subject) (*Belief, bool, error) {
	states := m.allStates()
	for i := len(states) - 1; i >= 0; i-- {
		b, ok, err := states[i].GetBeliefBySubject(s)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return b, true, nil
		}
	}
	return nil, false, nil
}

// sameState reports whether a and b refer to the same state, treating two
// nils as equal (both "no ground state", as for a mind's first Temporal
// state whose ground really is nil, or for Timeless states themselves).
func sameState(a, b State) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// baseOf returns s's base state if s is Temporal and has one, else nil.
func baseOf(s State) State {
	if ts, ok := s.(*TemporalState); ok {
		return ts.base
	}
	return nil
}
