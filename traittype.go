package anamnesis

// MindScope says which state a Subject-kind trait value should be resolved
// against when a caller later dereferences it with Subject.GetBeliefByState.
// GetTrait itself never eagerly dereferences Subject values (doing so would
// make resolution order-dependent on unrelated minds being loaded, and would
// defeat per-(belief,state,traittype) memoization) — mind_scope is metadata
// for the caller, surfaced through ScopedState.
type MindScope int

const (
	// ScopeSelf resolves a Subject value inside the state passed to
	// GetTrait.
	ScopeSelf MindScope = iota
	// ScopeParent resolves a Subject value inside that state's
	// ground_state.
	ScopeParent
)

// Exposure tags a traittype for consumption by perception (spec §3.1). The
// four named values are the ones perception distinguishes; the type is left
// open (a string, not a closed enum) because the spec allows "…".
type Exposure string

const (
	ExposureInternal Exposure = "internal"
	ExposureVisual   Exposure = "visual"
	ExposureSpatial  Exposure = "spatial"
	ExposureAuditory Exposure = "auditory"
)

// ComposeFunc overrides the default composition rule for a composable
// traittype. belief is the belief being resolved (so e.g. Materia::compose
// can build a Convergence anchored to the right ground_state); values are
// the non-empty per-base contributions already collected and deduplicated
// by the caller.
type ComposeFunc func(belief *Belief, values []Value) (Value, error)

// Traittype is a named trait slot (spec §3.1).
type Traittype struct {
	Label      string
	ValueKind  ValueKind // primitive kind, KindSubject/State/Mind/Archetype, or KindArray for a container
	Composable bool
	MindScope  MindScope
	Exposure   Exposure
	Compose    ComposeFunc // nil uses the default rule
}

// NewTraittype constructs a Traittype. It is not registered until passed to
// Register.
func NewTraittype(label string, kind ValueKind, composable bool, scope MindScope, exposure Exposure) *Traittype {
	return &Traittype{Label: label, ValueKind: kind, Composable: composable, MindScope: scope, Exposure: exposure}
}

// doCompose applies tt's composition rule to a set of ≥2 contributing
// values, using tt.Compose if set, otherwise the default rule from
// spec §4.1: arrays concatenate with dedup by value identity (first
// occurrence wins); a Mind-kind trait composes via composeMinds into a
// Convergence; any other non-container composable kind has no default rule
// and is a schema error.
func (tt *Traittype) doCompose(belief *Belief, values []Value) (Value, error) {
	if tt.Compose != nil {
		return tt.Compose(belief, values)
	}
	switch tt.ValueKind {
	case KindArray:
		return composeArrays(values), nil
	case KindMind:
		return composeMinds(belief, values)
	default:
		return Value{}, schemaf("Traittype.compose", "traittype %q is composable but has no default composition rule for kind %s", tt.Label, tt.ValueKind)
	}
}

// composeArrays concatenates array-valued contributions, flattening and
// deduplicating elements by value identity, first occurrence wins
// (spec §8.7: "compose([x,y]) is order-sensitive and deduplicated").
func composeArrays(values []Value) Value {
	var out []Value
	for _, v := range values {
		items, ok := v.Array()
		if !ok {
			// A non-array contribution to an array-kind trait is folded in
			// as a single element, rather than rejected, so a scalar
			// default in one archetype and an array default in a sibling
			// still compose sensibly.
			items = []Value{v}
		}
		for _, item := range items {
			dup := false
			for _, existing := range out {
				if identityEqual(existing, item) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, item)
			}
		}
	}
	return ArrayValue(out)
}

// composeMinds builds a Convergence over the component Minds' states, per
// spec §4.1 ("Mind trait → Materia::compose which builds a Convergence over
// the component minds' states"). belief is accepted for ComposeFunc's
// signature but unused by the default rule: the ground_state comes from the
// components' own origin states instead, since this composition can fire
// from pure Archetype resolution (spec §8 S2) with no live Belief in hand.
func composeMinds(_ *Belief, values []Value) (Value, error) {
	components := make([]State, 0, len(values))
	for _, v := range values {
		m, ok := v.MindRef()
		if !ok {
			return Value{}, schemaf("Traittype.compose", "mind-kind composition received a non-Mind contribution")
		}
		components = append(components, m.OriginState())
	}
	var ground State
	if len(components) > 0 {
		ground = components[0].GroundState()
	}
	owner := db.LogosMind()
	conv, err := NewConvergence(owner, ground, components, 0)
	if err != nil {
		return Value{}, err
	}
	if err := conv.Lock(); err != nil {
		return Value{}, err
	}
	return MindValue(convergenceMind{state: conv}), nil
}

// convergenceMind wraps a Convergence state so it can be returned where a
// Mind-kind trait value is expected: the composed "mind" for a trait like
// VillageBlacksmith.mind is really just "the state that is the Convergence
// of the component minds' states", exposed via an OriginState that is that
// Convergence.
type convergenceMind struct {
	state State
}

func (c convergenceMind) ID() int             { return c.state.ID() }
func (c convergenceMind) Label() *string      { return nil }
func (c convergenceMind) Parent() Mind        { return nil }
func (c convergenceMind) OriginState() State  { return c.state }
func (c convergenceMind) Kind() MindKind      { return MindKindConvergenceView }
func (c convergenceMind) CreateState(State, StateOptions) (State, error) {
	return nil, schemaf("Mind.CreateState", "a composed Convergence mind view cannot create new states")
}
func (c convergenceMind) GetStatesByGroundState(State) ([]State, error) { return nil, nil }
func (c convergenceMind) StatesAtTT(State, int64) ([]State, error)      { return nil, nil }
func (c convergenceMind) RecallBySubject(s *Subject) (*Belief, bool, error) {
	return c.state.GetBeliefBySubject(s)
}
func (c convergenceMind) AllStates() []State     { return nil }
func (c convergenceMind) AllBeliefs() []*Belief  { return nil }
