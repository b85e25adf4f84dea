package anamnesis

import (
	"context"
	"fmt"

	"github.com/ashita-ai/anamnesis/internal/integrity"
	"github.com/ashita-ai/anamnesis/internal/telemetry"
)

// ConvergenceState composes multiple locked component states sharing a
// common ground_state into a single logical state, with an optional
// resolution collapsing the superposition to one component (spec §3.1,
// §4.4). A Convergence has no insert/remove of its own, so it is immutable
// from the moment it's constructed.
type ConvergenceState struct {
	stateCore

	components []State
	resolution State
}

// NewConvergence validates and constructs a Convergence over components
// (spec §4.4's validation rule: components must be pairwise consistent in
// ground_state, and no component's base chain may contain another
// component).
func NewConvergence(owner Mind, ground State, components []State, vt int64) (*ConvergenceState, error) {
	if len(components) == 0 {
		return nil, schemaf("NewConvergence", "a Convergence requires at least one component state")
	}
	for _, c := range components {
		if !c.Locked() {
			return nil, lockedf("NewConvergence", "component state %d must be locked before composing", c.ID())
		}
		if ground == nil {
			ground = c.GroundState()
			continue
		}
		if !sameState(c.GroundState(), ground) {
			return nil, consistencyf("NewConvergence", "component state %d disagrees with the Convergence's ground_state", c.ID())
		}
	}
	for i, a := range components {
		for j, b := range components {
			if i == j {
				continue
			}
			if isDescendant(a, b) {
				return nil, consistencyf("NewConvergence", "component state %d's base chain contains component state %d", a.ID(), b.ID())
			}
		}
	}

	opts := StateOptions{}
	if ground != nil {
		opts.TT = ground.VT()
	}
	vtCopy := vt
	opts.VT = &vtCopy

	id := db.ids.nextID()
	c := &ConvergenceState{
		stateCore:  newStateCore(id, owner, ground, opts),
		components: append([]State{}, components...),
	}
	c.locked = true

	if owner != nil {
		if so, ok := owner.(stateOwner); ok {
			so.addState(c)
		}
	}
	db.registerState(c)
	return c, nil
}

func (c *ConvergenceState) Kind() StateKind        { return StateKindConvergence }
func (c *ConvergenceState) Components() []State    { return append([]State{}, c.components...) }
func (c *ConvergenceState) Resolution() State       { return c.resolution }

func (c *ConvergenceState) Lock() error { return nil }

func (c *ConvergenceState) AddBelief(BeliefTemplate) (*Belief, error) {
	return nil, lockedf("ConvergenceState.AddBelief", "a Convergence has no insert set of its own")
}

func (c *ConvergenceState) RemoveBeliefs(...int) error {
	return lockedf("ConvergenceState.RemoveBeliefs", "a Convergence has no remove set of its own")
}

// RegisterResolution collapses the superposition to one component
// (spec §4.4). resolution must be one of c's components (spec §3.1
// invariant 7).
func (c *ConvergenceState) RegisterResolution(resolution State) error {
	for _, comp := range c.components {
		if comp.ID() == resolution.ID() {
			c.resolution = resolution
			c.cache.clear()
			return nil
		}
	}
	return consistencyf("ConvergenceState.RegisterResolution", "state %d is not a component of this Convergence", resolution.ID())
}

// Branch extends the history past a Convergence the same way Branch extends
// a Temporal state: the new state's base is the Convergence itself (still
// "in the same mind" per spec invariant 1, which only requires that, not
// that base be Temporal).
func (c *ConvergenceState) Branch(ground State, vt int64) (State, error) {
	if c.vt != nil && vt < *c.vt {
		return nil, temporalf("ConvergenceState.Branch", "new vt %d must be >= Convergence vt %v", vt, *c.vt)
	}
	opts := StateOptions{Certainty: c.certainty, Self: c.self}
	if ground != nil {
		opts.TT = ground.VT()
	}
	vtCopy := vt
	opts.VT = &vtCopy

	id := db.ids.nextID()
	ns := newTemporalState(id, c.mind, ground, opts)
	ns.base = c

	if owner, ok := c.mind.(stateOwner); ok {
		owner.addState(ns)
	}
	db.registerState(ns)
	return ns, nil
}

// GetBeliefs implements spec §4.4: the union of each component's visible
// beliefs, subject-deduplicated first-wins by component declaration order;
// once resolved, only the resolution component contributes.
func (c *ConvergenceState) GetBeliefs() ([]*Belief, error) {
	_, span := telemetry.Tracer().Start(context.Background(), "anamnesis.get_beliefs")
	defer span.End()

	if c.resolution != nil {
		return c.resolution.GetBeliefs()
	}
	seen := map[int]bool{}
	var out []*Belief
	for _, comp := range c.components {
		beliefs, err := comp.GetBeliefs()
		if err != nil {
			return nil, err
		}
		for _, b := range beliefs {
			sid := b.Subject().SID()
			if seen[sid] {
				continue
			}
			seen[sid] = true
			out = append(out, b)
		}
	}
	return out, nil
}

func (c *ConvergenceState) GetBeliefByLabel(label string) (*Belief, bool, error) {
	return getBeliefByLabelGeneric(c, label)
}

func (c *ConvergenceState) GetBeliefBySubject(s *Subject) (*Belief, bool, error) {
	return getBeliefBySubjectGeneric(c, s)
}

// RevTrait recurses into all components unless resolved (spec §4.4), which
// falls out of GetBeliefs already honoring resolution.
func (c *ConvergenceState) RevTrait(tt *Traittype, subject *Subject) ([]*Belief, error) {
	return c.revTraitUsing(c, tt, subject)
}

func (c *ConvergenceState) ContentHash() (string, error) {
	fields := []string{"Convergence", fmt.Sprintf("%d", c.id)}
	fields = append(fields, optInt64Str(c.tt), optInt64Str(c.vt), fmt.Sprintf("%.6f", c.certainty))
	fields = append(fields, optStateIDStr(c.ground))
	for _, comp := range c.components {
		fields = append(fields, fmt.Sprintf("%d", comp.ID()))
	}
	if c.resolution != nil {
		fields = append(fields, fmt.Sprintf("%d", c.resolution.ID()))
	} else {
		fields = append(fields, "")
	}
	return integrity.HashFields(fields...), nil
}
