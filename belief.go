package anamnesis

import (
	"fmt"
	"time"
)

// BaseRef is one entry in a Belief's bases list: either an Archetype or
// another Belief (spec §3.1: "bases: an ordered sequence of Archetypes
// and/or other Beliefs").
type BaseRef struct {
	Archetype *Archetype
	Belief    *Belief
}

func ArchetypeBase(a *Archetype) BaseRef { return BaseRef{Archetype: a} }
func BeliefBase(b *Belief) BaseRef       { return BaseRef{Belief: b} }

// BeliefTemplate is the input to State.AddBelief: everything needed to
// construct a new Belief except the id and origin_state, which the state
// assigns.
type BeliefTemplate struct {
	Subject    *Subject // nil creates a fresh Subject
	Label      *string
	Bases      []BaseRef
	Traits     map[string]Value
	Promotions map[string][]Promotion
}

// Belief is an immutable-after-lock versioned assertion (spec §3.1).
type Belief struct {
	id      int
	subject *Subject
	label   *string

	inMind      Mind
	originState State

	bases      []BaseRef
	traits     map[string]Value
	promotions map[string][]Promotion
	resolution *Belief // forwarding pointer; see GetTrait
}

func (b *Belief) ID() int             { return b.id }
func (b *Belief) Subject() *Subject   { return b.subject }
func (b *Belief) Label() *string      { return b.label }
func (b *Belief) InMind() Mind        { return b.inMind }
func (b *Belief) OriginState() State  { return b.originState }
func (b *Belief) Bases() []BaseRef    { return b.bases }

// beliefCtx pairs a Belief with the State it's being resolved against, so
// the shared resolveGeneric/resolveComposable/resolveFirstWins machinery in
// resolve.go can treat "a belief's bases in a state" uniformly with "an
// archetype's bases" (resolvable interface).
type beliefCtx struct {
	b     *Belief
	state State
}

func (c beliefCtx) localValue(tt *Traittype) (Value, bool) {
	v, ok := c.b.traits[tt.Label]
	if !ok {
		return Value{}, false
	}
	return mapMindScope(v, tt), true
}

func (c beliefCtx) baseRefs() []resolvable {
	refs := make([]resolvable, len(c.b.bases))
	for i, ref := range c.b.bases {
		if ref.Archetype != nil {
			refs[i] = ref.Archetype
		} else {
			refs[i] = beliefCtx{b: ref.Belief, state: c.state}
		}
	}
	return refs
}

func (c beliefCtx) promotionsFor(tt *Traittype) ([]Promotion, bool) {
	ps, ok := c.b.promotions[tt.Label]
	if !ok || len(ps) == 0 {
		return nil, false
	}
	return ps, true
}

// identityKey implements resolvable. The resolving state is fixed for the
// whole BFS walk a given resolveTrait call performs, so the belief id alone
// identifies this node.
func (c beliefCtx) identityKey() string { return fmt.Sprintf("belief:%d", c.b.id) }

// mapMindScope is the identity function today: GetTrait never eagerly
// dereferences a Subject value, so there is nothing to rewrite in the Value
// itself. mind_scope instead governs which state a caller should pass to
// Subject.GetBeliefByState when it later follows the reference — see
// ScopedState.
func mapMindScope(v Value, _ *Traittype) Value { return v }

// ScopedState returns the state a Subject-kind (or array-of-Subject-kind)
// value of tt should be dereferenced against, per tt.MindScope (spec §3.1,
// §4.2 step 1).
func ScopedState(tt *Traittype, state State) State {
	if tt.MindScope == ScopeParent {
		return state.GroundState()
	}
	return state
}

// resolveTrait is the full spec §4.2 algorithm for one (belief, state,
// traittype), including the per-state cache (step 5) and the forwarding
// resolution pointer and promotions/Fuzzy fallback (step 4).
func (b *Belief) resolveTrait(state State, tt *Traittype) (Value, bool, error) {
	if b.resolution != nil {
		return b.resolution.resolveTrait(state, tt)
	}

	if cached, defined, hit := state.cacheGet(b.id, tt.Label); hit {
		return cached, defined, nil
	}

	start := time.Now()
	val, defined, err := resolveGeneric(beliefCtx{b: b, state: state}, tt)
	recordResolution(time.Since(start))
	if err != nil {
		return Value{}, false, err
	}
	if !defined {
		if fuzzy, ok, ferr := b.findPromotions(state, tt); ferr != nil {
			return Value{}, false, ferr
		} else if ok {
			val, defined = FuzzyValue(fuzzy), true
		}
	}

	state.cacheSet(b.id, tt.Label, val, defined)
	return val, defined, nil
}

// findPromotions implements spec §4.2 step 4: search the belief and its
// Belief bases (archetypes never carry promotions) for a promotions entry,
// first found wins.
func (b *Belief) findPromotions(state State, tt *Traittype) (Fuzzy, bool, error) {
	if ps, ok := b.promotions[tt.Label]; ok && len(ps) > 0 {
		alts := make([]Alternative, 0, len(ps))
		for _, p := range ps {
			v, err := p.Replacement.GetTrait(state, tt)
			if err != nil {
				return Fuzzy{}, false, err
			}
			alts = append(alts, Alternative{Certainty: p.Certainty, Value: v})
		}
		return Fuzzy{Alternatives: alts}, true, nil
	}
	for _, ref := range b.bases {
		if ref.Belief == nil {
			continue
		}
		if f, ok, err := ref.Belief.findPromotions(state, tt); err != nil {
			return Fuzzy{}, false, err
		} else if ok {
			return f, true, nil
		}
	}
	return Fuzzy{}, false, nil
}

// GetTrait implements `get_trait(state, traittype) → Value | null | Fuzzy`
// (spec §4.2, §6.2). The "undefined-inherit" case (nothing anywhere defines
// this trait) surfaces as NullValue() here, same as an explicit block; the
// two are distinguished only by GetTraits's dense enumeration, which omits
// undefined-inherit entries entirely (spec §8 invariant 2).
func (b *Belief) GetTrait(state State, tt *Traittype) (Value, error) {
	v, defined, err := b.resolveTrait(state, tt)
	if err != nil {
		return Value{}, err
	}
	if !defined {
		return NullValue(), nil
	}
	return v, nil
}

// TraitEntry is one (name, value) pair in the dense enumeration returned by
// GetTraits, in Traittype registration order (spec §5 ordering guarantees).
type TraitEntry struct {
	Name  string
	Value Value
}

// GetTraits returns a value for every traittype that GetTrait would return a
// defined (non-"undefined-inherit") value for, in Traittype registration
// order (spec §4.2, §5, §8 invariant 2).
func (b *Belief) GetTraits(state State) ([]TraitEntry, error) {
	var out []TraitEntry
	for _, tt := range db.TraittypesInOrder() {
		_, defined, err := b.resolveTrait(state, tt)
		if err != nil {
			return nil, err
		}
		if !defined {
			continue
		}
		v, err := b.GetTrait(state, tt)
		if err != nil {
			return nil, err
		}
		out = append(out, TraitEntry{Name: tt.Label, Value: v})
	}
	return out, nil
}

// GetArchetypes yields the archetypes reachable from b.bases in
// breadth-first order, most specific first, with first-occurrence dedup
// (spec §5 ordering guarantees). Belief bases are walked into (their own
// bases considered, recursively) so archetypes inherited through a chain of
// belief prototypes are still found.
func (b *Belief) GetArchetypes() []*Archetype {
	var out []*Archetype
	seen := map[string]bool{}
	queue := append([]BaseRef{}, b.bases...)
	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]
		if ref.Archetype != nil {
			if !seen[ref.Archetype.Label] {
				seen[ref.Archetype.Label] = true
				out = append(out, ref.Archetype)
				for _, base := range ref.Archetype.Bases {
					queue = append(queue, ArchetypeBase(base))
				}
			}
			continue
		}
		if ref.Belief != nil {
			queue = append(queue, ref.Belief.bases...)
		}
	}
	return out
}

// Replace implements `replace(state, overrides) → new_belief` (spec §4.2):
// creates a new version sharing the same Subject, with the given base/trait
// overrides, removing the old version from state.insert and inserting the
// new one. Fails with Locked if state is locked.
func (b *Belief) Replace(state State, overrides BeliefTemplate) (*Belief, error) {
	if state.Locked() {
		return nil, lockedf("Belief.Replace", "state %d is locked", state.ID())
	}
	overrides.Subject = b.subject
	if overrides.Label == nil {
		overrides.Label = b.label
	}
	if overrides.Bases == nil {
		overrides.Bases = b.bases
	}
	if overrides.Traits == nil {
		overrides.Traits = b.traits
	}
	if overrides.Promotions == nil {
		overrides.Promotions = b.promotions
	}
	next, err := state.AddBelief(overrides)
	if err != nil {
		return nil, err
	}
	if err := state.RemoveBeliefs(b.id); err != nil {
		return nil, err
	}
	return next, nil
}

// Branch implements `branch(state, overrides) → new_belief` (spec §4.2):
// same as Replace but the old version is not removed, so both coexist in
// the state (superposition).
func (b *Belief) Branch(state State, overrides BeliefTemplate) (*Belief, error) {
	if state.Locked() {
		return nil, lockedf("Belief.Branch", "state %d is locked", state.ID())
	}
	overrides.Subject = b.subject
	if overrides.Label == nil {
		overrides.Label = b.label
	}
	if overrides.Bases == nil {
		overrides.Bases = b.bases
	}
	if overrides.Traits == nil {
		overrides.Traits = b.traits
	}
	if overrides.Promotions == nil {
		overrides.Promotions = b.promotions
	}
	return state.AddBelief(overrides)
}

// RevTrait implements `rev_trait(state, traittype) → iterator<Belief>`:
// beliefs visible in state whose resolved traittype value is (or contains,
// for arrays) b.subject (spec §4.2, §8 invariant 6).
func (b *Belief) RevTrait(state State, tt *Traittype) ([]*Belief, error) {
	return state.RevTrait(tt, b.subject)
}
