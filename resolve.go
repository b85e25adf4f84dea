package anamnesis

// resolvable is implemented by both *Archetype and the (belief, state) pair
// a Belief resolves itself against, so the composable/non-composable walk
// of spec §4.2 steps 2-3 is written once and shared by both "a belief's own
// bases" and "an archetype's own bases" (spec §4.2 step 3: "Archetype
// templates are considered like beliefs").
type resolvable interface {
	localValue(tt *Traittype) (Value, bool)
	baseRefs() []resolvable
	promotionsFor(tt *Traittype) ([]Promotion, bool)
	// identityKey identifies this node for BFS dedup, the same role Label
	// plays in Archetype.Ancestors and Belief.GetArchetypes.
	identityKey() string
}

// resolveGeneric implements spec §4.2 steps 1-3 (local lookup, then the
// composable or non-composable walk over bases). It does not implement step
// 4 (promotions/Fuzzy fallback): that step needs a state to re-resolve
// candidate replacement beliefs against, so it is implemented only at the
// Belief level, in Belief.resolveTrait.
func resolveGeneric(r resolvable, tt *Traittype) (Value, bool, error) {
	if v, ok := r.localValue(tt); ok {
		return v, true, nil
	}
	if tt.Composable {
		return resolveComposable(r, tt)
	}
	return resolveFirstWins(r, tt)
}

// resolveComposable implements spec §4.2 step 2: "walk the belief's bases
// breadth-first; for each base that defines traittype (locally or
// inherited), collect its resolved value using recursion." Unlike
// resolveFirstWins, the walk here is only ever one level deep over r's own
// immediate baseRefs() — each top-level base contributes at most one value
// (its own, possibly composed, answer), so a Mind-kind trait composed over
// N archetype bases builds a Convergence with exactly N components, one per
// declared base, never flattened across a base's own deeper ancestry.
func resolveComposable(r resolvable, tt *Traittype) (Value, bool, error) {
	var contributions []Value
	anyDefined := false

	for _, base := range r.baseRefs() {
		v, defined, err := resolveGeneric(base, tt)
		if err != nil {
			return Value{}, false, err
		}
		if !defined {
			continue
		}
		anyDefined = true
		if v.isEmptyContribution() {
			continue
		}
		contributions = appendDeduped(contributions, v)
	}

	switch len(contributions) {
	case 0:
		if !anyDefined {
			return Value{}, false, nil
		}
		if tt.ValueKind == KindArray {
			return ArrayValue(nil), true, nil
		}
		return NullValue(), true, nil
	case 1:
		return contributions[0], true, nil
	default:
		// doCompose passes the belief on to a custom ComposeFunc. For
		// Archetype-level composition r is not a beliefCtx, so the belief
		// passed is nil; the default Mind-kind rule ignores it and takes
		// the Convergence's ground_state from the component states.
		belief, _ := r.(beliefCtx)
		composed, err := tt.doCompose(belief.b, contributions)
		if err != nil {
			return Value{}, false, err
		}
		return composed, true, nil
	}
}

// appendDeduped appends v to contributions unless an identity-equal value is
// already present (spec §4.2 step 2: "Deduplicate by value identity").
func appendDeduped(contributions []Value, v Value) []Value {
	for _, existing := range contributions {
		if identityEqual(existing, v) {
			return contributions
		}
	}
	return append(contributions, v)
}

// resolveFirstWins implements spec §4.2 step 3 ("walk bases breadth-first;
// first defining base wins") and spec §9's "no linearization is published;
// the order is defined as the BFS order over bases" — a true queue-based
// traversal over the whole bases DAG, level by level, the same pop-node/
// check-local/enqueue-its-bases pattern as Archetype.Ancestors and
// Belief.GetArchetypes, not per-branch recursion. Per-branch recursion would
// fully resolve the first top-level base's entire ancestry (descending to
// arbitrary depth) before ever trying the second top-level base, which
// wrongly prefers a distant ancestor of the first base over a direct,
// shallower definition on the second.
func resolveFirstWins(r resolvable, tt *Traittype) (Value, bool, error) {
	seen := map[string]bool{}
	queue := r.baseRefs()
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		key := next.identityKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		if v, ok := next.localValue(tt); ok {
			return v, true, nil
		}
		queue = append(queue, next.baseRefs()...)
	}
	return Value{}, false, nil
}
