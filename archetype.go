package anamnesis

// Archetype is a named schema fragment: a set of base archetypes forming a
// multiple-inheritance DAG, plus a traits template. A template entry present
// with value NullValue() means "slot declared, no default"; an absent entry
// means "archetype says nothing about this trait, inherit from bases".
// Archetypes are process-global and shared across all minds (spec §3.3).
type Archetype struct {
	Label    string
	Bases    []*Archetype
	Template map[string]Value
}

// NewArchetype constructs an Archetype. It is not registered until passed to
// Register.
func NewArchetype(label string, bases []*Archetype, template map[string]Value) *Archetype {
	if template == nil {
		template = map[string]Value{}
	}
	return &Archetype{Label: label, Bases: bases, Template: template}
}

// Ancestors returns a's bases in breadth-first DAG order, stable by
// declaration order, with first-occurrence dedup (spec §4.1, §9).
func (a *Archetype) Ancestors() []*Archetype {
	var out []*Archetype
	seen := map[string]bool{}
	queue := append([]*Archetype{}, a.Bases...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil || seen[next.Label] {
			continue
		}
		seen[next.Label] = true
		out = append(out, next)
		queue = append(queue, next.Bases...)
	}
	return out
}

// localValue implements resolvable.
func (a *Archetype) localValue(tt *Traittype) (Value, bool) {
	v, ok := a.Template[tt.Label]
	return v, ok
}

// baseRefs implements resolvable.
func (a *Archetype) baseRefs() []resolvable {
	refs := make([]resolvable, len(a.Bases))
	for i, b := range a.Bases {
		refs[i] = b
	}
	return refs
}

// promotionsFor implements resolvable. Archetypes are schema, not epistemic
// assertions, so they never carry promotions.
func (a *Archetype) promotionsFor(*Traittype) ([]Promotion, bool) { return nil, false }

// identityKey implements resolvable, keyed the same way Ancestors dedups.
func (a *Archetype) identityKey() string { return "archetype:" + a.Label }

// resolveTrait resolves tt against a's template and its base DAG using the
// same composable/non-composable algorithm as Belief (spec §4.2 step 3:
// "Archetype templates are considered like beliefs").
func (a *Archetype) resolveTrait(tt *Traittype) (Value, bool, error) {
	return resolveGeneric(a, tt)
}
