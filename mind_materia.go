package anamnesis

// Materia is every mind other than Logos and Eidos: a simulated agent's (or
// a simulated world's) own epistemic store, anchored to a parent mind via
// its origin state's ground_state (spec §3.1).
type Materia struct {
	mindCore
}

// NewMaterial constructs a Materia child of parent, anchored to ground (the
// parent-mind state this mind's origin opinion is about), and creates its
// origin Temporal state immediately.
func NewMaterial(parent Mind, ground State, opts StateOptions) (*Materia, error) {
	if parent == nil {
		return nil, schemaf("NewMaterial", "Materia requires a non-nil parent mind")
	}
	id := db.ids.nextID()
	m := &Materia{mindCore: mindCore{id: id, parent: parent}}
	origin, err := m.createState(m, ground, opts)
	if err != nil {
		return nil, err
	}
	m.origin = origin
	db.registerMind(m)
	return m, nil
}

func (m *Materia) Kind() MindKind { return MindKindMateria }

func (m *Materia) CreateState(ground State, opts StateOptions) (State, error) {
	return m.createState(m, ground, opts)
}

// CreateFromTemplate implements Materia::create_from_template (spec §4.5):
// a child mind whose origin_state.ground_state = groundState, whose self =
// groundBelief.Subject(), and which learns about the beliefs named in spec.
func CreateFromTemplate(parent Mind, groundState State, groundBelief *Belief, spec LearnSpec) (*Materia, error) {
	opts := StateOptions{Self: groundBelief.Subject(), Certainty: 1}
	if groundState.VT() != nil {
		tt := *groundState.VT()
		opts.TT = &tt
		opts.VT = &tt
	}
	child, err := NewMaterial(parent, groundState, opts)
	if err != nil {
		return nil, err
	}
	origin := child.origin
	for _, entry := range spec.Entries {
		if err := LearnAbout(origin, entry.Source, entry.Traits, entry.Modalities); err != nil {
			return nil, err
		}
	}
	return child, nil
}

// LearnSpec names what a newly created mind should learn about its ground
// reality as it's created (spec §4.5 "learn_spec").
type LearnSpec struct {
	Entries []LearnEntry
}

// LearnEntry is one belief-and-traits pair inside a LearnSpec.
type LearnEntry struct {
	Source     *Belief
	Traits     []string
	Modalities []Exposure
}
