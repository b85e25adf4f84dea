package anamnesis

// Logos is the singleton primordial mind: it has no parent, and its origin
// state is the one process-wide Timeless state (spec §3.1).
type Logos struct {
	mindCore
}

func newLogos(id int, timeless State) *Logos {
	l := &Logos{mindCore: mindCore{id: id, origin: timeless}}
	l.addState(timeless)
	return l
}

func (l *Logos) Kind() MindKind { return MindKindLogos }

// CreateState is unsupported: Logos's only state is the Timeless singleton.
func (l *Logos) CreateState(State, StateOptions) (State, error) {
	return nil, schemaf("Logos.CreateState", "Logos has no state other than the process-wide Timeless state")
}
