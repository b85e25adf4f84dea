package anamnesis

// Eidos is the child of Logos that holds shared prototype beliefs — the
// archetypal inventory/location templates referenced by every Materia mind
// (spec §3.1, §4.1's Traittype registry, and spec §8 S2).
type Eidos struct {
	mindCore
}

func newEidos(id int, parent Mind, origin State) *Eidos {
	e := &Eidos{mindCore: mindCore{id: id, parent: parent, origin: origin}}
	e.addState(origin)
	return e
}

func (e *Eidos) Kind() MindKind { return MindKindEidos }

func (e *Eidos) CreateState(ground State, opts StateOptions) (State, error) {
	return e.createState(e, ground, opts)
}
