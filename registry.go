package anamnesis

import (
	"sort"
	"sync"
)

// registry is the process-scoped set of lookup tables described in spec §2
// ("Registries (DB)") and §3.3: id→entity tables for beliefs/states/minds,
// and the label→entity tables for the process-global Archetype/Traittype
// schema. Back-edges here are lookup-only, never owning (spec §3.3); the
// owning references live on each Mind and State.
type registry struct {
	mu sync.RWMutex

	ids idSequence

	beliefsByID       map[int]*Belief
	statesByID        map[int]State
	mindsByID         map[int]Mind
	archetypesByLabel map[string]*Archetype
	traittypesByLabel map[string]*Traittype
	traittypeOrder    []string

	registered bool

	logos      *Logos
	logosState State
	eidos      *Eidos
}

var db = newRegistry()

func newRegistry() *registry {
	r := &registry{
		beliefsByID:       map[int]*Belief{},
		statesByID:        map[int]State{},
		mindsByID:         map[int]Mind{},
		archetypesByLabel: map[string]*Archetype{},
		traittypesByLabel: map[string]*Traittype{},
	}
	r.bootstrap()
	return r
}

// bootstrap creates the two singleton minds and the one process-wide
// Timeless state (spec §3.1, §9 "Singletons").
func (r *registry) bootstrap() {
	logosID := r.ids.nextID()
	timelessID := r.ids.nextID()
	logos := &Logos{mindCore: mindCore{id: logosID}}
	timeless := newTimelessState(timelessID, logos)
	logos.origin = timeless
	logos.addState(timeless)
	r.mindsByID[logos.id] = logos
	r.statesByID[timeless.id] = timeless
	r.logos = logos
	r.logosState = timeless

	eidosID := r.ids.nextID()
	eidosOriginID := r.ids.nextID()
	eidosOrigin := newTemporalState(eidosOriginID, nil, timeless, StateOptions{Certainty: 1})
	eidos := newEidos(eidosID, logos, eidosOrigin)
	eidosOrigin.mind = eidos
	r.mindsByID[eidos.id] = eidos
	r.statesByID[eidosOrigin.id] = eidosOrigin
	r.eidos = eidos
}

func (r *registry) registerBelief(b *Belief) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beliefsByID[b.id] = b
	r.ids.observe(b.id)
}

func (r *registry) registerState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statesByID[s.ID()] = s
	r.ids.observe(s.ID())
}

func (r *registry) registerMind(m Mind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mindsByID[m.ID()] = m
	r.ids.observe(m.ID())
}

func (r *registry) BeliefByID(id int) *Belief {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.beliefsByID[id]
}

func (r *registry) StateByID(id int) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statesByID[id]
	return s, ok
}

func (r *registry) MindByID(id int) (Mind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mindsByID[id]
	return m, ok
}

func (r *registry) ArchetypeByLabel(label string) (*Archetype, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.archetypesByLabel[label]
	return a, ok
}

func (r *registry) TraittypeByLabel(label string) (*Traittype, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tt, ok := r.traittypesByLabel[label]
	return tt, ok
}

// TraittypesInOrder returns every registered Traittype in registration
// order (spec §5 ordering guarantee for GetTraits).
func (r *registry) TraittypesInOrder() []*Traittype {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Traittype, 0, len(r.traittypeOrder))
	for _, label := range r.traittypeOrder {
		out = append(out, r.traittypesByLabel[label])
	}
	return out
}

func (r *registry) LogosMind() *Logos { return r.logos }
func (r *registry) EidosMind() *Eidos { return r.eidos }

// AllMinds returns every registered mind in ascending id (creation) order,
// for the codec's parent→children walk when saving (spec §6.1).
func (r *registry) AllMinds() []Mind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Mind, 0, len(r.mindsByID))
	for _, m := range r.mindsByID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Register validates and installs a schema (traittypes, archetypes) and
// seeds Eidos's origin state with shared prototype beliefs (spec §4.1).
// Idempotent only within one process lifetime: a second call without an
// intervening ResetRegistries fails.
func Register(traittypes []*Traittype, archetypes []*Archetype, sharedBeliefs []BeliefTemplate) error {
	db.mu.Lock()
	if db.registered {
		db.mu.Unlock()
		return schemaf("Register", "already registered for this process lifetime; call ResetRegistries first")
	}
	for _, tt := range traittypes {
		if _, exists := db.traittypesByLabel[tt.Label]; exists {
			db.mu.Unlock()
			return schemaf("Register", "duplicate traittype label %q", tt.Label)
		}
		db.traittypesByLabel[tt.Label] = tt
		db.traittypeOrder = append(db.traittypeOrder, tt.Label)
	}
	for _, a := range archetypes {
		if _, exists := db.archetypesByLabel[a.Label]; exists {
			db.mu.Unlock()
			return schemaf("Register", "duplicate archetype label %q", a.Label)
		}
		db.archetypesByLabel[a.Label] = a
	}
	db.registered = true
	db.mu.Unlock()

	origin := db.eidos.OriginState()
	for _, tmpl := range sharedBeliefs {
		if _, err := origin.AddBelief(tmpl); err != nil {
			return err
		}
	}
	return origin.Lock()
}

// ResetRegistries tears down every registry and re-bootstraps fresh Logos
// and Eidos singletons. It exists purely for testability (spec §9
// "Singletons ... must be resettable by an internal reset hook, not exposed
// to normal callers") — production embedders call Register exactly once.
func ResetRegistries() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.ids.reset()
	db.beliefsByID = map[int]*Belief{}
	db.statesByID = map[int]State{}
	db.mindsByID = map[int]Mind{}
	db.archetypesByLabel = map[string]*Archetype{}
	db.traittypesByLabel = map[string]*Traittype{}
	db.traittypeOrder = nil
	db.registered = false
	db.bootstrap()
}

// LogosMind returns the singleton root mind (spec §6.2 "logos()").
func LogosMind() *Logos { return db.LogosMind() }

// LogosState returns the one process-wide Timeless state (spec §6.2
// "logos_state()").
func LogosState() State { return db.logosState }

// EidosMind returns the singleton realm of shared prototypes (spec §6.2
// "eidos()").
func EidosMind() *Eidos { return db.EidosMind() }

// ChildMinds returns every registered mind whose Parent() is parent, for
// callers (e.g. the codec and content-hashing tools) that need to walk the
// nested_minds forest from a live Mind rather than its saved JSON.
func ChildMinds(parent Mind) []Mind {
	var out []Mind
	for _, m := range db.AllMinds() {
		if p := m.Parent(); p != nil && p.ID() == parent.ID() {
			out = append(out, m)
		}
	}
	return out
}
