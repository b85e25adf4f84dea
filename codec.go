package anamnesis

import (
	"context"
	"encoding/json"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// The wire grammar below implements spec §6.1's JSON codec. Field names
// follow the spec grammar, with two departures: promotions carry an extra
// `trait` field (see promotionJSON), and tracks/components/resolution are
// omitted rather than written as null when unset. Go-side zero
// values (nil slices marshal as `null`, not `[]`) are normalized away with
// explicit `make` calls before marshaling so empty lists round-trip as `[]`.

type mindJSON struct {
	Type        string       `json:"_type"`
	ID          int          `json:"_id"`
	Label       *string      `json:"label"`
	Beliefs     []beliefJSON `json:"belief"`
	States      []stateJSON  `json:"state"`
	NestedMinds []mindJSON   `json:"nested_minds,omitempty"`
}

type beliefJSON struct {
	Type        string                     `json:"_type"`
	ID          int                        `json:"_id"`
	SID         int                        `json:"sid"`
	Label       *string                    `json:"label"`
	Archetypes  []string                   `json:"archetypes"`
	Bases       []json.RawMessage          `json:"bases"`
	Traits      map[string]json.RawMessage `json:"traits"`
	OriginState *int                       `json:"origin_state"`
	Promotions  []promotionJSON            `json:"promotions,omitempty"`
	Resolution  *int                       `json:"resolution,omitempty"`
}

// Trait is an additive field beyond spec §6.1's literal grammar: the spec
// groups all of a belief's promotions into one flat list with no per-entry
// traittype, but Belief.promotions is keyed by traittype label (spec §3.1,
// §4.2 step 4), so encoding has to name which trait each promotion belongs
// to or it can't be recovered on load. See DESIGN.md.
type promotionJSON struct {
	Trait     string  `json:"trait"`
	Certainty float64 `json:"certainty"`
	Belief    int     `json:"belief"`
}

type stateJSON struct {
	Type       string  `json:"_type"`
	ID         int     `json:"_id"`
	TT         *int64  `json:"tt"`
	VT         *int64  `json:"vt"`
	Certainty  float64 `json:"certainty"`
	Base       *int    `json:"base"`
	Ground     *int    `json:"ground_state"`
	Self       *int    `json:"self"`
	Insert     []int   `json:"insert"`
	Remove     []int   `json:"remove"`
	Tracks     *int    `json:"tracks,omitempty"`
	Components []int   `json:"components,omitempty"`
	Resolution *int    `json:"resolution,omitempty"`
}

// ---- Save ----

// SaveMind implements `save_mind(mind) → json` (spec §6.1): serializes mind
// and every mind nested beneath it (discovered via the live Parent() links
// in the registry, since Mind itself tracks no children list) into the
// bit-level grammar.
func SaveMind(root Mind) (json.RawMessage, error) {
	childrenOf := map[int][]Mind{}
	for _, m := range db.AllMinds() {
		if p := m.Parent(); p != nil {
			childrenOf[p.ID()] = append(childrenOf[p.ID()], m)
		}
	}
	node, err := encodeMindNode(root, childrenOf)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

func encodeMindNode(m Mind, childrenOf map[int][]Mind) (mindJSON, error) {
	typ, err := mindTypeString(m.Kind())
	if err != nil {
		return mindJSON{}, err
	}

	beliefs := m.AllBeliefs()
	beliefEntries := make([]beliefJSON, len(beliefs))
	for i, b := range beliefs {
		bj, err := encodeBelief(b)
		if err != nil {
			return mindJSON{}, err
		}
		beliefEntries[i] = bj
	}

	states := m.AllStates()
	stateEntries := make([]stateJSON, len(states))
	for i, s := range states {
		stateEntries[i] = encodeState(s)
	}

	node := mindJSON{
		Type:    typ,
		ID:      m.ID(),
		Label:   m.Label(),
		Beliefs: beliefEntries,
		States:  stateEntries,
	}

	for _, child := range childrenOf[m.ID()] {
		childNode, err := encodeMindNode(child, childrenOf)
		if err != nil {
			return mindJSON{}, err
		}
		node.NestedMinds = append(node.NestedMinds, childNode)
	}
	return node, nil
}

func mindTypeString(k MindKind) (string, error) {
	switch k {
	case MindKindMateria:
		return "Materia", nil
	case MindKindLogos:
		return "Logos", nil
	case MindKindEidos:
		return "Eidos", nil
	default:
		return "", schemaf("SaveMind", "a composed Convergence mind view has no saveable identity")
	}
}

func encodeBelief(b *Belief) (beliefJSON, error) {
	bases := make([]json.RawMessage, 0, len(b.bases))
	for _, ref := range b.bases {
		var raw json.RawMessage
		var err error
		if ref.Archetype != nil {
			raw, err = json.Marshal(ref.Archetype.Label)
		} else {
			raw, err = json.Marshal(ref.Belief.id)
		}
		if err != nil {
			return beliefJSON{}, err
		}
		bases = append(bases, raw)
	}

	archetypeLabels := make([]string, 0)
	for _, a := range b.GetArchetypes() {
		archetypeLabels = append(archetypeLabels, a.Label)
	}

	traits := make(map[string]json.RawMessage, len(b.traits))
	for name, v := range b.traits {
		raw, err := encodeValue(v)
		if err != nil {
			return beliefJSON{}, err
		}
		traits[name] = raw
	}

	var originState *int
	if b.originState != nil {
		id := b.originState.ID()
		originState = &id
	}

	var promotions []promotionJSON
	promotionNames := make([]string, 0, len(b.promotions))
	for name := range b.promotions {
		promotionNames = append(promotionNames, name)
	}
	sort.Strings(promotionNames)
	for _, name := range promotionNames {
		for _, p := range b.promotions[name] {
			promotions = append(promotions, promotionJSON{Trait: name, Certainty: p.Certainty, Belief: p.Replacement.id})
		}
	}

	var resolution *int
	if b.resolution != nil {
		resolution = &b.resolution.id
	}

	return beliefJSON{
		Type:        "Belief",
		ID:          b.id,
		SID:         b.subject.SID(),
		Label:       b.label,
		Archetypes:  archetypeLabels,
		Bases:       bases,
		Traits:      traits,
		OriginState: originState,
		Promotions:  promotions,
		Resolution:  resolution,
	}, nil
}

func encodeState(s State) stateJSON {
	sj := stateJSON{
		Type:      s.Kind().String(),
		ID:        s.ID(),
		TT:        s.TT(),
		VT:        s.VT(),
		Certainty: s.Certainty(),
		Insert:    []int{},
		Remove:    []int{},
	}
	if g := s.GroundState(); g != nil {
		id := g.ID()
		sj.Ground = &id
	}
	if self := s.Self(); self != nil {
		id := self.SID()
		sj.Self = &id
	}

	switch t := s.(type) {
	case *TemporalState:
		if t.base != nil {
			id := t.base.ID()
			sj.Base = &id
		}
		if t.tracksState != nil {
			id := t.tracksState.ID()
			sj.Tracks = &id
		}
		for _, b := range t.insertOrder {
			sj.Insert = append(sj.Insert, b.id)
		}
		for id := range t.removeIDs {
			sj.Remove = append(sj.Remove, id)
		}
		sort.Ints(sj.Remove)
	case *ConvergenceState:
		for _, comp := range t.components {
			sj.Components = append(sj.Components, comp.ID())
		}
		if t.resolution != nil {
			id := t.resolution.ID()
			sj.Resolution = &id
		}
	}
	return sj
}

func encodeValue(v Value) (json.RawMessage, error) {
	switch v.Kind() {
	case KindNull:
		return json.Marshal(nil)
	case KindString:
		s, _ := v.Str()
		return json.Marshal(s)
	case KindNumber:
		n, _ := v.Num()
		return json.Marshal(n)
	case KindBool:
		b, _ := v.Bool()
		return json.Marshal(b)
	case KindSubject:
		s, _ := v.Subj()
		return json.Marshal(map[string]any{"_type": "Subject", "_id": s.SID()})
	case KindState:
		st, _ := v.StateRef()
		return json.Marshal(map[string]any{"_type": "State", "_id": st.ID()})
	case KindMind:
		m, _ := v.MindRef()
		return json.Marshal(map[string]any{"_type": "Mind", "_id": m.ID(), "label": m.Label()})
	case KindArray:
		items, _ := v.Array()
		encoded := make([]json.RawMessage, len(items))
		for i, item := range items {
			raw, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			encoded[i] = raw
		}
		return json.Marshal(encoded)
	case KindFuzzy:
		f, _ := v.AsFuzzy()
		alts := make([]map[string]any, len(f.Alternatives))
		for i, a := range f.Alternatives {
			raw, err := encodeValue(a.Value)
			if err != nil {
				return nil, err
			}
			alts[i] = map[string]any{"value": raw, "certainty": a.Certainty}
		}
		return json.Marshal(map[string]any{"_type": "Fuzzy", "alternatives": alts})
	default:
		return nil, schemaf("encodeValue", "unknown value kind %v", v.Kind())
	}
}

// ---- Load ----

// loadCtx accumulates every shell allocated in pass 1 so pass 2 can resolve
// any cross-reference regardless of which mind in the tree declared it
// (spec §6.1's two-pass requirement).
type loadCtx struct {
	// beliefsByID, statesByID, mindsByID, and the jsonBy* maps are
	// populated entirely during pass 1 (single-threaded) and only read
	// during pass 2's errgroup fan-out, so they need no lock. subjectsBySID
	// can still gain entries during pass 2 (a Subject-kind trait value may
	// reference a sid no belief declared), so it alone is guarded.
	beliefsByID   map[int]*Belief
	statesByID    map[int]State
	mindsByID     map[int]Mind
	subjMu        sync.Mutex
	subjectsBySID map[int]*Subject

	jsonByMindID   map[int]mindJSON
	jsonByBeliefID map[int]beliefJSON
	jsonByStateID  map[int]stateJSON
}

func newLoadCtx() *loadCtx {
	return &loadCtx{
		beliefsByID:    map[int]*Belief{},
		statesByID:     map[int]State{},
		mindsByID:      map[int]Mind{},
		subjectsBySID:  map[int]*Subject{},
		jsonByMindID:   map[int]mindJSON{},
		jsonByBeliefID: map[int]beliefJSON{},
		jsonByStateID:  map[int]stateJSON{},
	}
}

// resolveState looks up id among the states allocated in this load batch
// first, then falls back to the process-wide registry: a saved mind's
// origin state commonly has a ground_state belonging to an ancestor mind
// that was not itself part of the saved subtree (e.g. saving a Materia
// without its Logos/Eidos ancestry), so that ground must already be
// resident in the live registry for the load to succeed.
func (lc *loadCtx) resolveState(id int) (State, bool) {
	if s, ok := lc.statesByID[id]; ok {
		return s, true
	}
	return db.StateByID(id)
}

// resolveMind is resolveState's counterpart for Mind-kind values (spec
// §6.1): a belief may refer to Logos or Eidos themselves, neither of which
// is ever part of the saved subtree.
func (lc *loadCtx) resolveMind(id int) (Mind, bool) {
	if m, ok := lc.mindsByID[id]; ok {
		return m, true
	}
	return db.MindByID(id)
}

func (lc *loadCtx) subjectFor(sid int, home Mind) *Subject {
	lc.subjMu.Lock()
	defer lc.subjMu.Unlock()
	if s, ok := lc.subjectsBySID[sid]; ok {
		return s
	}
	s := &Subject{sid: sid, homeMind: home}
	lc.subjectsBySID[sid] = s
	return s
}

// LoadMind implements `load(json) → mind` (spec §6.1). Loaded states are
// always treated as locked: the codec is a snapshot/history format, not a
// live-session resume format, so there is no notion of reopening a loaded
// state for further writes.
func LoadMind(data json.RawMessage) (Mind, error) {
	var root mindJSON
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	lc := newLoadCtx()
	topLevel, err := allocateMindShells(lc, root, nil)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for id := range lc.jsonByMindID {
		id := id
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return finalizeMind(lc, id)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return topLevel, nil
}

// allocateMindShells is pass 1: walk the whole Mind tree, allocating every
// mind/belief/state by id with no cross-references resolved yet.
func allocateMindShells(lc *loadCtx, node mindJSON, parent Mind) (Mind, error) {
	var mind Mind
	switch node.Type {
	case "Materia":
		mind = &Materia{mindCore: mindCore{id: node.ID, label: node.Label, parent: parent}}
	case "Logos":
		mind = &Logos{mindCore: mindCore{id: node.ID, label: node.Label, parent: parent}}
	case "Eidos":
		mind = &Eidos{mindCore: mindCore{id: node.ID, label: node.Label, parent: parent}}
	default:
		return nil, schemaf("LoadMind", "unknown mind _type %q", node.Type)
	}

	lc.mindsByID[node.ID] = mind
	lc.jsonByMindID[node.ID] = node
	db.registerMind(mind)

	for _, bj := range node.Beliefs {
		subject := lc.subjectFor(bj.SID, mind)
		b := &Belief{id: bj.ID, subject: subject, label: bj.Label, inMind: mind}
		lc.beliefsByID[bj.ID] = b
		lc.jsonByBeliefID[bj.ID] = bj
		db.registerBelief(b)
		if owner, ok := mind.(beliefOwner); ok {
			owner.addBelief(b)
		}
	}

	var originCandidate State
	for _, sj := range node.States {
		var s State
		switch sj.Type {
		case "Temporal":
			s = &TemporalState{
				stateCore: stateCore{id: sj.ID, mind: mind, tt: sj.TT, vt: sj.VT, certainty: sj.Certainty, locked: true, cache: newTraitCache(), rev: newRevIndex()},
				insertIDs: map[int]bool{},
				removeIDs: map[int]bool{},
			}
		case "Timeless":
			s = &TimelessState{stateCore: stateCore{id: sj.ID, mind: mind, certainty: sj.Certainty, locked: true, cache: newTraitCache(), rev: newRevIndex()}}
		case "Convergence":
			s = &ConvergenceState{stateCore: stateCore{id: sj.ID, mind: mind, tt: sj.TT, vt: sj.VT, certainty: sj.Certainty, locked: true, cache: newTraitCache(), rev: newRevIndex()}}
		default:
			return nil, schemaf("LoadMind", "unknown state _type %q", sj.Type)
		}
		lc.statesByID[sj.ID] = s
		lc.jsonByStateID[sj.ID] = sj
		db.registerState(s)
		if owner, ok := mind.(stateOwner); ok {
			owner.addState(s)
		}
		if sj.Base == nil {
			originCandidate = s
		}
	}
	// The wire grammar carries no explicit "this is the origin state"
	// marker; within one mind's own state list, the state with no base is
	// the root of its base-chain, which is exactly what origin_state means
	// (Logos's single state, Timeless, trivially has no base either).
	switch concrete := mind.(type) {
	case *Materia:
		concrete.origin = originCandidate
	case *Eidos:
		concrete.origin = originCandidate
	case *Logos:
		concrete.origin = originCandidate
	}

	for _, child := range node.NestedMinds {
		if _, err := allocateMindShells(lc, child, mind); err != nil {
			return nil, err
		}
	}

	return mind, nil
}

// finalizeMind is pass 2 for one mind: resolve every cross-reference in its
// beliefs and states. Independent minds in the forest have no
// cross-references during finalization (spec §6.1), so the caller fans this
// out across minds with an errgroup.
func finalizeMind(lc *loadCtx, mindID int) error {
	node := lc.jsonByMindID[mindID]

	for _, bj := range node.Beliefs {
		b := lc.beliefsByID[bj.ID]

		bases := make([]BaseRef, 0, len(bj.Bases))
		for _, raw := range bj.Bases {
			var asInt int
			if err := json.Unmarshal(raw, &asInt); err == nil {
				ref, ok := lc.beliefsByID[asInt]
				if !ok {
					return notFoundf("LoadMind", "belief %d references unknown belief base %d", bj.ID, asInt)
				}
				bases = append(bases, BeliefBase(ref))
				continue
			}
			var asLabel string
			if err := json.Unmarshal(raw, &asLabel); err != nil {
				return schemaf("LoadMind", "belief %d has an unrecognized base entry", bj.ID)
			}
			arch, ok := db.ArchetypeByLabel(asLabel)
			if !ok {
				return notFoundf("LoadMind", "belief %d references unknown archetype %q", bj.ID, asLabel)
			}
			bases = append(bases, ArchetypeBase(arch))
		}
		b.bases = bases

		traits := make(map[string]Value, len(bj.Traits))
		for name, raw := range bj.Traits {
			v, err := decodeValue(raw, lc)
			if err != nil {
				return err
			}
			traits[name] = v
		}
		b.traits = traits

		if len(bj.Promotions) > 0 {
			promotions := map[string][]Promotion{}
			for _, p := range bj.Promotions {
				replacement, ok := lc.beliefsByID[p.Belief]
				if !ok {
					return notFoundf("LoadMind", "belief %d has a promotion referencing unknown belief %d", bj.ID, p.Belief)
				}
				promotions[p.Trait] = append(promotions[p.Trait], Promotion{Certainty: p.Certainty, Replacement: replacement})
			}
			b.promotions = promotions
		}

		if bj.OriginState != nil {
			s, ok := lc.statesByID[*bj.OriginState]
			if !ok {
				return notFoundf("LoadMind", "belief %d references unknown origin_state %d", bj.ID, *bj.OriginState)
			}
			b.originState = s
		}
		if bj.Resolution != nil {
			res, ok := lc.beliefsByID[*bj.Resolution]
			if !ok {
				return notFoundf("LoadMind", "belief %d references unknown resolution %d", bj.ID, *bj.Resolution)
			}
			b.resolution = res
		}
	}

	for _, sj := range node.States {
		s := lc.statesByID[sj.ID]

		var ground State
		if sj.Ground != nil {
			g, ok := lc.resolveState(*sj.Ground)
			if !ok {
				return notFoundf("LoadMind", "state %d references unknown ground_state %d", sj.ID, *sj.Ground)
			}
			ground = g
		}
		var self *Subject
		if sj.Self != nil {
			self = lc.subjectFor(*sj.Self, s.Mind())
		}

		switch t := s.(type) {
		case *TemporalState:
			t.ground = ground
			t.self = self
			if sj.Base != nil {
				base, ok := lc.statesByID[*sj.Base]
				if !ok {
					return notFoundf("LoadMind", "state %d references unknown base %d", sj.ID, *sj.Base)
				}
				t.base = base
			}
			if sj.Tracks != nil {
				tracks, ok := lc.resolveState(*sj.Tracks)
				if !ok {
					return notFoundf("LoadMind", "state %d references unknown tracks %d", sj.ID, *sj.Tracks)
				}
				t.tracksState = tracks
			}
			for _, id := range sj.Insert {
				b, ok := lc.beliefsByID[id]
				if !ok {
					return notFoundf("LoadMind", "state %d's insert set references unknown belief %d", sj.ID, id)
				}
				t.insertOrder = append(t.insertOrder, b)
				t.insertIDs[id] = true
			}
			for _, id := range sj.Remove {
				t.removeIDs[id] = true
			}
		case *TimelessState:
			t.ground = ground
			t.self = self
		case *ConvergenceState:
			t.ground = ground
			t.self = self
			for _, id := range sj.Components {
				comp, ok := lc.resolveState(id)
				if !ok {
					return notFoundf("LoadMind", "Convergence %d references unknown component %d", sj.ID, id)
				}
				t.components = append(t.components, comp)
			}
			if sj.Resolution != nil {
				res, ok := lc.resolveState(*sj.Resolution)
				if !ok {
					return notFoundf("LoadMind", "Convergence %d references unknown resolution %d", sj.ID, *sj.Resolution)
				}
				t.resolution = res
			}
		}
	}

	return nil
}

// decodeValue decodes one SerializedValue (spec §6.1). Entity references
// require their target shell to already exist, which pass 1 guarantees
// regardless of which mind in the tree declared the target.
func decodeValue(raw json.RawMessage, lc *loadCtx) (Value, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Value{}, err
	}
	switch t := probe.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case bool:
		return BoolValue(t), nil
	case []any:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return Value{}, err
		}
		values := make([]Value, len(items))
		for i, item := range items {
			v, err := decodeValue(item, lc)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		return ArrayValue(values), nil
	case map[string]any:
		typ, _ := t["_type"].(string)
		switch typ {
		case "Subject":
			id, ok := t["_id"].(float64)
			if !ok {
				return Value{}, schemaf("decodeValue", "Subject value missing _id")
			}
			return SubjectValue(lc.subjectFor(int(id), nil)), nil
		case "State":
			id, ok := t["_id"].(float64)
			if !ok {
				return Value{}, schemaf("decodeValue", "State value missing _id")
			}
			s, ok := lc.resolveState(int(id))
			if !ok {
				return Value{}, notFoundf("decodeValue", "unknown state id %d", int(id))
			}
			return StateValue(s), nil
		case "Mind":
			id, ok := t["_id"].(float64)
			if !ok {
				return Value{}, schemaf("decodeValue", "Mind value missing _id")
			}
			m, ok := lc.resolveMind(int(id))
			if !ok {
				return Value{}, notFoundf("decodeValue", "unknown mind id %d", int(id))
			}
			return MindValue(m), nil
		case "Fuzzy":
			var fraw struct {
				Alternatives []struct {
					Value     json.RawMessage `json:"value"`
					Certainty float64         `json:"certainty"`
				} `json:"alternatives"`
			}
			if err := json.Unmarshal(raw, &fraw); err != nil {
				return Value{}, err
			}
			alts := make([]Alternative, len(fraw.Alternatives))
			for i, a := range fraw.Alternatives {
				v, err := decodeValue(a.Value, lc)
				if err != nil {
					return Value{}, err
				}
				alts[i] = Alternative{Certainty: a.Certainty, Value: v}
			}
			return FuzzyValue(Fuzzy{Alternatives: alts}), nil
		default:
			return Value{}, schemaf("decodeValue", "unknown SerializedValue _type %q", typ)
		}
	default:
		return Value{}, schemaf("decodeValue", "unrecognized SerializedValue shape")
	}
}
