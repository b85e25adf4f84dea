package anamnesis

// exposureAllowed reports whether a traittype tagged exposure should be
// copied under the given requested modalities; an empty modalities list
// means "no filter" (spec §4.6).
func exposureAllowed(exposure Exposure, modalities []Exposure) bool {
	if len(modalities) == 0 {
		return true
	}
	for _, m := range modalities {
		if m == exposure {
			return true
		}
	}
	return false
}

// dereferenceSubjects walks v (recursing into arrays) touching every
// Subject it finds, per learn_about's "recursively dereferencing Subject
// values" (spec §4.6). A subject with no belief yet in its home mind is not
// an error here — learn_about may be the thing that first observes it.
func dereferenceSubjects(v Value) {
	switch v.Kind() {
	case KindSubject:
		s, ok := v.Subj()
		if !ok || s == nil || s.homeMind == nil {
			return
		}
		_, _ = s.GetBeliefByState(s.homeMind.OriginState())
	case KindArray:
		items, _ := v.Array()
		for _, item := range items {
			dereferenceSubjects(item)
		}
	}
}

// LearnAbout implements `learn_about(state, source_belief, {traits,
// modalities})` (spec §4.6): creates or updates, via replace, a belief in
// state with `@about = source_belief.subject`, copying the requested
// traits filtered by modality.
func LearnAbout(state State, source *Belief, traits []string, modalities []Exposure) error {
	aboutTT, ok := db.TraittypeByLabel("@about")
	if !ok {
		return schemaf("LearnAbout", "no @about traittype registered")
	}

	existing, err := state.RevTrait(aboutTT, source.Subject())
	if err != nil {
		return err
	}

	traitValues := make(map[string]Value, len(traits)+1)
	for _, label := range traits {
		tt, ok := db.TraittypeByLabel(label)
		if !ok {
			return schemaf("LearnAbout", "unknown traittype %q", label)
		}
		if !exposureAllowed(tt.Exposure, modalities) {
			continue
		}
		v, err := source.GetTrait(ScopedState(tt, state), tt)
		if err != nil {
			return err
		}
		dereferenceSubjects(v)
		traitValues[label] = v
	}
	traitValues[aboutTT.Label] = SubjectValue(source.Subject())

	tmpl := BeliefTemplate{Traits: traitValues}
	if len(existing) > 0 {
		_, err := existing[0].Replace(state, tmpl)
		return err
	}
	_, err = state.AddBelief(tmpl)
	return err
}

// Recognize implements `recognize(state, source_belief)` =
// `source_belief.subject.get_belief_by_state(ground_state).rev_trait(state,
// '@about')` (spec §4.6): every belief in state that perceives
// source_belief's subject.
func Recognize(state State, source *Belief) ([]*Belief, error) {
	aboutTT, ok := db.TraittypeByLabel("@about")
	if !ok {
		return nil, schemaf("Recognize", "no @about traittype registered")
	}
	ground := state.GroundState()
	if ground == nil {
		return nil, schemaf("Recognize", "state %d has no ground_state to recognize against", state.ID())
	}
	groundBelief, err := source.Subject().GetBeliefByState(ground)
	if err != nil {
		return nil, err
	}
	return groundBelief.RevTrait(state, aboutTT)
}

// Perceive implements `perceive(state, entities, modalities)` (spec §4.6):
// builds an EventPerception belief referencing, for each observed entity,
// either an existing knowledge belief (fast path, found via
// `rev_trait('@about', entity)`) or a freshly perceived belief with
// `@about = null` (slow path).
func Perceive(state State, entities []*Subject, modalities []Exposure) (*Belief, error) {
	aboutTT, ok := db.TraittypeByLabel("@about")
	if !ok {
		return nil, schemaf("Perceive", "no @about traittype registered")
	}

	observed := make([]Value, 0, len(entities))
	for _, entity := range entities {
		matches, err := state.RevTrait(aboutTT, entity)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			observed = append(observed, SubjectValue(matches[0].Subject()))
			continue
		}
		slow, err := state.AddBelief(BeliefTemplate{
			Traits: map[string]Value{aboutTT.Label: NullValue()},
		})
		if err != nil {
			return nil, err
		}
		observed = append(observed, SubjectValue(slow.Subject()))
	}

	return state.AddBelief(BeliefTemplate{
		Traits: map[string]Value{"entities": ArrayValue(observed)},
	})
}
