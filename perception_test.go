package anamnesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anamnesis "github.com/ashita-ai/anamnesis"
)

func TestLearnAboutAndRecognize(t *testing.T) {
	freshWorld(t)

	aboutTT := anamnesis.NewTraittype("@about", anamnesis.KindSubject, false, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	nameTT := anamnesis.NewTraittype("name", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{aboutTT, nameTT}, nil, nil))

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	worldState := world.OriginState()
	tree, err := worldState.AddBelief(anamnesis.BeliefTemplate{Label: strp("tree"), Traits: map[string]anamnesis.Value{"name": anamnesis.StringValue("oak")}})
	require.NoError(t, err)
	require.NoError(t, worldState.Lock())

	npcMind, err := anamnesis.NewMaterial(anamnesis.LogosMind(), worldState, anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	npcOrigin := npcMind.OriginState()

	require.NoError(t, anamnesis.LearnAbout(npcOrigin, tree, []string{"name"}, nil))

	knowledge, err := npcOrigin.RevTrait(aboutTT, tree.Subject())
	require.NoError(t, err)
	require.Len(t, knowledge, 1)
	v, err := knowledge[0].GetTrait(npcOrigin, nameTT)
	require.NoError(t, err)
	s, ok := v.Str()
	require.True(t, ok)
	assert.Equal(t, "oak", s)

	recognized, err := anamnesis.Recognize(npcOrigin, tree)
	require.NoError(t, err)
	require.Len(t, recognized, 1)
	assert.Equal(t, knowledge[0].ID(), recognized[0].ID())
}

func TestPerceiveFastAndSlowPath(t *testing.T) {
	freshWorld(t)

	aboutTT := anamnesis.NewTraittype("@about", anamnesis.KindSubject, false, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{aboutTT}, nil, nil))

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	worldState := world.OriginState()
	known, err := worldState.AddBelief(anamnesis.BeliefTemplate{Label: strp("rock")})
	require.NoError(t, err)
	require.NoError(t, worldState.Lock())

	npcMind, err := anamnesis.NewMaterial(anamnesis.LogosMind(), worldState, anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	npcOrigin := npcMind.OriginState()

	require.NoError(t, anamnesis.LearnAbout(npcOrigin, known, nil, nil))
	knowledge, err := npcOrigin.RevTrait(aboutTT, known.Subject())
	require.NoError(t, err)
	require.Len(t, knowledge, 1)

	unknownBelief, err := npcOrigin.AddBelief(anamnesis.BeliefTemplate{Label: strp("mystery")})
	require.NoError(t, err)

	event, err := anamnesis.Perceive(npcOrigin, []*anamnesis.Subject{known.Subject(), unknownBelief.Subject()}, nil)
	require.NoError(t, err)

	entitiesVal, err := event.GetTrait(npcOrigin, anamnesis.NewTraittype("entities", anamnesis.KindArray, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual))
	require.NoError(t, err)
	items, ok := entitiesVal.Array()
	require.True(t, ok)
	require.Len(t, items, 2)

	firstSubj, ok := items[0].Subj()
	require.True(t, ok)
	assert.Equal(t, knowledge[0].Subject().SID(), firstSubj.SID())

	secondSubj, ok := items[1].Subj()
	require.True(t, ok)
	assert.NotEqual(t, unknownBelief.Subject().SID(), secondSubj.SID())
}
