package anamnesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anamnesis "github.com/ashita-ai/anamnesis"
)

func TestSaveLoadMindRoundTrip(t *testing.T) {
	freshWorld(t)

	colorTT := anamnesis.NewTraittype("color", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{colorTT}, nil, nil))

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	state := world.OriginState()
	_, err = state.AddBelief(anamnesis.BeliefTemplate{Label: strp("hammer"), Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("gray")}})
	require.NoError(t, err)
	require.NoError(t, state.Lock())

	data, err := anamnesis.SaveMind(world)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	loaded, err := anamnesis.LoadMind(data)
	require.NoError(t, err)
	assert.Equal(t, world.ID(), loaded.ID())
	assert.Equal(t, anamnesis.MindKindMateria, loaded.Kind())

	loadedState := loaded.OriginState()
	require.NotNil(t, loadedState)
	assert.True(t, loadedState.Locked())

	b, ok, err := loadedState.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)

	v, err := b.GetTrait(loadedState, colorTT)
	require.NoError(t, err)
	s, ok := v.Str()
	require.True(t, ok)
	assert.Equal(t, "gray", s)
}

func TestSaveLoadMindRoundTripWithNestedMind(t *testing.T) {
	freshWorld(t)

	require.NoError(t, anamnesis.Register(nil, nil, nil))

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	worldState := world.OriginState()
	require.NoError(t, worldState.Lock())

	child, err := anamnesis.NewMaterial(world, worldState, anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	require.NoError(t, child.OriginState().Lock())

	data, err := anamnesis.SaveMind(world)
	require.NoError(t, err)

	loaded, err := anamnesis.LoadMind(data)
	require.NoError(t, err)

	children := anamnesis.ChildMinds(loaded)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID(), children[0].ID())
	assert.True(t, children[0].OriginState().Locked())
}
