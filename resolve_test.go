package anamnesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anamnesis "github.com/ashita-ai/anamnesis"
)

// S3 — composable inheritance where one base's explicit null does not
// block a sibling base's contribution.
func TestComposableNullBlocksOnlyItsOwnBase(t *testing.T) {
	freshWorld(t)

	inventoryTT := anamnesis.NewTraittype("inventory", anamnesis.KindArray, true, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{inventoryTT}, nil, nil))

	pacifist := anamnesis.NewArchetype("Pacifist", nil, map[string]anamnesis.Value{
		"inventory": anamnesis.NullValue(),
	})
	warrior := anamnesis.NewArchetype("Warrior", nil, map[string]anamnesis.Value{
		"inventory": anamnesis.ArrayValue([]anamnesis.Value{anamnesis.StringValue("sword")}),
	})

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	state := world.OriginState()

	hero, err := state.AddBelief(anamnesis.BeliefTemplate{
		Label: strp("hero"),
		Bases: []anamnesis.BaseRef{anamnesis.ArchetypeBase(pacifist), anamnesis.ArchetypeBase(warrior)},
	})
	require.NoError(t, err)
	require.NoError(t, state.Lock())

	v, err := hero.GetTrait(state, inventoryTT)
	require.NoError(t, err)
	items, ok := v.Array()
	require.True(t, ok)
	require.Len(t, items, 1)
	s, ok := items[0].Str()
	require.True(t, ok)
	assert.Equal(t, "sword", s)
}

// S2 — a Mind-kind trait composed across two archetype bases builds a
// Convergence over the component minds' origin states, and an array-kind
// trait composed across the same bases concatenates with dedup.
func TestComposableMindTraitBuildsConvergence(t *testing.T) {
	freshWorld(t)

	mindTT := anamnesis.NewTraittype("mind", anamnesis.KindMind, true, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	inventoryTT := anamnesis.NewTraittype("inventory", anamnesis.KindArray, true, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{mindTT, inventoryTT}, nil, nil))

	villagerMind, err := anamnesis.NewMaterial(anamnesis.EidosMind(), anamnesis.EidosMind().OriginState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	require.NoError(t, villagerMind.OriginState().Lock())

	blacksmithMind, err := anamnesis.NewMaterial(anamnesis.EidosMind(), anamnesis.EidosMind().OriginState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	require.NoError(t, blacksmithMind.OriginState().Lock())

	villager := anamnesis.NewArchetype("Villager", nil, map[string]anamnesis.Value{
		"mind":      anamnesis.MindValue(villagerMind),
		"inventory": anamnesis.ArrayValue([]anamnesis.Value{anamnesis.StringValue("apprentice_token")}),
	})
	blacksmith := anamnesis.NewArchetype("Blacksmith", nil, map[string]anamnesis.Value{
		"mind":      anamnesis.MindValue(blacksmithMind),
		"inventory": anamnesis.ArrayValue([]anamnesis.Value{anamnesis.StringValue("basic_hammer"), anamnesis.StringValue("master_tools")}),
	})

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	state := world.OriginState()

	villageBlacksmith, err := state.AddBelief(anamnesis.BeliefTemplate{
		Label: strp("village_blacksmith"),
		Bases: []anamnesis.BaseRef{anamnesis.ArchetypeBase(villager), anamnesis.ArchetypeBase(blacksmith)},
	})
	require.NoError(t, err)
	require.NoError(t, state.Lock())

	invVal, err := villageBlacksmith.GetTrait(state, inventoryTT)
	require.NoError(t, err)
	items, ok := invVal.Array()
	require.True(t, ok)
	require.Len(t, items, 3)

	mindVal, err := villageBlacksmith.GetTrait(state, mindTT)
	require.NoError(t, err)
	composed, ok := mindVal.MindRef()
	require.True(t, ok)
	assert.Equal(t, anamnesis.MindKindConvergenceView, composed.Kind())

	conv, ok := composed.OriginState().(*anamnesis.ConvergenceState)
	require.True(t, ok)
	assert.Len(t, conv.Components(), 2)
}
