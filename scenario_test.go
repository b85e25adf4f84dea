package anamnesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anamnesis "github.com/ashita-ai/anamnesis"
)

func mustColor(t *testing.T, b *anamnesis.Belief, state anamnesis.State, colorTT *anamnesis.Traittype) string {
	t.Helper()
	v, err := b.GetTrait(state, colorTT)
	require.NoError(t, err)
	s, ok := v.Str()
	require.True(t, ok, "expected a string color, got kind %v", v.Kind())
	return s
}

// S1 — red hammer vs. blue hammer, resolved to the blue branch, while the
// Convergence itself still reports the first (ta) branch's hammer.
func TestScenarioConvergenceResolution(t *testing.T) {
	freshWorld(t)

	colorTT := anamnesis.NewTraittype("color", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{colorTT}, nil, nil))

	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	state0 := world.OriginState()

	_, err = state0.AddBelief(anamnesis.BeliefTemplate{Label: strp("hammer"), Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("gray")}})
	require.NoError(t, err)
	_, err = state0.AddBelief(anamnesis.BeliefTemplate{Label: strp("anvil"), Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("black")}})
	require.NoError(t, err)
	_, err = state0.AddBelief(anamnesis.BeliefTemplate{Label: strp("tongs")})
	require.NoError(t, err)
	require.NoError(t, state0.Lock())

	taIface, err := state0.Branch(state0.GroundState(), 2)
	require.NoError(t, err)
	ta := taIface
	hammerTa, ok, err := ta.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = hammerTa.Replace(ta, anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("red")}})
	require.NoError(t, err)
	anvilTa, ok, err := ta.GetBeliefByLabel("anvil")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = anvilTa.Replace(ta, anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("rusty_black")}})
	require.NoError(t, err)
	require.NoError(t, ta.Lock())

	tbIface, err := state0.Branch(state0.GroundState(), 2)
	require.NoError(t, err)
	tb := tbIface
	hammerTb, ok, err := tb.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = hammerTb.Replace(tb, anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("blue")}})
	require.NoError(t, err)
	anvilTb, ok, err := tb.GetBeliefByLabel("anvil")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, tb.RemoveBeliefs(anvilTb.ID()))
	_, err = tb.AddBelief(anamnesis.BeliefTemplate{Label: strp("chisel")})
	require.NoError(t, err)
	require.NoError(t, tb.Lock())

	conv, err := anamnesis.NewConvergence(world, state0.GroundState(), []anamnesis.State{ta, tb}, 3)
	require.NoError(t, err)

	convHammer, ok, err := conv.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "red", mustColor(t, convHammer, conv, colorTT))

	resolved, err := conv.Branch(state0.GroundState(), 4)
	require.NoError(t, err)
	require.NoError(t, conv.RegisterResolution(tb))

	resolvedHammer, ok, err := resolved.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "blue", mustColor(t, resolvedHammer, resolved, colorTT))

	_, ok, err = resolved.GetBeliefByLabel("anvil")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = resolved.GetBeliefByLabel("chisel")
	require.NoError(t, err)
	assert.True(t, ok)
}

// S4 — a tracks overlay: a replaced belief shadows the tracked version, and
// removing the local replacement hides the subject entirely rather than
// falling back to the tracked version.
func TestScenarioTracksOverlay(t *testing.T) {
	freshWorld(t)

	colorTT := anamnesis.NewTraittype("color", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{colorTT}, nil, nil))

	coreMind, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	c1 := coreMind.OriginState()
	_, err = c1.AddBelief(anamnesis.BeliefTemplate{Label: strp("hammer"), Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("red")}})
	require.NoError(t, err)
	_, err = c1.AddBelief(anamnesis.BeliefTemplate{Label: strp("anvil"), Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("black")}})
	require.NoError(t, err)
	require.NoError(t, c1.Lock())

	t1Mind, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{Certainty: 1, Tracks: c1})
	require.NoError(t, err)
	t1 := t1Mind.OriginState()

	hammerT1, ok, err := t1.GetBeliefByLabel("hammer")
	require.NoError(t, err)
	require.True(t, ok)
	newHammer, err := hammerT1.Replace(t1, anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"color": anamnesis.StringValue("blue")}})
	require.NoError(t, err)

	beliefs, err := t1.GetBeliefs()
	require.NoError(t, err)
	require.Len(t, beliefs, 2)

	byLabel := map[string]*anamnesis.Belief{}
	for _, b := range beliefs {
		if b.Label() != nil {
			byLabel[*b.Label()] = b
		}
	}
	assert.Equal(t, "blue", mustColor(t, byLabel["hammer"], t1, colorTT))
	assert.Equal(t, "black", mustColor(t, byLabel["anvil"], t1, colorTT))

	require.NoError(t, t1.RemoveBeliefs(newHammer.ID()))
	beliefs, err = t1.GetBeliefs()
	require.NoError(t, err)
	require.Len(t, beliefs, 1)
	assert.Equal(t, "anvil", *beliefs[0].Label())
}

// S5 — rev_trait across a Convergence finds references to the same subject
// declared in either component.
func TestScenarioRevTraitAcrossConvergence(t *testing.T) {
	freshWorld(t)

	aboutTT := anamnesis.NewTraittype("@about", anamnesis.KindSubject, false, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{aboutTT}, nil, []anamnesis.BeliefTemplate{{Label: strp("village")}}))

	villageBelief, ok, err := anamnesis.EidosMind().OriginState().GetBeliefByLabel("village")
	require.NoError(t, err)
	require.True(t, ok)
	villageSubject := villageBelief.Subject()

	villagerMind, err := anamnesis.NewMaterial(anamnesis.EidosMind(), anamnesis.EidosMind().OriginState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	villagerState := villagerMind.OriginState()
	_, err = villagerState.AddBelief(anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"@about": anamnesis.SubjectValue(villageSubject)}})
	require.NoError(t, err)
	require.NoError(t, villagerState.Lock())

	blacksmithMind, err := anamnesis.NewMaterial(anamnesis.EidosMind(), anamnesis.EidosMind().OriginState(), anamnesis.StateOptions{Certainty: 1})
	require.NoError(t, err)
	blacksmithState := blacksmithMind.OriginState()
	_, err = blacksmithState.AddBelief(anamnesis.BeliefTemplate{Traits: map[string]anamnesis.Value{"@about": anamnesis.SubjectValue(villageSubject)}})
	require.NoError(t, err)
	require.NoError(t, blacksmithState.Lock())

	conv, err := anamnesis.NewConvergence(anamnesis.LogosMind(), nil, []anamnesis.State{villagerState, blacksmithState}, 0)
	require.NoError(t, err)

	results, err := conv.RevTrait(aboutTT, villageSubject)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

// S6 — temporal recall: a memory state anchored to an advanced ground
// state is the only branch tip returned by states_at_tt.
func TestScenarioTemporalRecall(t *testing.T) {
	freshWorld(t)

	require.NoError(t, anamnesis.Register([]*anamnesis.Traittype{
		anamnesis.NewTraittype("@about", anamnesis.KindSubject, false, anamnesis.ScopeSelf, anamnesis.ExposureInternal),
	}, nil, nil))

	hundred := int64(100)
	world, err := anamnesis.NewMaterial(anamnesis.LogosMind(), anamnesis.LogosState(), anamnesis.StateOptions{TT: &hundred, VT: &hundred, Certainty: 1})
	require.NoError(t, err)
	w100 := world.OriginState()
	workshop, err := w100.AddBelief(anamnesis.BeliefTemplate{Label: strp("workshop")})
	require.NoError(t, err)
	require.NoError(t, w100.Lock())

	npcMind, err := anamnesis.NewMaterial(anamnesis.LogosMind(), w100, anamnesis.StateOptions{TT: &hundred, VT: &hundred, Certainty: 1})
	require.NoError(t, err)
	npcOrigin := npcMind.OriginState()
	require.NoError(t, anamnesis.LearnAbout(npcOrigin, workshop, nil, nil))
	require.NoError(t, npcOrigin.Lock())

	w200Iface, err := w100.Branch(w100.GroundState(), 200)
	require.NoError(t, err)
	w200 := w200Iface
	require.NoError(t, w200.Lock())

	npcMemory, err := npcOrigin.Branch(w200, 100)
	require.NoError(t, err)
	require.NoError(t, npcMemory.Lock())

	tips, err := npcMind.StatesAtTT(w200, 200)
	require.NoError(t, err)
	require.Len(t, tips, 1)
	assert.Equal(t, npcMemory.ID(), tips[0].ID())
}
