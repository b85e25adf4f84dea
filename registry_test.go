package anamnesis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anamnesis "github.com/ashita-ai/anamnesis"
)

func TestRegisterSeedsAndLocksEidosOrigin(t *testing.T) {
	freshWorld(t)

	greeting := anamnesis.NewTraittype("greeting", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureInternal)
	err := anamnesis.Register(
		[]*anamnesis.Traittype{greeting},
		nil,
		[]anamnesis.BeliefTemplate{{Label: strp("shared_prototype")}},
	)
	require.NoError(t, err)

	origin := anamnesis.EidosMind().OriginState()
	assert.True(t, origin.Locked())

	b, ok, err := origin.GetBeliefByLabel("shared_prototype")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, b)

	// The origin being locked means the schema phase is over: a second
	// insert must fail.
	_, err = origin.AddBelief(anamnesis.BeliefTemplate{Label: strp("late")})
	assert.Error(t, err)
}

func TestRegisterRejectsSecondCallWithoutReset(t *testing.T) {
	freshWorld(t)

	require.NoError(t, anamnesis.Register(nil, nil, nil))
	err := anamnesis.Register(nil, nil, nil)
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateLabels(t *testing.T) {
	freshWorld(t)

	tt1 := anamnesis.NewTraittype("color", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	tt2 := anamnesis.NewTraittype("color", anamnesis.KindString, false, anamnesis.ScopeSelf, anamnesis.ExposureVisual)
	err := anamnesis.Register([]*anamnesis.Traittype{tt1, tt2}, nil, nil)
	assert.Error(t, err)
}

func TestResetRegistriesRebuildsSingletons(t *testing.T) {
	freshWorld(t)

	require.NoError(t, anamnesis.Register(nil, nil, nil))
	logosBefore := anamnesis.LogosMind().ID()
	eidosBefore := anamnesis.EidosMind().ID()

	anamnesis.ResetRegistries()

	assert.NotNil(t, anamnesis.LogosMind())
	assert.NotNil(t, anamnesis.EidosMind())
	assert.NotNil(t, anamnesis.LogosState())
	// A fresh bootstrap is free to reuse low ids; what matters is that
	// Register is usable again, i.e. the "registered" flag was cleared.
	_ = logosBefore
	_ = eidosBefore
	require.NoError(t, anamnesis.Register(nil, nil, nil))
}
