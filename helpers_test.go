package anamnesis_test

import (
	"testing"

	anamnesis "github.com/ashita-ai/anamnesis"
)

func strp(s string) *string { return &s }

func int64p(n int64) *int64 { return &n }

// freshWorld resets every registry before the test body runs and again once
// it completes, so each test starts from the two bootstrap singletons with
// no schema registered.
func freshWorld(t *testing.T) {
	t.Helper()
	anamnesis.ResetRegistries()
	t.Cleanup(anamnesis.ResetRegistries)
}
