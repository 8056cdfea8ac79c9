package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnose_MatchesBestEntry(t *testing.T) {
	d := Diagnose("rice", "leaves have grey center lesion shaped like a spindle")
	require.NotNil(t, d)
	assert.Equal(t, "blast", d.Disease)
	assert.Equal(t, "high", d.Confidence)
	assert.NotEmpty(t, d.Treatment)
}

func TestDiagnose_CaseInsensitiveCrop(t *testing.T) {
	d := Diagnose("  Wheat ", "yellow stripe powder on leaves")
	require.NotNil(t, d)
	assert.Equal(t, "yellow rust", d.Disease)
}

func TestDiagnose_SingleSymptomLowConfidence(t *testing.T) {
	d := Diagnose("tomato", "plants look stunted")
	require.NotNil(t, d)
	assert.Equal(t, "low", d.Confidence)
}

func TestDiagnose_UnknownCrop(t *testing.T) {
	assert.Nil(t, Diagnose("dragonfruit", "yellow spots"))
}

func TestDiagnose_NoSymptomMatch(t *testing.T) {
	assert.Nil(t, Diagnose("rice", "the tractor will not start"))
}

func TestKnownCrops(t *testing.T) {
	crops := KnownCrops()
	assert.Contains(t, crops, "rice")
	assert.Contains(t, crops, "wheat")
}
