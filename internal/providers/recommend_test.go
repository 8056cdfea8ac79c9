package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommend_SeasonFilters(t *testing.T) {
	recs := Recommend(LocationData{Season: "rabi"}, 10)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.NotEqual(t, "rice", r.Name, "rice is kharif-only")
		assert.NotEqual(t, "cotton", r.Name, "cotton is kharif-only")
	}
}

func TestRecommend_HighRainfallFavorsRice(t *testing.T) {
	recs := Recommend(LocationData{Season: "kharif", RainfallMM: 1500, SoilPH: 6.5}, 3)
	require.NotEmpty(t, recs)
	assert.Equal(t, "rice", recs[0].Name)
	assert.Equal(t, float64(100), recs[0].Suitability)
}

func TestRecommend_LowRainfallPenalizesRice(t *testing.T) {
	recs := Recommend(LocationData{Season: "kharif", RainfallMM: 400}, 10)
	var rice, maize float64
	for _, r := range recs {
		switch r.Name {
		case "rice":
			rice = r.Suitability
		case "maize":
			maize = r.Suitability
		}
	}
	assert.Greater(t, maize, rice)
}

func TestRecommend_LimitApplied(t *testing.T) {
	recs := Recommend(LocationData{}, 2)
	assert.Len(t, recs, 2)
}

func TestRecommend_DefaultLimit(t *testing.T) {
	recs := Recommend(LocationData{}, 0)
	assert.Len(t, recs, 3)
}

func TestRecommend_UnknownFactsScoreNeutral(t *testing.T) {
	recs := Recommend(LocationData{}, 10)
	require.NotEmpty(t, recs)
	for _, r := range recs {
		assert.Equal(t, float64(100), r.Suitability)
	}
}

func TestRecommend_SortedDescending(t *testing.T) {
	recs := Recommend(LocationData{Season: "kharif", RainfallMM: 600, SoilPH: 5.2}, 10)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Suitability, recs[i].Suitability)
	}
}
