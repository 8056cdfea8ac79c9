package providers

import (
	"sort"
	"strings"
)

// LocationData is the input to crop recommendation: whatever soil and
// climate facts are known for the user's area. Zero values mean unknown
// and are scored neutrally.
type LocationData struct {
	SoilPH     float64 `json:"soil_ph"`
	RainfallMM float64 `json:"rainfall_mm"` // expected seasonal rainfall
	Season     string  `json:"season"`      // kharif, rabi, zaid
	State      string  `json:"state"`
}

// Recommendation is one suitable crop with a 0–100 suitability score.
type Recommendation struct {
	Name        string  `json:"name"`
	Suitability float64 `json:"suitability"`
	Description string  `json:"description"`
	Benefits    string  `json:"benefits"`
}

type cropProfile struct {
	name        string
	phMin       float64
	phMax       float64
	rainMin     float64
	rainMax     float64
	seasons     []string
	description string
	benefits    string
}

var cropProfiles = []cropProfile{
	{
		name: "rice", phMin: 5.0, phMax: 7.5, rainMin: 1000, rainMax: 2500,
		seasons:     []string{"kharif"},
		description: "Water-intensive staple suited to clayey soils and assured irrigation.",
		benefits:    "Strong procurement support and assured local demand.",
	},
	{
		name: "wheat", phMin: 6.0, phMax: 8.0, rainMin: 300, rainMax: 900,
		seasons:     []string{"rabi"},
		description: "Cool-season cereal for loamy soils with moderate irrigation.",
		benefits:    "Stable minimum support price and mechanized harvesting.",
	},
	{
		name: "cotton", phMin: 6.0, phMax: 8.5, rainMin: 500, rainMax: 1100,
		seasons:     []string{"kharif"},
		description: "Long-duration fiber crop for deep black soils.",
		benefits:    "High cash value when boll damage is controlled.",
	},
	{
		name: "chickpea", phMin: 6.0, phMax: 9.0, rainMin: 250, rainMax: 650,
		seasons:     []string{"rabi"},
		description: "Drought-tolerant pulse that fixes nitrogen in residual moisture.",
		benefits:    "Low input cost and improves soil fertility for the next crop.",
	},
	{
		name: "maize", phMin: 5.5, phMax: 7.5, rainMin: 500, rainMax: 1200,
		seasons:     []string{"kharif", "rabi", "zaid"},
		description: "Versatile cereal adapted to most soils with good drainage.",
		benefits:    "Growing feed-industry demand and short duration.",
	},
	{
		name: "mustard", phMin: 6.0, phMax: 8.5, rainMin: 250, rainMax: 600,
		seasons:     []string{"rabi"},
		description: "Oilseed for light soils with minimal irrigation needs.",
		benefits:    "Quick returns and intercrops well with chickpea.",
	},
}

// Recommend scores the crop table against the given location data and
// returns the top crops, best first. Pure function of its input.
func Recommend(data LocationData, limit int) []Recommendation {
	if limit <= 0 {
		limit = 3
	}

	season := strings.ToLower(strings.TrimSpace(data.Season))

	recs := make([]Recommendation, 0, len(cropProfiles))
	for _, p := range cropProfiles {
		score := 100.0

		if season != "" && !containsSeason(p.seasons, season) {
			continue
		}
		if data.SoilPH > 0 {
			score -= rangePenalty(data.SoilPH, p.phMin, p.phMax, 20)
		}
		if data.RainfallMM > 0 {
			score -= rangePenalty(data.RainfallMM, p.rainMin, p.rainMax, 0.08)
		}
		if score < 0 {
			score = 0
		}

		recs = append(recs, Recommendation{
			Name:        p.name,
			Suitability: score,
			Description: p.description,
			Benefits:    p.benefits,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Suitability > recs[j].Suitability
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// rangePenalty charges perUnit points for each unit outside [min, max].
func rangePenalty(val, min, max, perUnit float64) float64 {
	switch {
	case val < min:
		return (min - val) * perUnit
	case val > max:
		return (val - max) * perUnit
	default:
		return 0
	}
}

func containsSeason(seasons []string, s string) bool {
	for _, v := range seasons {
		if v == s {
			return true
		}
	}
	return false
}
