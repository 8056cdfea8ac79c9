package providers

import "strings"

// DiseaseEntry describes one known crop disease with symptom keywords.
type DiseaseEntry struct {
	Disease   string   `json:"disease"`
	Symptoms  []string `json:"symptoms"`
	Treatment string   `json:"treatment"`
}

// Diagnosis is a symptom-matched disease with a confidence bucket.
type Diagnosis struct {
	Disease    string `json:"disease"`
	Treatment  string `json:"treatment"`
	Confidence string `json:"confidence"` // high, medium, low
	Matched    int    `json:"matched_symptoms"`
}

// Common diseases by crop, keyed on lower-case crop name. A lookup table,
// not a model: the spoken description is matched against symptom keywords.
var diseaseIndex = map[string][]DiseaseEntry{
	"rice": {
		{
			Disease:   "blast",
			Symptoms:  []string{"spindle", "lesion", "grey center", "leaf spot", "neck rot"},
			Treatment: "Spray tricyclazole 75 WP at 0.6 g per litre and avoid excess nitrogen.",
		},
		{
			Disease:   "bacterial leaf blight",
			Symptoms:  []string{"yellow", "wilting", "water soaked", "leaf tip", "drying"},
			Treatment: "Use resistant varieties, drain the field, spray copper oxychloride.",
		},
	},
	"wheat": {
		{
			Disease:   "yellow rust",
			Symptoms:  []string{"yellow stripe", "powder", "pustule", "stripe"},
			Treatment: "Spray propiconazole 25 EC at 0.1 percent at first appearance.",
		},
		{
			Disease:   "loose smut",
			Symptoms:  []string{"black powder", "ear head", "smut"},
			Treatment: "Treat seed with carboxin before sowing; remove infected ear heads.",
		},
	},
	"cotton": {
		{
			Disease:   "bollworm infestation",
			Symptoms:  []string{"holes", "boll", "caterpillar", "larvae", "flower drop"},
			Treatment: "Install pheromone traps and spray neem-based formulations early.",
		},
		{
			Disease:   "leaf curl",
			Symptoms:  []string{"curl", "upward", "thickened vein", "stunted"},
			Treatment: "Control whitefly vectors with yellow sticky traps and imidacloprid.",
		},
	},
	"tomato": {
		{
			Disease:   "early blight",
			Symptoms:  []string{"concentric ring", "brown spot", "lower leaves", "target"},
			Treatment: "Remove infected leaves and spray mancozeb at 2.5 g per litre.",
		},
		{
			Disease:   "leaf curl virus",
			Symptoms:  []string{"curl", "yellow", "stunted", "small leaves"},
			Treatment: "Rogue infected plants and control whitefly; use virus-free seedlings.",
		},
	},
}

// Diagnose matches a spoken symptom description against the disease index
// for a crop. Returns nil when the crop is unknown or nothing matches.
func Diagnose(crop, symptomText string) *Diagnosis {
	entries, ok := diseaseIndex[strings.ToLower(strings.TrimSpace(crop))]
	if !ok {
		return nil
	}

	text := strings.ToLower(symptomText)
	var best *Diagnosis
	for _, e := range entries {
		matched := 0
		for _, s := range e.Symptoms {
			if strings.Contains(text, s) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		if best == nil || matched > best.Matched {
			best = &Diagnosis{
				Disease:    e.Disease,
				Treatment:  e.Treatment,
				Confidence: confidenceBucket(matched),
				Matched:    matched,
			}
		}
	}
	return best
}

func confidenceBucket(matched int) string {
	switch {
	case matched >= 3:
		return "high"
	case matched == 2:
		return "medium"
	default:
		return "low"
	}
}

// KnownCrops lists the crops present in the disease index.
func KnownCrops() []string {
	crops := make([]string, 0, len(diseaseIndex))
	for c := range diseaseIndex {
		crops = append(crops, c)
	}
	return crops
}
