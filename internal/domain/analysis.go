package domain

import "fmt"

type Saturation string

const (
	SaturationLow    Saturation = "low"
	SaturationMedium Saturation = "medium"
	SaturationHigh   Saturation = "high"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// MarketAnalysis is built fresh for every request and never stored.
type MarketAnalysis struct {
	Location            Location       `json:"location"`
	Radius              int            `json:"radius"`
	CompetitorCount     int            `json:"competitorCount"`
	AverageRating       float64        `json:"averageRating"`
	PriceDistribution   map[string]int `json:"priceDistribution"`
	CuisineDistribution map[string]int `json:"cuisineDistribution"`
	MarketSaturation    Saturation     `json:"marketSaturation"`
	OpportunityScore    int            `json:"opportunityScore"`
	Recommendations     []string       `json:"recommendations"`
	DataSource          string         `json:"dataSource"` // live|fallback
}

// Policy holds the scoring constants. They are heuristics, not measured
// values, and can be overridden from YAML.
type Policy struct {
	AnalysisCap int `yaml:"analysis_cap"`

	// density thresholds in restaurants per km²
	LowDensity  float64 `yaml:"low_density"`
	HighDensity float64 `yaml:"high_density"`

	BaseScore           int     `yaml:"base_score"`
	LowSaturationBonus  int     `yaml:"low_saturation_bonus"`
	HighSaturationCost  int     `yaml:"high_saturation_penalty"`
	LowRatingThreshold  float64 `yaml:"low_rating_threshold"`
	LowRatingBonus      int     `yaml:"low_rating_bonus"`
	HighRatingThreshold float64 `yaml:"high_rating_threshold"`
	HighRatingCost      int     `yaml:"high_rating_penalty"`
	PriceGapShare       float64 `yaml:"price_gap_share"`
	PriceGapBonus       int     `yaml:"price_gap_bonus"`
	DominantCuisine     float64 `yaml:"dominant_cuisine_share"`
}

func DefaultPolicy() Policy {
	return Policy{
		AnalysisCap:         100,
		LowDensity:          10,
		HighDensity:         25,
		BaseScore:           50,
		LowSaturationBonus:  20,
		HighSaturationCost:  20,
		LowRatingThreshold:  3.5,
		LowRatingBonus:      15,
		HighRatingThreshold: 4.5,
		HighRatingCost:      10,
		PriceGapShare:       0.15,
		PriceGapBonus:       5,
		DominantCuisine:     0.30,
	}
}

func (p Policy) Validate() error {
	if p.AnalysisCap <= 0 {
		return fmt.Errorf("analysis_cap must be > 0")
	}
	if p.LowDensity < 0 || p.HighDensity < p.LowDensity {
		return fmt.Errorf("density thresholds must satisfy 0 <= low_density <= high_density")
	}
	if p.LowRatingThreshold > p.HighRatingThreshold {
		return fmt.Errorf("low_rating_threshold must not exceed high_rating_threshold")
	}
	if p.PriceGapShare < 0 || p.PriceGapShare > 1 {
		return fmt.Errorf("price_gap_share must be within [0,1]")
	}
	if p.DominantCuisine <= 0 || p.DominantCuisine > 1 {
		return fmt.Errorf("dominant_cuisine_share must be within (0,1]")
	}
	return nil
}
