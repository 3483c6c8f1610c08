package monitor

import (
	"math"
	"slices"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

const (
	// MaxSoilPH is the upper bound of Measurement.SoilPH in hundredths of a
	// pH unit.
	MaxSoilPH int64 = 1400

	// MaxInitialDepth keeps depth × 100 within int64.
	MaxInitialDepth int64 = math.MaxInt64 / 100

	// MaxGardenSize and MaxCostPerUnit keep garden size × cost per unit
	// within int64.
	MaxGardenSize  int64 = 1_000_000_000_000
	MaxCostPerUnit int64 = math.MaxInt64 / MaxGardenSize

	// PatternMonths is the length of a nutrient-release pattern.
	PatternMonths = 12

	// DefaultThreshold is the remaining-depth percentage at or below which a
	// replacement notification is raised.
	DefaultThreshold int64 = 30

	// DefaultCostPerUnit is the replacement cost per unit of garden size, in
	// hundredths of a currency minor unit.
	DefaultCostPerUnit int64 = 50

	// ActionReplacementNeeded is the recommended action of a threshold alert.
	ActionReplacementNeeded = "replacement-needed"
)

// Garden is a monitored garden bed.
type Garden struct {
	ID              ledger.ID       `json:"id"`
	Owner           ledger.Identity `json:"owner"`
	Location        string          `json:"location"`
	MulchType       string          `json:"mulch_type"`
	InitialDepth    int64           `json:"initial_depth"`
	ApplicationDate int64           `json:"application_date"`
	GardenSize      int64           `json:"garden_size"`
	SoilType        string          `json:"soil_type"`
	Active          bool            `json:"active"`
	CreatedAt       int64           `json:"created_at"`
}

// MeasurementInput carries the observed values of one measurement.
type MeasurementInput struct {
	Date              int64 `json:"measurement_date"`
	CurrentDepth      int64 `json:"current_depth"`
	DecompositionRate int64 `json:"decomposition_rate"`
	SoilPH            int64 `json:"soil_ph"` // hundredths
	MoistureLevel     int64 `json:"moisture_level"`
	NutrientRelease   int64 `json:"nutrient_release"`
	WeedSuppression   int64 `json:"weed_suppression"`
}

// Measurement is a recorded observation, keyed by (GardenID, Seq).
type Measurement struct {
	GardenID   ledger.ID       `json:"garden_id"`
	Seq        int64           `json:"seq"`
	RecordedBy ledger.Identity `json:"recorded_by"`
	MeasurementInput
}

// RateProfile describes how a mulch type decays.
type RateProfile struct {
	MulchType                string  `json:"mulch_type"`
	ExpectedMonthlyRate      int64   `json:"expected_monthly_rate"`
	NutrientReleasePattern   []int64 `json:"nutrient_release_pattern"`
	OptimalReplacementMonths int64   `json:"optimal_replacement_months"`
	SoilImprovementFactor    int64   `json:"soil_improvement_factor"`
}

func (p RateProfile) clone() RateProfile {
	cp := p
	cp.NutrientReleasePattern = slices.Clone(p.NutrientReleasePattern)
	return cp
}

// Notification is a replacement alert for a garden.
type Notification struct {
	ID                ledger.ID `json:"id"`
	GardenID          ledger.ID `json:"garden_id"`
	Date              int64     `json:"notification_date"`
	CurrentDepth      int64     `json:"current_depth"`
	RemainingPercent  int64     `json:"remaining_percent"`
	Threshold         int64     `json:"threshold"`
	RecommendedAction string    `json:"recommended_action"`
	UrgencyLevel      int64     `json:"urgency_level"`
	EstimatedCost     int64     `json:"estimated_cost"`
	Acknowledged      bool      `json:"acknowledged"`
}

func percentInRange(v int64) bool {
	return v >= 0 && v <= 100
}
