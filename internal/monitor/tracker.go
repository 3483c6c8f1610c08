package monitor

import (
	"slices"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// DecompositionTracker records mulch measurements per garden.
//
// Measurements for one garden form an append-only series in which dates never
// decrease and depths never increase.
type DecompositionTracker struct {
	gardens *GardenRegistry
	series  map[ledger.ID][]Measurement
}

// NewDecompositionTracker creates a tracker resolving gardens through reg.
func NewDecompositionTracker(reg *GardenRegistry) *DecompositionTracker {
	return &DecompositionTracker{
		gardens: reg,
		series:  make(map[ledger.ID][]Measurement),
	}
}

// Record appends a measurement for the garden and returns its sequence
// number within that garden (starting at 1).
func (t *DecompositionTracker) Record(env ledger.Env, gardenID ledger.ID, in MeasurementInput) (int64, error) {
	if err := env.Validate(); err != nil {
		return 0, err
	}
	g, err := t.gardens.active(gardenID)
	if err != nil {
		return 0, err
	}
	if g.Owner != env.Caller {
		return 0, ledger.Errorf(ledger.CodeUnauthorized, "%s does not own garden %d", env.Caller, gardenID)
	}

	prevDate, prevDepth := g.ApplicationDate, g.InitialDepth
	series := t.series[gardenID]
	if n := len(series); n > 0 {
		prevDate, prevDepth = series[n-1].Date, series[n-1].CurrentDepth
	}
	switch {
	case in.Date < g.ApplicationDate:
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement,
			"measurement date %d precedes application date %d", in.Date, g.ApplicationDate)
	case in.Date < prevDate:
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement,
			"measurement date %d precedes previous measurement at %d", in.Date, prevDate)
	case in.CurrentDepth < 0:
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "depth %d is negative", in.CurrentDepth)
	case in.CurrentDepth > prevDepth:
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement,
			"depth %d exceeds previous depth %d", in.CurrentDepth, prevDepth)
	case !percentInRange(in.DecompositionRate):
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "decomposition rate %d outside [0, 100]", in.DecompositionRate)
	case !percentInRange(in.MoistureLevel):
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "moisture level %d outside [0, 100]", in.MoistureLevel)
	case !percentInRange(in.NutrientRelease):
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "nutrient release %d outside [0, 100]", in.NutrientRelease)
	case !percentInRange(in.WeedSuppression):
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "weed suppression %d outside [0, 100]", in.WeedSuppression)
	case in.SoilPH < 0 || in.SoilPH > MaxSoilPH:
		return 0, ledger.Errorf(ledger.CodeInvalidMeasurement, "soil pH %d outside [0, %d]", in.SoilPH, MaxSoilPH)
	}

	seq := int64(len(series)) + 1
	t.series[gardenID] = append(series, Measurement{
		GardenID:         gardenID,
		Seq:              seq,
		RecordedBy:       env.Caller,
		MeasurementInput: in,
	})
	return seq, nil
}

// Latest returns the most recent measurement for the garden. It fails with
// CodeNotFound if the garden does not exist or has no measurements.
func (t *DecompositionTracker) Latest(gardenID ledger.ID) (Measurement, error) {
	if _, err := t.gardens.Get(gardenID); err != nil {
		return Measurement{}, err
	}
	series := t.series[gardenID]
	if len(series) == 0 {
		return Measurement{}, ledger.Errorf(ledger.CodeNotFound, "garden %d has no measurements", gardenID)
	}
	return series[len(series)-1], nil
}

// CurrentDepth returns the latest recorded depth, or the initial depth if the
// garden has not been measured yet.
func (t *DecompositionTracker) CurrentDepth(gardenID ledger.ID) (int64, error) {
	g, err := t.gardens.Get(gardenID)
	if err != nil {
		return 0, err
	}
	if series := t.series[gardenID]; len(series) > 0 {
		return series[len(series)-1].CurrentDepth, nil
	}
	return g.InitialDepth, nil
}

// List returns the garden's measurements in recording order.
func (t *DecompositionTracker) List(gardenID ledger.ID) ([]Measurement, error) {
	if _, err := t.gardens.Get(gardenID); err != nil {
		return nil, err
	}
	return slices.Clone(t.series[gardenID]), nil
}

func (t *DecompositionTracker) clone(gardens *GardenRegistry) *DecompositionTracker {
	cp := &DecompositionTracker{
		gardens: gardens,
		series:  make(map[ledger.ID][]Measurement, len(t.series)),
	}
	for id, s := range t.series {
		cp.series[id] = slices.Clone(s)
	}
	return cp
}
