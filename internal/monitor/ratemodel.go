package monitor

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// lifespanContext performs lifespan arithmetic. Results are quantized to
// hundredths of a month, truncating toward zero.
var lifespanContext = func() *apd.Context {
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundDown
	return ctx
}()

// maxLifespan is the largest lifespan a Lifespan can hold.
var maxLifespan = Lifespan{hundredths: math.MaxInt64}

// Lifespan is an expected mulch lifespan in months, exact to the hundredth.
type Lifespan struct {
	hundredths int64
}

// Hundredths returns the lifespan in hundredths of a month (4.8 → 480).
func (l Lifespan) Hundredths() int64 { return l.hundredths }

// Decimal returns the lifespan as an exact decimal.
func (l Lifespan) Decimal() *apd.Decimal {
	return apd.New(l.hundredths, -2)
}

// String renders the lifespan without trailing zeros, e.g. "4.8".
func (l Lifespan) String() string {
	s := l.Decimal().Text('f')
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// RateModel holds the decay profile of each mulch type.
type RateModel struct {
	admin    ledger.Identity
	profiles map[string]RateProfile
}

// NewRateModel creates an empty model administered by admin.
func NewRateModel(admin ledger.Identity) *RateModel {
	return &RateModel{admin: admin, profiles: make(map[string]RateProfile)}
}

// SetRateProfile installs or replaces the profile for p.MulchType.
// Administrator only.
func (m *RateModel) SetRateProfile(env ledger.Env, p RateProfile) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if env.Caller != m.admin {
		return ledger.Errorf(ledger.CodeUnauthorized, "%s may not set rate profiles", env.Caller)
	}
	if err := ValidateProfile(p); err != nil {
		return err
	}
	m.profiles[p.MulchType] = p.clone()
	return nil
}

// ValidateProfile checks a profile's fields without installing it.
func ValidateProfile(p RateProfile) error {
	if strings.TrimSpace(p.MulchType) == "" {
		return ledger.Errorf(ledger.CodeInvalidProfile, "mulch type is required")
	}
	if p.ExpectedMonthlyRate <= 0 {
		return ledger.Errorf(ledger.CodeInvalidProfile, "expected monthly rate must be positive, got %d", p.ExpectedMonthlyRate)
	}
	if len(p.NutrientReleasePattern) != PatternMonths {
		return ledger.Errorf(ledger.CodeInvalidProfile,
			"nutrient release pattern needs %d entries, got %d", PatternMonths, len(p.NutrientReleasePattern))
	}
	for i, v := range p.NutrientReleasePattern {
		if !percentInRange(v) {
			return ledger.Errorf(ledger.CodeInvalidProfile, "nutrient release pattern[%d] = %d outside [0, 100]", i, v)
		}
	}
	if p.OptimalReplacementMonths <= 0 {
		return ledger.Errorf(ledger.CodeInvalidProfile,
			"optimal replacement months must be positive, got %d", p.OptimalReplacementMonths)
	}
	if !percentInRange(p.SoilImprovementFactor) {
		return ledger.Errorf(ledger.CodeInvalidProfile, "soil improvement factor %d outside [0, 100]", p.SoilImprovementFactor)
	}
	return nil
}

// Seed installs a profile from trusted configuration, bypassing the
// administrator check.
func (m *RateModel) Seed(p RateProfile) error {
	if err := ValidateProfile(p); err != nil {
		return err
	}
	m.profiles[p.MulchType] = p.clone()
	return nil
}

// Profile returns the profile for mulchType, if any.
func (m *RateModel) Profile(mulchType string) (RateProfile, bool) {
	p, ok := m.profiles[mulchType]
	if !ok {
		return RateProfile{}, false
	}
	return p.clone(), true
}

// MulchTypes returns the profiled mulch types in sorted order.
func (m *RateModel) MulchTypes() []string {
	out := make([]string, 0, len(m.profiles))
	for k := range m.profiles {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// ExpectedLifespanMonths computes (initialDepth × 12) / expectedMonthlyRate.
// The bool is false when no profile exists for mulchType.
func (m *RateModel) ExpectedLifespanMonths(initialDepth int64, mulchType string) (Lifespan, bool, error) {
	if initialDepth <= 0 {
		return Lifespan{}, false, ledger.Errorf(ledger.CodeInvalidDepth, "initial depth must be positive, got %d", initialDepth)
	}
	p, ok := m.profiles[mulchType]
	if !ok {
		return Lifespan{}, false, nil
	}

	var num, quo, months, scaled apd.Decimal
	if _, err := lifespanContext.Mul(&num, apd.New(initialDepth, 0), apd.New(12, 0)); err != nil {
		return Lifespan{}, false, fmt.Errorf("lifespan numerator: %w", err)
	}
	if _, err := lifespanContext.Quo(&quo, &num, apd.New(p.ExpectedMonthlyRate, 0)); err != nil {
		return Lifespan{}, false, fmt.Errorf("lifespan division: %w", err)
	}
	if _, err := lifespanContext.Quantize(&months, &quo, -2); err != nil {
		return Lifespan{}, false, fmt.Errorf("lifespan quantize: %w", err)
	}
	if _, err := lifespanContext.Mul(&scaled, &months, apd.New(100, 0)); err != nil {
		return Lifespan{}, false, fmt.Errorf("lifespan scale: %w", err)
	}
	h, err := scaled.Int64()
	if err != nil {
		return Lifespan{}, false, ledger.Errorf(ledger.CodeInvalidDepth,
			"lifespan of depth %d at rate %d exceeds %s months", initialDepth, p.ExpectedMonthlyRate, maxLifespan)
	}
	return Lifespan{hundredths: h}, true, nil
}

// NutrientRelease returns the pattern value for the month of cycle
// (monthsSinceApplication mod 12). The bool is false when no profile exists.
func (m *RateModel) NutrientRelease(mulchType string, monthsSinceApplication int64) (int64, bool, error) {
	if monthsSinceApplication < 0 {
		return 0, false, ledger.Errorf(ledger.CodeInvalidInput, "months since application must be non-negative, got %d", monthsSinceApplication)
	}
	p, ok := m.profiles[mulchType]
	if !ok {
		return 0, false, nil
	}
	return p.NutrientReleasePattern[monthsSinceApplication%PatternMonths], true, nil
}

func (m *RateModel) clone() *RateModel {
	cp := &RateModel{admin: m.admin, profiles: make(map[string]RateProfile, len(m.profiles))}
	for k, p := range m.profiles {
		cp.profiles[k] = p.clone()
	}
	return cp
}
