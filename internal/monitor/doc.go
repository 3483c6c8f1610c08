// Package monitor implements the decomposition-monitoring ledger: gardens,
// their mulch depth measurements, per-mulch-type decay profiles and
// replacement notifications.
//
// Depths and percentages are integers. Soil pH is stored in hundredths
// (0-1400). Lifespan projections are exact decimals truncated to hundredths
// of a month.
package monitor
