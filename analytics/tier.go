/*
tier.go - FYP/APE tier classification

PURPOSE:
  Bands a yearly FYP or APE amount into one of five fixed monetary ranges.
  Boundaries are lower-inclusive: exactly 50,000 falls in the second band,
  not the first. The same bands apply to FYP and APE, per year, per agent.

BANDS:
  [0, 50k)  [50k, 100k)  [100k, 300k)  [300k, 500k)  [500k, +inf)
*/
package analytics

import "github.com/shopspring/decimal"

// TierBand is one of the five fixed FYP/APE bands, ordered low to high.
type TierBand int

const (
	Tier0to5w TierBand = iota
	Tier5to10w
	Tier10to30w
	Tier30to50w
	Tier50wPlus
)

var tierBounds = []decimal.Decimal{
	decimal.NewFromInt(50_000),
	decimal.NewFromInt(100_000),
	decimal.NewFromInt(300_000),
	decimal.NewFromInt(500_000),
}

var tierLabels = []string{"0-5w", "5-10w", "10-30w", "30-50w", "50w+"}

// TierOf classifies an amount into its band. Negative amounts land in the
// lowest band; the source data treats missing values as zero upstream.
func TierOf(amount decimal.Decimal) TierBand {
	for i, bound := range tierBounds {
		if amount.LessThan(bound) {
			return TierBand(i)
		}
	}
	return Tier50wPlus
}

// Label returns the band's display label. A value outside the defined bands
// labels as UnknownGroup so a miswired band is visible in grouped output
// instead of masquerading as the lowest tier.
func (t TierBand) Label() string {
	if t < 0 || int(t) >= len(tierLabels) {
		return UnknownGroup
	}
	return tierLabels[t]
}

// TierLabels returns all band labels, low to high.
func TierLabels() []string {
	out := make([]string, len(tierLabels))
	copy(out, tierLabels)
	return out
}
