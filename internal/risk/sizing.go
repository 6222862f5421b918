package risk

// MaxKellyFraction caps the bet fraction regardless of edge.
const MaxKellyFraction = 0.20

// KellyFraction returns the half-Kelly bet fraction for win probability p
// and payoff ratio b, clipped to [0, MaxKellyFraction].
func KellyFraction(p, b float64) float64 {
	if b <= 0 || p <= 0 {
		return 0
	}
	if p > 1 {
		p = 1
	}
	q := 1 - p
	half := 0.5 * (b*p - q) / b
	if half < 0 {
		return 0
	}
	if half > MaxKellyFraction {
		return MaxKellyFraction
	}
	return half
}

// KellyNotional converts available capital into a position notional using
// the half-Kelly fraction.
func KellyNotional(capital, p, b float64) float64 {
	if capital <= 0 {
		return 0
	}
	return capital * KellyFraction(p, b)
}
