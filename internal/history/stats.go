package history

import "math"

// Horizons are the forward-return windows tracked per case, shortest first.
var Horizons = [3]string{"1d", "3d", "7d"}

// HorizonStats aggregates returns at one horizon.
type HorizonStats struct {
	Label      string
	Mean       float64
	Dispersion float64 // population standard deviation
	PosRatio   float64 // fraction of positive returns
}

// Stats summarizes a case slice for the rule path and for prompts.
type Stats struct {
	Count       int
	DominantTag string
	Horizons    [3]HorizonStats
}

// Summarize computes per-horizon aggregates over cases.
func Summarize(cases []CaseRecord) Stats {
	st := Stats{Count: len(cases)}
	for i, label := range Horizons {
		st.Horizons[i].Label = label
	}
	if len(cases) == 0 {
		return st
	}
	st.DominantTag = dominantTag(cases)
	n := float64(len(cases))
	for i := range Horizons {
		var sum float64
		var pos int
		for _, c := range cases {
			r := returnAt(c, i)
			sum += r
			if r > 0 {
				pos++
			}
		}
		mean := sum / n
		var sq float64
		for _, c := range cases {
			d := returnAt(c, i) - mean
			sq += d * d
		}
		st.Horizons[i].Mean = mean
		st.Horizons[i].Dispersion = math.Sqrt(sq / n)
		st.Horizons[i].PosRatio = float64(pos) / n
	}
	return st
}

func returnAt(c CaseRecord, horizon int) float64 {
	switch horizon {
	case 0:
		return c.Return1D
	case 1:
		return c.Return3D
	default:
		return c.Return7D
	}
}

// dominantTag is the most frequent tag; ties break lexicographically so
// repeated runs over the same cases agree.
func dominantTag(cases []CaseRecord) string {
	counts := make(map[string]int)
	for _, c := range cases {
		counts[c.Tag]++
	}
	var best string
	bestN := 0
	for tag, n := range counts {
		if n > bestN || (n == bestN && tag < best) {
			best, bestN = tag, n
		}
	}
	return best
}
