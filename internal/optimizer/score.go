package optimizer

import "math"

const (
	savingsWeight = 0.7
	timeWeight    = 0.3
)

// Score rates a selection against the baseline selection on a 0 to 100
// scale. Savings are normalized by the baseline cost and map into [0,1]
// with no savings at 0.5; time efficiency is baselineTime/totalTime capped
// at 1. The score never decreases as savings grow.
func Score(savings, baselineCost float64, baselineMinutes, totalMinutes int) float64 {
	s := 0.5
	if baselineCost > 0 {
		s = 0.5 + 0.5*clamp(savings/baselineCost, -1, 1)
	}
	t := 1.0
	if totalMinutes > 0 {
		t = clamp(float64(baselineMinutes)/float64(totalMinutes), 0, 1)
	}
	return round2(clamp(100*(savingsWeight*s+timeWeight*t), 0, 100))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
