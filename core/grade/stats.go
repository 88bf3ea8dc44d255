package grade

import "math"

// Score bands, in points.
const (
	PassMark       = 60
	GoodMark       = 80
	AverageMark    = 70
	ExcellenceMark = 90
)

// ComputeStatistics derives the statistics of a score list. An empty list yields zeros.
func ComputeStatistics(scores []float64) Statistics {
	n := len(scores)
	if n == 0 {
		return Statistics{}
	}

	var (
		sum                           float64
		pass, excellent, good, middle int
	)
	max, min := scores[0], scores[0]
	for _, s := range scores {
		sum += s
		if s > max {
			max = s
		}
		if s < min {
			min = s
		}
		switch {
		case s >= ExcellenceMark:
			excellent++
		case s >= GoodMark:
			good++
		case s >= AverageMark:
			middle++
		}
		if s >= PassMark {
			pass++
		}
	}

	rate := func(count int) float64 {
		return round1(float64(count) * 100 / float64(n))
	}
	return Statistics{
		Count:          n,
		Mean:           round1(sum / float64(n)),
		Max:            round1(max),
		Min:            round1(min),
		PassRate:       rate(pass),
		ExcellenceRate: rate(excellent),
		GoodRate:       rate(good),
		AverageRate:    rate(middle),
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
