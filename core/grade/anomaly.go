package grade

import (
	"fmt"
	"math"

	"github.com/trezcool/scolarite/core"
)

// Thresholds tune anomaly detection.
type Thresholds struct {
	// MaxExcellenceRate flags records whose excellence rate is above it (percent).
	MaxExcellenceRate float64
	// MinPassRate flags records whose pass rate is below it (percent).
	MinPassRate float64
	// FluctuationDelta flags scores that differ from the student's historical average by more than it (points).
	FluctuationDelta float64
}

func NewThresholds(conf core.AuditConfig) Thresholds {
	return Thresholds{
		MaxExcellenceRate: conf.MaxExcellenceRate,
		MinPassRate:       conf.MinPassRate,
		FluctuationDelta:  conf.FluctuationDelta,
	}
}

// DetectAnomalies flags the record-level anomalies of a record's statistics.
func DetectAnomalies(gradeID string, stats Statistics, th Thresholds) []AnomalyRecord {
	var found []AnomalyRecord
	if stats.Count == 0 {
		return found
	}
	if stats.ExcellenceRate > th.MaxExcellenceRate {
		found = append(found, AnomalyRecord{
			GradeID:   gradeID,
			Type:      AnomalyHighExcellent,
			Value:     stats.ExcellenceRate,
			Threshold: th.MaxExcellenceRate,
			Detail:    fmt.Sprintf("excellence rate %.1f%% is above %.1f%%", stats.ExcellenceRate, th.MaxExcellenceRate),
		})
	}
	if stats.PassRate < th.MinPassRate {
		found = append(found, AnomalyRecord{
			GradeID:   gradeID,
			Type:      AnomalyLowPass,
			Value:     stats.PassRate,
			Threshold: th.MinPassRate,
			Detail:    fmt.Sprintf("pass rate %.1f%% is below %.1f%%", stats.PassRate, th.MinPassRate),
		})
	}
	return found
}

// Baselines maps a student id to the average of their past scores.
type Baselines map[string]float64

// NewBaselines averages each student's scores over the given records.
func NewBaselines(records []GradeRecord) Baselines {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		for _, s := range rec.Scores {
			sums[s.StudentID] += s.Score
			counts[s.StudentID]++
		}
	}
	b := make(Baselines, len(sums))
	for id, sum := range sums {
		b[id] = round1(sum / float64(counts[id]))
	}
	return b
}

// DetectFluctuations flags the scores of rec that differ from the student's baseline by more than delta.
// Students without history are never flagged.
func DetectFluctuations(rec GradeRecord, baselines Baselines, delta float64) []AnomalyRecord {
	var found []AnomalyRecord
	for _, s := range rec.Scores {
		avg, ok := baselines[s.StudentID]
		if !ok {
			continue
		}
		if diff := math.Abs(s.Score - avg); diff > delta {
			found = append(found, AnomalyRecord{
				GradeID:   rec.ID,
				Type:      AnomalyScoreFluctuation,
				StudentID: s.StudentID,
				Value:     s.Score,
				Threshold: delta,
				Detail:    fmt.Sprintf("score %.1f is %.1f points away from the average %.1f", s.Score, round1(diff), avg),
			})
		}
	}
	return found
}

// anomalyType summarises a record's anomalies in a single type; record-level ones win.
func anomalyType(found []AnomalyRecord) string {
	var typ string
	for _, a := range found {
		if a.StudentID == "" {
			return a.Type
		}
		typ = a.Type
	}
	return typ
}
