package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStatistics(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   Statistics
	}{
		{name: "empty", scores: nil, want: Statistics{}},
		{
			name:   "single perfect score",
			scores: []float64{100},
			want:   Statistics{Count: 1, Mean: 100, Max: 100, Min: 100, PassRate: 100, ExcellenceRate: 100},
		},
		{
			name:   "bands",
			scores: []float64{95, 85, 75, 65, 55},
			want: Statistics{
				Count: 5, Mean: 75, Max: 95, Min: 55,
				PassRate: 80, ExcellenceRate: 20, GoodRate: 20, AverageRate: 20,
			},
		},
		{
			name:   "band edges",
			scores: []float64{90, 80, 70, 60, 59.9},
			want: Statistics{
				Count: 5, Mean: 72, Max: 90, Min: 59.9,
				PassRate: 80, ExcellenceRate: 20, GoodRate: 20, AverageRate: 20,
			},
		},
		{
			name:   "one decimal",
			scores: []float64{82, 74, 91},
			want: Statistics{
				Count: 3, Mean: 82.3, Max: 91, Min: 74,
				PassRate: 100, ExcellenceRate: 33.3, GoodRate: 33.3, AverageRate: 33.3,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStatistics(tt.scores))
		})
	}
}

func TestDetectAnomalies(t *testing.T) {
	th := Thresholds{MaxExcellenceRate: 90, MinPassRate: 60, FluctuationDelta: 20}

	tests := []struct {
		name   string
		scores []float64
		want   []string
	}{
		{name: "no scores", want: nil},
		{name: "all excellent", scores: []float64{100}, want: []string{AnomalyHighExcellent}},
		{name: "all failing", scores: []float64{40}, want: []string{AnomalyLowPass}},
		{name: "half passing", scores: []float64{50, 80}, want: []string{AnomalyLowPass}},
		{name: "normal", scores: []float64{55, 65, 75, 85, 95}, want: nil},
		{name: "at the thresholds", scores: []float64{95, 95, 95, 95, 95, 95, 95, 95, 95, 50}, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found := DetectAnomalies("G1", ComputeStatistics(tt.scores), th)
			var types []string
			for _, a := range found {
				assert.Equal(t, "G1", a.GradeID)
				assert.Empty(t, a.StudentID)
				types = append(types, a.Type)
			}
			assert.Equal(t, tt.want, types)
		})
	}
}

func TestDetectFluctuations(t *testing.T) {
	past := []GradeRecord{
		{ID: "G1", Scores: []StudentScore{{StudentID: "S1", Score: 80}, {StudentID: "S2", Score: 60}}},
		{ID: "G2", Scores: []StudentScore{{StudentID: "S1", Score: 90}}},
	}
	baselines := NewBaselines(past)
	assert.Equal(t, Baselines{"S1": 85, "S2": 60}, baselines)

	rec := GradeRecord{ID: "G3", Scores: []StudentScore{
		{StudentID: "S1", Score: 60}, // 25 below
		{StudentID: "S2", Score: 80}, // exactly 20 above
		{StudentID: "S3", Score: 10}, // no history
	}}
	found := DetectFluctuations(rec, baselines, 20)
	if assert.Len(t, found, 1) {
		assert.Equal(t, AnomalyScoreFluctuation, found[0].Type)
		assert.Equal(t, "S1", found[0].StudentID)
		assert.Equal(t, 60.0, found[0].Value)
		assert.Equal(t, "score 60.0 is 25.0 points away from the average 85.0", found[0].Detail)
	}

	assert.Equal(t, AnomalyScoreFluctuation, anomalyType(found))
	assert.Equal(t, AnomalyLowPass, anomalyType(append(found, AnomalyRecord{Type: AnomalyLowPass})), "record-level anomalies win")
	assert.Empty(t, anomalyType(nil))
}
