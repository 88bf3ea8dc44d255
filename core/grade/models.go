package grade

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
)

// Audit statuses
const (
	AuditPending      = "pending"
	AuditApproved     = "approved"
	AuditRejected     = "rejected"
	AuditNeedRevision = "need_revision"
)

// Publish statuses
const (
	Unpublished = "unpublished"
	Published   = "published"
)

// Anomaly types
const (
	AnomalyHighExcellent    = "high_excellent"
	AnomalyLowPass          = "low_pass"
	AnomalyScoreFluctuation = "score_fluctuation"
)

// Publish history actions
const (
	ActionPublish  = "publish"
	ActionWithdraw = "withdraw"
)

// Anomaly decisions
const (
	AnomalyConfirmed = "confirmed"
	AnomalyDismissed = "dismissed"
)

type StudentScore struct {
	StudentID string  `json:"student_id" validate:"notblank"`
	Score     float64 `json:"score" validate:"gte=0,lte=100"`
}

// GradeRecord holds the scores of one course for one semester and their audit state.
// Statistics are derived from Scores and never stored.
type GradeRecord struct {
	ID            string         `json:"id"`
	CourseID      string         `json:"course_id"`
	TeacherID     string         `json:"teacher_id"`
	Semester      string         `json:"semester"`
	Scores        []StudentScore `json:"scores"`
	AuditStatus   string         `json:"audit_status"`
	PublishStatus string         `json:"publish_status"`
	AnomalyType   null.String    `json:"anomaly_type"`
	SubmittedAt   time.Time      `json:"submitted_at"`
	ReviewedAt    null.Time      `json:"reviewed_at"`
	PublishedAt   null.Time      `json:"published_at"`
}

func (g GradeRecord) Statistics() Statistics {
	return ComputeStatistics(g.Values())
}

// Values returns the scores, in submission order.
func (g GradeRecord) Values() []float64 {
	vals := make([]float64, 0, len(g.Scores))
	for _, s := range g.Scores {
		vals = append(vals, s.Score)
	}
	return vals
}

// Settled reports whether the record counts towards the students' historical averages.
func (g GradeRecord) Settled() bool {
	return g.AuditStatus == AuditApproved
}

func Clone(g GradeRecord) GradeRecord {
	if g.Scores != nil {
		g.Scores = append([]StudentScore(nil), g.Scores...)
	}
	return g
}

// NewGradeRecord is a submission (or resubmission) of a course's scores.
type NewGradeRecord struct {
	CourseID  string         `json:"course_id" validate:"notblank"`
	TeacherID string         `json:"teacher_id" validate:"notblank"`
	Semester  string         `json:"semester"`
	Scores    []StudentScore `json:"scores" validate:"required,dive"`
}

// Statistics of a score list. Rates are percentages; every value has one decimal.
type Statistics struct {
	Count          int     `json:"count"`
	Mean           float64 `json:"mean"`
	Max            float64 `json:"max"`
	Min            float64 `json:"min"`
	PassRate       float64 `json:"pass_rate"`
	ExcellenceRate float64 `json:"excellence_rate"`
	GoodRate       float64 `json:"good_rate"`
	AverageRate    float64 `json:"average_rate"`
}

// AuditEntry is an immutable line of a record's audit trail.
type AuditEntry struct {
	ID       string     `json:"id"`
	GradeID  string     `json:"grade_id"`
	Decision string     `json:"decision"`
	Comment  string     `json:"comment"`
	Reviewer core.Actor `json:"reviewer"`
	At       time.Time  `json:"at"`
}

// PublishEntry is an immutable line of a record's publish history.
type PublishEntry struct {
	ID               string     `json:"id"`
	GradeID          string     `json:"grade_id"`
	Action           string     `json:"action"`
	Actor            core.Actor `json:"actor"`
	AffectedStudents int        `json:"affected_students"`
	Reason           string     `json:"reason,omitempty"`
	At               time.Time  `json:"at"`
}

// AnomalyRecord flags a record, or one student's score in it, against a threshold or baseline.
// It is derived on demand; only the reviewer decision is stored.
type AnomalyRecord struct {
	GradeID   string  `json:"grade_id"`
	Type      string  `json:"type"`
	StudentID string  `json:"student_id,omitempty"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Detail    string  `json:"detail"`

	Decision   null.String `json:"decision"`
	Comment    string      `json:"comment,omitempty"`
	Reviewer   *core.Actor `json:"reviewer,omitempty"`
	ResolvedAt null.Time   `json:"resolved_at"`
}

func (a AnomalyRecord) key() string {
	return anomalyKey(a.GradeID, a.Type, a.StudentID)
}

func anomalyKey(gradeID, typ, studentID string) string {
	return gradeID + "/" + typ + "/" + studentID
}

// AnomalyDecision is a reviewer's resolution of an anomaly, keyed by (grade, type, student).
type AnomalyDecision struct {
	ID        string     `json:"id"`
	GradeID   string     `json:"grade_id"`
	Type      string     `json:"type"`
	StudentID string     `json:"student_id"`
	Decision  string     `json:"decision"`
	Comment   string     `json:"comment"`
	Reviewer  core.Actor `json:"reviewer"`
	At        time.Time  `json:"at"`
}

type ResolveAnomaly struct {
	Type      string `json:"type" validate:"oneof=high_excellent low_pass score_fluctuation"`
	StudentID string `json:"student_id"`
	Decision  string `json:"decision" validate:"oneof=confirmed dismissed"`
	Comment   string `json:"comment" validate:"notblank"`
}

type (
	BatchFailure struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}

	// BatchResult separates the records a batch operation succeeded on from those it failed on.
	BatchResult struct {
		Succeeded []GradeRecord  `json:"succeeded"`
		Failed    []BatchFailure `json:"failed"`
	}
)

type QueryFilter struct {
	CourseID      string `query:"course_id"`
	TeacherID     string `query:"teacher_id"`
	Semester      string `query:"semester"`
	AuditStatus   string `query:"audit_status"`
	PublishStatus string `query:"publish_status"`
	AnomalyType   string `query:"anomaly_type"`
}

func (f QueryFilter) Match(g GradeRecord) bool {
	return match(f.CourseID, g.CourseID) &&
		match(f.TeacherID, g.TeacherID) &&
		match(f.Semester, g.Semester) &&
		match(f.AuditStatus, g.AuditStatus) &&
		match(f.PublishStatus, g.PublishStatus) &&
		match(f.AnomalyType, g.AnomalyType.String)
}

func match(want, got string) bool {
	return want == "" || want == got
}
