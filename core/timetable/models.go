package timetable

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Plan statuses
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusConflict  = "conflict"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Conflict kinds
const (
	KindTeacher         = "teacher"
	KindRoom            = "room"
	KindSection         = "section"
	KindCapacity        = "capacity"
	KindRoomUnavailable = "room_unavailable"
	KindNoSlot          = "no_slot"
)

// Slot is a (day, period, room) triple of the weekly grid.
type Slot struct {
	Day    int    `json:"day" validate:"gte=1,lte=7"`
	Period string `json:"period" validate:"notblank"`
	RoomID string `json:"room_id" validate:"notblank"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s @%s", dayNames[s.Day], s.Period, s.RoomID)
}

// sameTime reports whether both slots take place at the same (day, period).
func (s Slot) sameTime(o Slot) bool {
	return s.Day == o.Day && s.Period == o.Period
}

var dayNames = map[int]string{1: "Mon", 2: "Tue", 3: "Wed", 4: "Thu", 5: "Fri", 6: "Sat", 7: "Sun"}

// DayName returns the short english name of a day of the week (1 = Monday).
func DayName(day int) string {
	if n, ok := dayNames[day]; ok {
		return n
	}
	return fmt.Sprintf("day %d", day)
}

// CoursePlan is a teaching assignment: a course taught by a teacher to a class section.
type CoursePlan struct {
	ID             string      `json:"id"`
	CourseID       string      `json:"course_id"`
	TeacherID      string      `json:"teacher_id"`
	SectionID      string      `json:"section_id"`
	RosterSize     int         `json:"roster_size"`
	Hours          int         `json:"hours"`
	Semester       string      `json:"semester"`
	Status         string      `json:"status"`
	Slot           *Slot       `json:"slot"`
	ConflictReason null.String `json:"conflict_reason"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	// Seq is the registration order, used to keep scheduling deterministic.
	Seq int `json:"seq"`
}

// Occupies reports whether the plan currently holds a slot of the grid.
func (p CoursePlan) Occupies() bool {
	return p.Slot != nil && (p.Status == StatusScheduled || p.Status == StatusConflict)
}

// Unscheduled reports whether the plan is waiting for a slot.
func (p CoursePlan) Unscheduled() bool {
	return p.Slot == nil && (p.Status == StatusPending || p.Status == StatusConflict)
}

// IsClosed reports whether the plan reached a final status.
func (p CoursePlan) IsClosed() bool {
	return p.Status == StatusCompleted || p.Status == StatusCancelled
}

// ClonePlan deep copies a plan.
func ClonePlan(p CoursePlan) CoursePlan {
	if p.Slot != nil {
		s := *p.Slot
		p.Slot = &s
	}
	return p
}

// NewPlan contains information needed to register a CoursePlan.
// RosterSize defaults to the section's student count.
type NewPlan struct {
	CourseID   string `json:"course_id" validate:"notblank"`
	TeacherID  string `json:"teacher_id" validate:"notblank"`
	SectionID  string `json:"section_id" validate:"notblank"`
	RosterSize int    `json:"roster_size" validate:"gte=0"`
	Hours      int    `json:"hours" validate:"gt=0"`
	Semester   string `json:"semester"`
}

// Conflict describes why a plan could not take a slot.
type Conflict struct {
	Kind string `json:"kind"`
	// PlanID is the colliding plan, if any.
	PlanID string `json:"plan_id,omitempty"`
	Slot   Slot   `json:"slot"`
	Cause  string `json:"cause"`
}

func (c Conflict) String() string {
	return c.Cause
}

// AssignResult is the outcome of a slot assignment. Conflicts are expected outcomes, not errors.
type AssignResult struct {
	Scheduled bool       `json:"scheduled"`
	Plan      CoursePlan `json:"plan"`
	Conflict  *Conflict  `json:"conflict,omitempty"`
}

// Summary reports a ScheduleAll batch.
type Summary struct {
	Attempted      int          `json:"attempted"`
	Scheduled      int          `json:"scheduled"`
	Conflicts      int          `json:"conflicts"`
	ScheduledPlans []CoursePlan `json:"scheduled_plans"`
	ConflictPlans  []CoursePlan `json:"conflict_plans"`
}

// ConflictEntry is one line of the conflict report: several plans sharing a
// resource at the same (day, period).
type ConflictEntry struct {
	Kind       string   `json:"kind"`
	ResourceID string   `json:"resource_id"`
	Day        int      `json:"day"`
	Period     string   `json:"period"`
	PlanIDs    []string `json:"plan_ids"`
	Cause      string   `json:"cause"`
}

// PlanFilter applies AND operation on its set fields.
type PlanFilter struct {
	Status    string `query:"status"`
	TeacherID string `query:"teacher_id"`
	SectionID string `query:"section_id"`
	CourseID  string `query:"course_id"`
	RoomID    string `query:"room_id"`
	Semester  string `query:"semester"`
}

func (f PlanFilter) Match(p CoursePlan) bool {
	if f.RoomID != "" && (p.Slot == nil || p.Slot.RoomID != f.RoomID) {
		return false
	}
	return match(f.Status, p.Status) &&
		match(f.TeacherID, p.TeacherID) &&
		match(f.SectionID, p.SectionID) &&
		match(f.CourseID, p.CourseID) &&
		match(f.Semester, p.Semester)
}

func match(want, got string) bool {
	return want == "" || want == got
}

// Cell is one (day, period) cell of a weekly timetable.
type Cell struct {
	Day    int          `json:"day"`
	Period string       `json:"period"`
	Plans  []CoursePlan `json:"plans"`
}
