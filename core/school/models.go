package school

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Statuses
const (
	StudentActive    = "active"
	StudentSuspended = "suspended"
	StudentGraduated = "graduated"

	TeacherActive   = "active"
	TeacherOnLeave  = "on_leave"
	TeacherInactive = "inactive"

	RoomAvailable   = "available"
	RoomMaintenance = "maintenance"
	RoomOccupied    = "occupied"

	CourseOpen    = "open"
	CourseOngoing = "ongoing"
	CourseEnded   = "ended"

	CourseRequired = "required"
	CourseElective = "elective"
)

type Student struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	SectionID string `json:"section_id"`
	Major     string `json:"major"`
	Year      int    `json:"year"`
	Status    string `json:"status"`
}

type Teacher struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Department      string   `json:"department"`
	Title           string   `json:"title"`
	Subjects        []string `json:"subjects"`
	CurrentWorkload int      `json:"current_workload"`
	MaxWorkload     int      `json:"max_workload"`
	Status          string   `json:"status"`
}

// RemainingWorkload is the number of hours the Teacher can still take on.
func (t Teacher) RemainingWorkload() int {
	return t.MaxWorkload - t.CurrentWorkload
}

type Classroom struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Building string `json:"building"`
	Capacity int    `json:"capacity"`
	Type     string `json:"type"`
	Status   string `json:"status"`
}

func (c Classroom) IsAvailable() bool {
	return c.Status == RoomAvailable
}

type Course struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Credits            int       `json:"credits"`
	Hours              int       `json:"hours"`
	Type               string    `json:"type"`
	TeacherID          string    `json:"teacher_id"`
	Capacity           int       `json:"capacity"`
	Status             string    `json:"status"`
	EnrollmentDeadline null.Time `json:"enrollment_deadline"`
	Semester           string    `json:"semester"`
}

// IsClosed reports whether the Course no longer accepts enrollments at `now`.
func (c Course) IsClosed(now time.Time) bool {
	if c.Status == CourseEnded {
		return true
	}
	return c.EnrollmentDeadline.Valid && now.After(c.EnrollmentDeadline.Time)
}

// Section is a class section (cohort of students taught together).
type Section struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Major        string `json:"major"`
	Year         int    `json:"year"`
	StudentCount int    `json:"student_count"`
	AdvisorID    string `json:"advisor_id"`
}

func CloneTeacher(t Teacher) Teacher {
	if t.Subjects != nil {
		t.Subjects = append([]string(nil), t.Subjects...)
	}
	return t
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	ID        string `json:"id" validate:"omitempty,alphanum_"`
	Name      string `json:"name" validate:"notblank"`
	Gender    string `json:"gender" validate:"omitempty,oneof=M F"`
	SectionID string `json:"section_id"`
	Major     string `json:"major"`
	Year      int    `json:"year" validate:"gte=0"`
	Status    string `json:"status" validate:"omitempty,oneof=active suspended graduated"`
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent struct {
	Name      *string `json:"name" validate:"omitempty,notblank"`
	Gender    *string `json:"gender" validate:"omitempty,oneof=M F"`
	SectionID *string `json:"section_id"`
	Major     *string `json:"major"`
	Year      *int    `json:"year" validate:"omitempty,gte=0"`
	Status    *string `json:"status" validate:"omitempty,oneof=active suspended graduated"`
}

func (us UpdateStudent) apply(s *Student) {
	setString(&s.Name, us.Name)
	setString(&s.Gender, us.Gender)
	setString(&s.SectionID, us.SectionID)
	setString(&s.Major, us.Major)
	setInt(&s.Year, us.Year)
	setString(&s.Status, us.Status)
}

type NewTeacher struct {
	ID          string   `json:"id" validate:"omitempty,alphanum_"`
	Name        string   `json:"name" validate:"notblank"`
	Department  string   `json:"department"`
	Title       string   `json:"title"`
	Subjects    []string `json:"subjects"`
	MaxWorkload int      `json:"max_workload" validate:"gte=0"`
	Status      string   `json:"status" validate:"omitempty,oneof=active on_leave inactive"`
}

// UpdateTeacher modifies a Teacher's profile. Workload is only changed through Service.AdjustWorkload.
type UpdateTeacher struct {
	Name        *string  `json:"name" validate:"omitempty,notblank"`
	Department  *string  `json:"department"`
	Title       *string  `json:"title"`
	Subjects    []string `json:"subjects"`
	MaxWorkload *int     `json:"max_workload" validate:"omitempty,gte=0"`
	Status      *string  `json:"status" validate:"omitempty,oneof=active on_leave inactive"`
}

func (ut UpdateTeacher) apply(t *Teacher) {
	setString(&t.Name, ut.Name)
	setString(&t.Department, ut.Department)
	setString(&t.Title, ut.Title)
	if ut.Subjects != nil {
		t.Subjects = append([]string(nil), ut.Subjects...)
	}
	setInt(&t.MaxWorkload, ut.MaxWorkload)
	setString(&t.Status, ut.Status)
}

type NewClassroom struct {
	ID       string `json:"id" validate:"omitempty,alphanum_"`
	Name     string `json:"name" validate:"notblank"`
	Building string `json:"building"`
	Capacity int    `json:"capacity" validate:"gt=0"`
	Type     string `json:"type"`
	Status   string `json:"status" validate:"omitempty,oneof=available maintenance occupied"`
}

type UpdateClassroom struct {
	Name     *string `json:"name" validate:"omitempty,notblank"`
	Building *string `json:"building"`
	Capacity *int    `json:"capacity" validate:"omitempty,gt=0"`
	Type     *string `json:"type"`
	Status   *string `json:"status" validate:"omitempty,oneof=available maintenance occupied"`
}

func (uc UpdateClassroom) apply(c *Classroom) {
	setString(&c.Name, uc.Name)
	setString(&c.Building, uc.Building)
	setInt(&c.Capacity, uc.Capacity)
	setString(&c.Type, uc.Type)
	setString(&c.Status, uc.Status)
}

type NewCourse struct {
	ID                 string    `json:"id" validate:"omitempty,alphanum_"`
	Code               string    `json:"code" validate:"notblank"`
	Name               string    `json:"name" validate:"notblank"`
	Credits            int       `json:"credits" validate:"gte=0"`
	Hours              int       `json:"hours" validate:"gte=0"`
	Type               string    `json:"type" validate:"omitempty,oneof=required elective"`
	TeacherID          string    `json:"teacher_id"`
	Capacity           int       `json:"capacity" validate:"gte=0"`
	Status             string    `json:"status" validate:"omitempty,oneof=open ongoing ended"`
	EnrollmentDeadline null.Time `json:"enrollment_deadline"`
	Semester           string    `json:"semester"`
}

type UpdateCourse struct {
	Code               *string    `json:"code" validate:"omitempty,notblank"`
	Name               *string    `json:"name" validate:"omitempty,notblank"`
	Credits            *int       `json:"credits" validate:"omitempty,gte=0"`
	Hours              *int       `json:"hours" validate:"omitempty,gte=0"`
	Type               *string    `json:"type" validate:"omitempty,oneof=required elective"`
	TeacherID          *string    `json:"teacher_id"`
	Capacity           *int       `json:"capacity" validate:"omitempty,gte=0"`
	Status             *string    `json:"status" validate:"omitempty,oneof=open ongoing ended"`
	EnrollmentDeadline *null.Time `json:"enrollment_deadline"`
	Semester           *string    `json:"semester"`
}

func (uc UpdateCourse) apply(c *Course) {
	setString(&c.Code, uc.Code)
	setString(&c.Name, uc.Name)
	setInt(&c.Credits, uc.Credits)
	setInt(&c.Hours, uc.Hours)
	setString(&c.Type, uc.Type)
	setString(&c.TeacherID, uc.TeacherID)
	setInt(&c.Capacity, uc.Capacity)
	setString(&c.Status, uc.Status)
	if uc.EnrollmentDeadline != nil {
		c.EnrollmentDeadline = *uc.EnrollmentDeadline
	}
	setString(&c.Semester, uc.Semester)
}

type NewSection struct {
	ID           string `json:"id" validate:"omitempty,alphanum_"`
	Name         string `json:"name" validate:"notblank"`
	Major        string `json:"major"`
	Year         int    `json:"year" validate:"gte=0"`
	StudentCount int    `json:"student_count" validate:"gte=0"`
	AdvisorID    string `json:"advisor_id"`
}

type UpdateSection struct {
	Name         *string `json:"name" validate:"omitempty,notblank"`
	Major        *string `json:"major"`
	Year         *int    `json:"year" validate:"omitempty,gte=0"`
	StudentCount *int    `json:"student_count" validate:"omitempty,gte=0"`
	AdvisorID    *string `json:"advisor_id"`
}

func (us UpdateSection) apply(s *Section) {
	setString(&s.Name, us.Name)
	setString(&s.Major, us.Major)
	setInt(&s.Year, us.Year)
	setInt(&s.StudentCount, us.StudentCount)
	setString(&s.AdvisorID, us.AdvisorID)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
