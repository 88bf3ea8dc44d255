package enrollment

import (
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/school"
)

// Enrollment statuses
const (
	StatusEnrolled = "enrolled"
	StatusDropped  = "dropped"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrAlreadyEnrolled  = errors.New("student already enrolled in course")
	ErrNotEnrolled      = errors.New("student not enrolled in course")
	ErrCapacityExceeded = errors.New("course capacity exceeded")
	ErrCourseClosed     = errors.New("course closed for enrollment")
)

// Enrollment is one row of the ledger. Rows are appended on enroll and only ever
// flipped from enrolled to dropped; re-enrolling appends a new row.
type Enrollment struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	Status     string    `json:"status"`
	EnrolledAt time.Time `json:"enrolled_at"`
	DroppedAt  null.Time `json:"dropped_at"`
}

func (e Enrollment) IsActive() bool {
	return e.Status == StatusEnrolled
}

type (
	// Directory resolves the students and courses the ledger refers to.
	Directory interface {
		GetStudent(id string) (school.Student, error)
		GetCourse(id string) (school.Course, error)
	}

	Ledger struct {
		mu   sync.Mutex
		repo core.Repository[Enrollment]
		dir  Directory
	}
)

func NewLedger(repo core.Repository[Enrollment], dir Directory) (*Ledger, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(dir, "dir"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Ledger{repo: repo, dir: dir}, nil
}

// Enroll appends an enrolled row for the (student, course) pair.
func (l *Ledger) Enroll(studentID, courseID string) (Enrollment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	studentID = core.CleanString(studentID)
	courseID = core.CleanString(courseID)

	if _, err := l.dir.GetStudent(studentID); err != nil {
		return Enrollment{}, errors.Wrap(err, "getting student")
	}
	course, err := l.dir.GetCourse(courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}

	active, err := l.active(courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying active enrollments")
	}
	for _, e := range active {
		if e.StudentID == studentID {
			return Enrollment{}, errors.Wrapf(ErrAlreadyEnrolled, "student %s, course %s", studentID, courseID)
		}
	}
	if len(active) >= course.Capacity {
		return Enrollment{}, errors.Wrapf(ErrCapacityExceeded, "course %s: %d/%d", courseID, len(active), course.Capacity)
	}

	now := NowFunc().UTC()
	if course.IsClosed(now) {
		return Enrollment{}, errors.Wrapf(ErrCourseClosed, "course %s", courseID)
	}

	return l.repo.Add(Enrollment{
		ID:         core.NewID(),
		StudentID:  studentID,
		CourseID:   courseID,
		Status:     StatusEnrolled,
		EnrolledAt: now,
	})
}

// Drop marks the active row of the (student, course) pair as dropped.
func (l *Ledger) Drop(studentID, courseID string) (Enrollment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	studentID = core.CleanString(studentID)
	courseID = core.CleanString(courseID)

	active, err := l.repo.Filter(func(e Enrollment) bool {
		return e.IsActive() && e.StudentID == studentID && e.CourseID == courseID
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying active enrollments")
	}
	if len(active) == 0 {
		return Enrollment{}, errors.Wrapf(ErrNotEnrolled, "student %s, course %s", studentID, courseID)
	}

	now := NowFunc().UTC()
	return l.repo.Update(active[0].ID, func(e *Enrollment) error {
		e.Status = StatusDropped
		e.DroppedAt = null.TimeFrom(now)
		return nil
	})
}

// CountActive counts the enrolled rows of a course.
func (l *Ledger) CountActive(courseID string) (int, error) {
	active, err := l.Active(courseID)
	return len(active), err
}

// Active returns the enrolled rows of a course, in enrollment order.
func (l *Ledger) Active(courseID string) ([]Enrollment, error) {
	return l.active(core.CleanString(courseID))
}

func (l *Ledger) active(courseID string) ([]Enrollment, error) {
	return l.repo.Filter(func(e Enrollment) bool {
		return e.IsActive() && e.CourseID == courseID
	})
}

// History returns every row of a student, dropped ones included.
func (l *Ledger) History(studentID string) ([]Enrollment, error) {
	studentID = core.CleanString(studentID)
	return l.repo.Filter(func(e Enrollment) bool { return e.StudentID == studentID })
}

// StudentCourses returns the ids of the courses a student is currently enrolled in.
func (l *Ledger) StudentCourses(studentID string) ([]string, error) {
	studentID = core.CleanString(studentID)
	rows, err := l.repo.Filter(func(e Enrollment) bool { return e.IsActive() && e.StudentID == studentID })
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.CourseID)
	}
	return ids, nil
}

// All returns the whole ledger in append order.
func (l *Ledger) All() ([]Enrollment, error) {
	return l.repo.List()
}
