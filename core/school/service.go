package school

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
)

// ErrWorkloadExceeded is returned when a Teacher's workload would exceed its ceiling.
var ErrWorkloadExceeded = errors.New("teacher workload exceeded")

type (
	// Repositories groups the entity tables the Service owns.
	Repositories struct {
		Students   core.Repository[Student]
		Teachers   core.Repository[Teacher]
		Classrooms core.Repository[Classroom]
		Courses    core.Repository[Course]
		Sections   core.Repository[Section]
	}

	// EnrollmentCounter counts the active enrollments of a course.
	EnrollmentCounter interface {
		CountActive(courseID string) (int, error)
	}

	Service struct {
		repos    Repositories
		enrolled EnrollmentCounter
	}
)

func NewService(repos Repositories) *Service {
	return &Service{repos: repos}
}

// SetEnrollmentCounter lets UpdateCourse refuse a capacity below the active enrollments.
// The enrollment ledger depends on the Service, so it is plugged in after construction.
func (svc *Service) SetEnrollmentCounter(c EnrollmentCounter) {
	svc.enrolled = c
}

// Students

func (svc *Service) ListStudents() ([]Student, error) {
	return svc.repos.Students.List()
}

func (svc *Service) GetStudent(id string) (Student, error) {
	return svc.repos.Students.Get(core.CleanString(id))
}

func (svc *Service) FilterStudents(filter StudentFilter) ([]Student, error) {
	return svc.repos.Students.Filter(filter.Match)
}

func (svc *Service) AddStudent(ns NewStudent) (Student, error) {
	if err := core.Validate.Struct(ns); err != nil {
		return Student{}, err
	}
	return svc.repos.Students.Add(Student{
		ID:        newID(ns.ID),
		Name:      core.CleanString(ns.Name),
		Gender:    ns.Gender,
		SectionID: ns.SectionID,
		Major:     ns.Major,
		Year:      ns.Year,
		Status:    withDefault(ns.Status, StudentActive),
	})
}

func (svc *Service) UpdateStudent(id string, us UpdateStudent) (Student, error) {
	if err := core.Validate.Struct(us); err != nil {
		return Student{}, err
	}
	return svc.repos.Students.Update(id, func(s *Student) error {
		us.apply(s)
		return nil
	})
}

func (svc *Service) RemoveStudent(id string) error {
	return svc.repos.Students.Remove(id)
}

// Teachers

func (svc *Service) ListTeachers() ([]Teacher, error) {
	return svc.repos.Teachers.List()
}

func (svc *Service) GetTeacher(id string) (Teacher, error) {
	return svc.repos.Teachers.Get(core.CleanString(id))
}

func (svc *Service) FilterTeachers(filter TeacherFilter) ([]Teacher, error) {
	return svc.repos.Teachers.Filter(filter.Match)
}

func (svc *Service) AddTeacher(nt NewTeacher) (Teacher, error) {
	if err := core.Validate.Struct(nt); err != nil {
		return Teacher{}, err
	}
	return svc.repos.Teachers.Add(CloneTeacher(Teacher{
		ID:          newID(nt.ID),
		Name:        core.CleanString(nt.Name),
		Department:  nt.Department,
		Title:       nt.Title,
		Subjects:    nt.Subjects,
		MaxWorkload: nt.MaxWorkload,
		Status:      withDefault(nt.Status, TeacherActive),
	}))
}

func (svc *Service) UpdateTeacher(id string, ut UpdateTeacher) (Teacher, error) {
	if err := core.Validate.Struct(ut); err != nil {
		return Teacher{}, err
	}
	return svc.repos.Teachers.Update(id, func(t *Teacher) error {
		ut.apply(t)
		if t.MaxWorkload < t.CurrentWorkload {
			return core.NewValidationError(nil, core.FieldError{
				Field: "max_workload",
				Error: "cannot be lower than the current workload",
			})
		}
		return nil
	})
}

// AdjustWorkload adds delta hours to a Teacher's current workload.
// The workload never goes below zero nor above the Teacher's max workload.
func (svc *Service) AdjustWorkload(id string, delta int) (Teacher, error) {
	return svc.repos.Teachers.Update(id, func(t *Teacher) error {
		next := t.CurrentWorkload + delta
		if next > t.MaxWorkload {
			return errors.Wrapf(ErrWorkloadExceeded, "teacher %s: %d + %d > %d", t.ID, t.CurrentWorkload, delta, t.MaxWorkload)
		}
		if next < 0 {
			next = 0
		}
		t.CurrentWorkload = next
		return nil
	})
}

func (svc *Service) RemoveTeacher(id string) error {
	return svc.repos.Teachers.Remove(id)
}

// Classrooms

func (svc *Service) ListClassrooms() ([]Classroom, error) {
	return svc.repos.Classrooms.List()
}

func (svc *Service) GetClassroom(id string) (Classroom, error) {
	return svc.repos.Classrooms.Get(core.CleanString(id))
}

func (svc *Service) FilterClassrooms(filter ClassroomFilter) ([]Classroom, error) {
	return svc.repos.Classrooms.Filter(filter.Match)
}

func (svc *Service) AddClassroom(nc NewClassroom) (Classroom, error) {
	if err := core.Validate.Struct(nc); err != nil {
		return Classroom{}, err
	}
	return svc.repos.Classrooms.Add(Classroom{
		ID:       newID(nc.ID),
		Name:     core.CleanString(nc.Name),
		Building: nc.Building,
		Capacity: nc.Capacity,
		Type:     nc.Type,
		Status:   withDefault(nc.Status, RoomAvailable),
	})
}

func (svc *Service) UpdateClassroom(id string, uc UpdateClassroom) (Classroom, error) {
	if err := core.Validate.Struct(uc); err != nil {
		return Classroom{}, err
	}
	return svc.repos.Classrooms.Update(id, func(c *Classroom) error {
		uc.apply(c)
		return nil
	})
}

func (svc *Service) RemoveClassroom(id string) error {
	return svc.repos.Classrooms.Remove(id)
}

// Courses

func (svc *Service) ListCourses() ([]Course, error) {
	return svc.repos.Courses.List()
}

func (svc *Service) GetCourse(id string) (Course, error) {
	return svc.repos.Courses.Get(core.CleanString(id))
}

func (svc *Service) FilterCourses(filter CourseFilter) ([]Course, error) {
	return svc.repos.Courses.Filter(filter.Match)
}

func (svc *Service) AddCourse(nc NewCourse) (Course, error) {
	if err := core.Validate.Struct(nc); err != nil {
		return Course{}, err
	}
	return svc.repos.Courses.Add(Course{
		ID:                 newID(nc.ID),
		Code:               core.CleanString(nc.Code),
		Name:               core.CleanString(nc.Name),
		Credits:            nc.Credits,
		Hours:              nc.Hours,
		Type:               withDefault(nc.Type, CourseRequired),
		TeacherID:          nc.TeacherID,
		Capacity:           nc.Capacity,
		Status:             withDefault(nc.Status, CourseOpen),
		EnrollmentDeadline: nc.EnrollmentDeadline,
		Semester:           nc.Semester,
	})
}

func (svc *Service) UpdateCourse(id string, uc UpdateCourse) (Course, error) {
	if err := core.Validate.Struct(uc); err != nil {
		return Course{}, err
	}
	active := -1
	if uc.Capacity != nil && svc.enrolled != nil {
		n, err := svc.enrolled.CountActive(id)
		if err != nil {
			return Course{}, errors.Wrap(err, "counting enrollments")
		}
		active = n
	}
	return svc.repos.Courses.Update(id, func(c *Course) error {
		uc.apply(c)
		if c.Capacity < active {
			return core.NewValidationError(nil, core.FieldError{
				Field: "capacity",
				Error: fmt.Sprintf("cannot be lower than the %d active enrollments", active),
			})
		}
		return nil
	})
}

func (svc *Service) RemoveCourse(id string) error {
	return svc.repos.Courses.Remove(id)
}

// Sections

func (svc *Service) ListSections() ([]Section, error) {
	return svc.repos.Sections.List()
}

func (svc *Service) GetSection(id string) (Section, error) {
	return svc.repos.Sections.Get(core.CleanString(id))
}

func (svc *Service) FilterSections(filter SectionFilter) ([]Section, error) {
	return svc.repos.Sections.Filter(filter.Match)
}

func (svc *Service) AddSection(ns NewSection) (Section, error) {
	if err := core.Validate.Struct(ns); err != nil {
		return Section{}, err
	}
	return svc.repos.Sections.Add(Section{
		ID:           newID(ns.ID),
		Name:         core.CleanString(ns.Name),
		Major:        ns.Major,
		Year:         ns.Year,
		StudentCount: ns.StudentCount,
		AdvisorID:    ns.AdvisorID,
	})
}

func (svc *Service) UpdateSection(id string, us UpdateSection) (Section, error) {
	if err := core.Validate.Struct(us); err != nil {
		return Section{}, err
	}
	return svc.repos.Sections.Update(id, func(s *Section) error {
		us.apply(s)
		return nil
	})
}

func (svc *Service) RemoveSection(id string) error {
	return svc.repos.Sections.Remove(id)
}

func newID(id string) string {
	if id = core.CleanString(id); id != "" {
		return id
	}
	return core.NewID()
}

func withDefault(v, def string) string {
	if v = core.CleanString(v, true /* lower */); v != "" {
		return v
	}
	return def
}
