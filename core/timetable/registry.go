package timetable

import (
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/school"
)

var (
	NowFunc = time.Now // mockable

	// ErrWorkloadExceeded is returned when a plan would push its teacher over the max workload.
	ErrWorkloadExceeded = school.ErrWorkloadExceeded
)

type (
	// Directory resolves the records plans refer to and owns teachers' workload.
	Directory interface {
		GetCourse(id string) (school.Course, error)
		GetTeacher(id string) (school.Teacher, error)
		GetSection(id string) (school.Section, error)
		AdjustWorkload(teacherID string, delta int) (school.Teacher, error)
	}

	// Registry keeps the course plans. Slot changes go through its Scheduler.
	Registry struct {
		plans core.Repository[CoursePlan]
		dir   Directory
		sched *Scheduler
	}
)

func NewRegistry(plans core.Repository[CoursePlan], dir Directory, sched *Scheduler) (*Registry, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(plans, "plans"),
		vala.IsNotNil(dir, "dir"),
		vala.IsNotNil(sched, "sched"),
	).Check()
	if err != nil {
		return nil, err
	}
	return &Registry{plans: plans, dir: dir, sched: sched}, nil
}

func (r *Registry) Scheduler() *Scheduler {
	return r.sched
}

// AddPlan registers a pending plan and charges its hours to the teacher.
func (r *Registry) AddPlan(np NewPlan) (CoursePlan, error) {
	if err := core.Validate.Struct(np); err != nil {
		return CoursePlan{}, err
	}

	r.sched.mu.Lock()
	defer r.sched.mu.Unlock()

	course, err := r.dir.GetCourse(np.CourseID)
	if err != nil {
		return CoursePlan{}, errors.Wrap(err, "getting course")
	}
	teacher, err := r.dir.GetTeacher(np.TeacherID)
	if err != nil {
		return CoursePlan{}, errors.Wrap(err, "getting teacher")
	}
	section, err := r.dir.GetSection(np.SectionID)
	if err != nil {
		return CoursePlan{}, errors.Wrap(err, "getting section")
	}
	if teacher.CurrentWorkload+np.Hours > teacher.MaxWorkload {
		return CoursePlan{}, errors.Wrapf(ErrWorkloadExceeded, "teacher %s: %d + %d > %d",
			teacher.ID, teacher.CurrentWorkload, np.Hours, teacher.MaxWorkload)
	}

	seq, err := r.nextSeq()
	if err != nil {
		return CoursePlan{}, err
	}
	roster := np.RosterSize
	if roster == 0 {
		roster = section.StudentCount
	}
	semester := core.CleanString(np.Semester)
	if semester == "" {
		semester = course.Semester
	}

	if _, err := r.dir.AdjustWorkload(teacher.ID, np.Hours); err != nil {
		return CoursePlan{}, errors.Wrap(err, "charging workload")
	}
	now := NowFunc().UTC()
	plan, err := r.plans.Add(CoursePlan{
		ID:         core.NewID(),
		CourseID:   course.ID,
		TeacherID:  teacher.ID,
		SectionID:  section.ID,
		RosterSize: roster,
		Hours:      np.Hours,
		Semester:   semester,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Seq:        seq,
	})
	if err != nil {
		_, _ = r.dir.AdjustWorkload(teacher.ID, -np.Hours)
		return CoursePlan{}, errors.Wrap(err, "adding plan")
	}
	return plan, nil
}

func (r *Registry) nextSeq() (int, error) {
	plans, err := r.plans.List()
	if err != nil {
		return 0, errors.Wrap(err, "listing plans")
	}
	var seq int
	for _, p := range plans {
		if p.Seq > seq {
			seq = p.Seq
		}
	}
	return seq + 1, nil
}

// RemovePlan deletes a plan and gives its hours back to the teacher.
func (r *Registry) RemovePlan(id string) error {
	r.sched.mu.Lock()
	defer r.sched.mu.Unlock()

	plan, err := r.plans.Get(id)
	if err != nil {
		return err
	}
	if err := r.plans.Remove(plan.ID); err != nil {
		return err
	}
	// cancelled plans already released their hours
	if plan.Status != StatusCancelled {
		if _, err := r.dir.AdjustWorkload(plan.TeacherID, -plan.Hours); err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "releasing workload")
		}
	}
	return nil
}

// AssignSlot places or moves a plan. Conflicts are reported in the result, not as errors.
func (r *Registry) AssignSlot(id string, slot Slot) (AssignResult, error) {
	return r.sched.Assign(id, slot)
}

// Unassign releases the plan's slot and puts it back to pending.
func (r *Registry) Unassign(id string) (CoursePlan, error) {
	return r.transition(id, func(p *CoursePlan) error {
		if p.IsClosed() {
			return closedError(p)
		}
		p.Slot = nil
		p.Status = StatusPending
		p.ConflictReason = null.String{}
		return nil
	})
}

// Complete marks a scheduled plan as taught. It keeps its slot and workload.
func (r *Registry) Complete(id string) (CoursePlan, error) {
	return r.transition(id, func(p *CoursePlan) error {
		if p.Status != StatusScheduled {
			return core.NewValidationError(nil, core.FieldError{
				Field: "status",
				Error: "only scheduled plans can be completed",
			})
		}
		p.Status = StatusCompleted
		return nil
	})
}

// Cancel releases the plan's slot and its hours from the teacher's workload.
func (r *Registry) Cancel(id string) (CoursePlan, error) {
	r.sched.mu.Lock()
	defer r.sched.mu.Unlock()

	plan, err := r.plans.Update(id, func(p *CoursePlan) error {
		if p.IsClosed() {
			return closedError(p)
		}
		p.Slot = nil
		p.Status = StatusCancelled
		p.ConflictReason = null.String{}
		p.UpdatedAt = NowFunc().UTC()
		return nil
	})
	if err != nil {
		return CoursePlan{}, err
	}
	if _, err := r.dir.AdjustWorkload(plan.TeacherID, -plan.Hours); err != nil && !core.IsNotFound(err) {
		return plan, errors.Wrap(err, "releasing workload")
	}
	return plan, nil
}

func (r *Registry) transition(id string, fn func(p *CoursePlan) error) (CoursePlan, error) {
	r.sched.mu.Lock()
	defer r.sched.mu.Unlock()

	return r.plans.Update(id, func(p *CoursePlan) error {
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

func closedError(p *CoursePlan) error {
	return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "plan is " + p.Status})
}

func (r *Registry) Get(id string) (CoursePlan, error) {
	return r.plans.Get(core.CleanString(id))
}

func (r *Registry) List(filter PlanFilter) ([]CoursePlan, error) {
	return r.plans.Filter(filter.Match)
}

// Timetable lays the plans matching filter that hold a slot on the weekly grid.
func (r *Registry) Timetable(filter PlanFilter) ([]Cell, error) {
	plans, err := r.plans.Filter(func(p CoursePlan) bool {
		return p.Slot != nil && filter.Match(p)
	})
	if err != nil {
		return nil, err
	}

	cells := r.sched.grid.Cells()
	for i := range cells {
		cells[i].Plans = []CoursePlan{}
		for _, p := range plans {
			if p.Slot.Day == cells[i].Day && p.Slot.Period == cells[i].Period {
				cells[i].Plans = append(cells[i].Plans, p)
			}
		}
	}
	return cells, nil
}
