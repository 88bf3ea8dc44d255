package timetable

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/school"
)

type (
	// Rooms resolves the classrooms plans are placed in.
	Rooms interface {
		ListClassrooms() ([]school.Classroom, error)
		GetClassroom(id string) (school.Classroom, error)
	}

	// Scheduler owns slot assignment. Every check-then-set runs under its lock.
	Scheduler struct {
		mu       sync.Mutex
		plans    core.Repository[CoursePlan]
		rooms    Rooms
		grid     Grid
		notifier core.Notifier
	}
)

func NewScheduler(plans core.Repository[CoursePlan], rooms Rooms, grid Grid, notifier core.Notifier) (*Scheduler, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(plans, "plans"),
		vala.IsNotNil(rooms, "rooms"),
		vala.GreaterThan(grid.Days, 0, "grid.Days"),
		vala.GreaterThan(len(grid.Periods), 0, "grid.Periods"),
	).Check()
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = core.NopNotifier{}
	}
	return &Scheduler{plans: plans, rooms: rooms, grid: grid, notifier: notifier}, nil
}

func (s *Scheduler) Grid() Grid {
	return s.grid
}

// Assign places a plan at slot, moving it if it already holds one.
// The slot is checked against every plan currently occupying the grid, the moved
// plan excluded; on conflict the plan is left untouched and the conflict returned.
func (s *Scheduler) Assign(planID string, slot Slot) (AssignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assign(planID, slot)
}

func (s *Scheduler) assign(planID string, slot Slot) (AssignResult, error) {
	slot.Period = core.CleanString(slot.Period)
	slot.RoomID = core.CleanString(slot.RoomID)
	if err := s.grid.Validate(slot); err != nil {
		return AssignResult{}, err
	}

	plan, err := s.plans.Get(planID)
	if err != nil {
		return AssignResult{}, errors.Wrap(err, "getting plan")
	}
	if plan.IsClosed() {
		return AssignResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: fmt.Sprintf("plan is %s", plan.Status),
		})
	}
	room, err := s.rooms.GetClassroom(slot.RoomID)
	if err != nil {
		return AssignResult{}, errors.Wrap(err, "getting room")
	}

	occupying, err := s.plans.Filter(CoursePlan.Occupies)
	if err != nil {
		return AssignResult{}, errors.Wrap(err, "querying scheduled plans")
	}
	if c := check(plan, slot, room, occupying); c != nil {
		return AssignResult{Plan: plan, Conflict: c}, nil
	}

	plan, err = s.commit(plan.ID, slot)
	if err != nil {
		return AssignResult{}, err
	}
	return AssignResult{Scheduled: true, Plan: plan}, nil
}

func (s *Scheduler) commit(planID string, slot Slot) (CoursePlan, error) {
	return s.plans.Update(planID, func(p *CoursePlan) error {
		sl := slot
		p.Slot = &sl
		p.Status = StatusScheduled
		p.ConflictReason = null.String{}
		p.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

// ScheduleAll runs one greedy pass over the unscheduled plans.
//
// Plans are taken by hours descending, then registration order. Each one gets the
// first conflict-free (day, period, room) in canonical grid order, rooms being tried
// from the smallest adequate capacity up. Commits are visible to the rest of the pass.
// A plan that fits nowhere is marked conflict; the pass never aborts on it.
func (s *Scheduler) ScheduleAll() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{ScheduledPlans: []CoursePlan{}, ConflictPlans: []CoursePlan{}}

	rooms, err := s.candidateRooms()
	if err != nil {
		return sum, err
	}
	pending, err := s.plans.Filter(CoursePlan.Unscheduled)
	if err != nil {
		return sum, errors.Wrap(err, "querying unscheduled plans")
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Hours != pending[j].Hours {
			return pending[i].Hours > pending[j].Hours
		}
		return pending[i].Seq < pending[j].Seq
	})

	cells := s.grid.Cells()
	for _, plan := range pending {
		sum.Attempted++

		placed, err := s.place(plan, cells, rooms)
		if err != nil {
			return sum, err
		}
		if placed != nil {
			sum.Scheduled++
			sum.ScheduledPlans = append(sum.ScheduledPlans, *placed)
			continue
		}

		reason := fmt.Sprintf("no free slot for teacher %s and section %s", plan.TeacherID, plan.SectionID)
		if !fitsAny(plan, rooms) {
			reason = fmt.Sprintf("no available room seats %d students", plan.RosterSize)
		}
		flagged, err := s.plans.Update(plan.ID, func(p *CoursePlan) error {
			p.Status = StatusConflict
			p.ConflictReason = null.StringFrom(reason)
			p.UpdatedAt = NowFunc().UTC()
			return nil
		})
		if err != nil {
			return sum, errors.Wrapf(err, "flagging plan %s", plan.ID)
		}
		sum.Conflicts++
		sum.ConflictPlans = append(sum.ConflictPlans, flagged)
	}

	s.notify(sum)
	return sum, nil
}

// place commits plan to the first free (day, period, room) and returns it,
// or returns nil when nothing fits.
func (s *Scheduler) place(plan CoursePlan, cells []Cell, rooms []school.Classroom) (*CoursePlan, error) {
	for _, cell := range cells {
		// read the latest committed state for every plan
		occupying, err := s.plans.Filter(CoursePlan.Occupies)
		if err != nil {
			return nil, errors.Wrap(err, "querying scheduled plans")
		}
		for _, room := range rooms {
			slot := Slot{Day: cell.Day, Period: cell.Period, RoomID: room.ID}
			if check(plan, slot, room, occupying) != nil {
				continue
			}
			committed, err := s.commit(plan.ID, slot)
			if err != nil {
				return nil, errors.Wrapf(err, "scheduling plan %s", plan.ID)
			}
			return &committed, nil
		}
	}
	return nil, nil
}

// candidateRooms returns the available rooms, smallest capacity first.
func (s *Scheduler) candidateRooms() ([]school.Classroom, error) {
	all, err := s.rooms.ListClassrooms()
	if err != nil {
		return nil, errors.Wrap(err, "listing rooms")
	}
	rooms := make([]school.Classroom, 0, len(all))
	for _, r := range all {
		if r.IsAvailable() {
			rooms = append(rooms, r)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Capacity != rooms[j].Capacity {
			return rooms[i].Capacity < rooms[j].Capacity
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func fitsAny(plan CoursePlan, rooms []school.Classroom) bool {
	for _, r := range rooms {
		if r.Capacity >= plan.RosterSize {
			return true
		}
	}
	return false
}

func (s *Scheduler) notify(sum Summary) {
	switch {
	case sum.Attempted == 0:
		s.notifier.Notify(core.NotifyInfo, "no plan to schedule")
	case sum.Conflicts == 0:
		s.notifier.Notify(core.NotifySuccess, fmt.Sprintf("scheduled %d plans", sum.Scheduled))
	default:
		s.notifier.Notify(core.NotifyWarning, fmt.Sprintf(
			"scheduled %d of %d plans, %d left in conflict", sum.Scheduled, sum.Attempted, sum.Conflicts))
	}
}

// ConflictReport derives the conflict report from the current state of the plans.
func (s *Scheduler) ConflictReport() ([]ConflictEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plans, err := s.plans.List()
	if err != nil {
		return nil, errors.Wrap(err, "listing plans")
	}
	return report(s.grid, plans), nil
}
