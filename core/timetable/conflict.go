package timetable

import (
	"fmt"
	"sort"

	"github.com/trezcool/scolarite/core/school"
)

// collision returns the kind of resource plan p would share with other if p were
// placed at slot, or "" when they do not collide.
// Two plans collide iff they meet at the same (day, period) and share a teacher, a room or a section.
func collision(p CoursePlan, slot Slot, other CoursePlan) string {
	if other.ID == p.ID || !other.Occupies() || !other.Slot.sameTime(slot) {
		return ""
	}
	switch {
	case other.TeacherID == p.TeacherID:
		return KindTeacher
	case other.Slot.RoomID == slot.RoomID:
		return KindRoom
	case other.SectionID == p.SectionID:
		return KindSection
	}
	return ""
}

// check validates placing plan p at slot in room, against the occupying plans.
// It returns nil if the slot is free.
func check(p CoursePlan, slot Slot, room school.Classroom, occupying []CoursePlan) *Conflict {
	if !room.IsAvailable() {
		return &Conflict{
			Kind:  KindRoomUnavailable,
			Slot:  slot,
			Cause: fmt.Sprintf("room %s is %s", room.ID, room.Status),
		}
	}
	if room.Capacity < p.RosterSize {
		return &Conflict{
			Kind:  KindCapacity,
			Slot:  slot,
			Cause: fmt.Sprintf("room %s seats %d, section %s has %d students", room.ID, room.Capacity, p.SectionID, p.RosterSize),
		}
	}
	for _, other := range occupying {
		kind := collision(p, slot, other)
		if kind == "" {
			continue
		}
		return &Conflict{
			Kind:   kind,
			PlanID: other.ID,
			Slot:   slot,
			Cause:  collisionCause(kind, other, slot),
		}
	}
	return nil
}

func collisionCause(kind string, other CoursePlan, slot Slot) string {
	when := DayName(slot.Day) + " " + slot.Period
	switch kind {
	case KindTeacher:
		return fmt.Sprintf("teacher %s already teaches plan %s on %s", other.TeacherID, other.ID, when)
	case KindRoom:
		return fmt.Sprintf("room %s is already used by plan %s on %s", other.Slot.RoomID, other.ID, when)
	default:
		return fmt.Sprintf("section %s already attends plan %s on %s", other.SectionID, other.ID, when)
	}
}

// report groups the occupying plans by teacher, room and section per (day, period)
// and returns one entry per group holding more than one plan.
func report(grid Grid, plans []CoursePlan) []ConflictEntry {
	type key struct {
		kind, resource string
		day            int
		period         string
	}
	groups := make(map[key][]string)
	var keys []key
	add := func(k key, planID string) {
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], planID)
	}

	for _, p := range plans {
		if !p.Occupies() {
			continue
		}
		s := p.Slot
		add(key{KindTeacher, p.TeacherID, s.Day, s.Period}, p.ID)
		add(key{KindRoom, s.RoomID, s.Day, s.Period}, p.ID)
		add(key{KindSection, p.SectionID, s.Day, s.Period}, p.ID)
	}

	kindOrder := map[string]int{KindTeacher: 0, KindRoom: 1, KindSection: 2}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.day != b.day || a.period != b.period {
			return grid.less(a.day, a.period, b.day, b.period)
		}
		if a.kind != b.kind {
			return kindOrder[a.kind] < kindOrder[b.kind]
		}
		return a.resource < b.resource
	})

	entries := make([]ConflictEntry, 0)
	for _, k := range keys {
		ids := groups[k]
		if len(ids) < 2 {
			continue
		}
		entries = append(entries, ConflictEntry{
			Kind:       k.kind,
			ResourceID: k.resource,
			Day:        k.day,
			Period:     k.period,
			PlanIDs:    ids,
			Cause: fmt.Sprintf("%s %s has %d classes on %s %s",
				k.kind, k.resource, len(ids), DayName(k.day), k.period),
		})
	}
	return entries
}
