package school

import (
	"strings"

	"github.com/trezcool/scolarite/core"
)

// StudentFilter applies AND operation on its set fields.
// Search does a case-insensitive match on the Student's id or name.
type StudentFilter struct {
	Search    string `query:"search"`
	SectionID string `query:"section_id"`
	Major     string `query:"major"`
	Status    string `query:"status"`
}

func (f StudentFilter) Match(s Student) bool {
	return matchSearch(f.Search, s.ID, s.Name) &&
		matchExact(f.SectionID, s.SectionID) &&
		matchExact(f.Major, s.Major) &&
		matchExact(f.Status, s.Status)
}

type TeacherFilter struct {
	Search     string `query:"search"`
	Department string `query:"department"`
	Subject    string `query:"subject"`
	Status     string `query:"status"`
	// MinRemaining keeps teachers with at least that many workload hours left.
	MinRemaining int `query:"min_remaining"`
}

func (f TeacherFilter) Match(t Teacher) bool {
	if f.Subject != "" {
		var teaches bool
		for _, s := range t.Subjects {
			if strings.EqualFold(s, f.Subject) {
				teaches = true
				break
			}
		}
		if !teaches {
			return false
		}
	}
	return matchSearch(f.Search, t.ID, t.Name) &&
		matchExact(f.Department, t.Department) &&
		matchExact(f.Status, t.Status) &&
		t.RemainingWorkload() >= f.MinRemaining
}

type ClassroomFilter struct {
	Search      string `query:"search"`
	Building    string `query:"building"`
	Type        string `query:"type"`
	Status      string `query:"status"`
	MinCapacity int    `query:"min_capacity"`
}

func (f ClassroomFilter) Match(c Classroom) bool {
	return matchSearch(f.Search, c.ID, c.Name) &&
		matchExact(f.Building, c.Building) &&
		matchExact(f.Type, c.Type) &&
		matchExact(f.Status, c.Status) &&
		c.Capacity >= f.MinCapacity
}

type CourseFilter struct {
	Search    string `query:"search"`
	TeacherID string `query:"teacher_id"`
	Type      string `query:"type"`
	Status    string `query:"status"`
	Semester  string `query:"semester"`
}

func (f CourseFilter) Match(c Course) bool {
	return matchSearch(f.Search, c.ID, c.Code, c.Name) &&
		matchExact(f.TeacherID, c.TeacherID) &&
		matchExact(f.Type, c.Type) &&
		matchExact(f.Status, c.Status) &&
		matchExact(f.Semester, c.Semester)
}

type SectionFilter struct {
	Search string `query:"search"`
	Major  string `query:"major"`
	Year   int    `query:"year"`
}

func (f SectionFilter) Match(s Section) bool {
	return matchSearch(f.Search, s.ID, s.Name) &&
		matchExact(f.Major, s.Major) &&
		(f.Year == 0 || f.Year == s.Year)
}

func matchSearch(search string, fields ...string) bool {
	search = core.CleanString(search, true /* lower */)
	if search == "" {
		return true
	}
	for _, fld := range fields {
		if strings.Contains(strings.ToLower(fld), search) {
			return true
		}
	}
	return false
}

func matchExact(want, got string) bool {
	return want == "" || want == got
}
