package school_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/school"
	"github.com/trezcool/scolarite/tests"
)

func setup(t *testing.T) *school.Service {
	db := testutil.OpenDB(t, "sections", "teachers", "classrooms", "students", "courses")
	return school.NewService(db.SchoolRepositories())
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestService_students(t *testing.T) {
	svc := setup(t)

	s, err := svc.AddStudent(school.NewStudent{Name: "  Jane Roe ", SectionID: "CS2023A", Year: 2023})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID, "ids are generated")
	assert.Equal(t, "Jane Roe", s.Name)
	assert.Equal(t, school.StudentActive, s.Status)

	_, err = svc.AddStudent(school.NewStudent{ID: s.ID, Name: "Twin"})
	assert.Equal(t, core.ErrDuplicateID, errors.Cause(err))

	_, err = svc.AddStudent(school.NewStudent{Name: " "})
	assert.True(t, core.IsValidationError(err))
	_, err = svc.AddStudent(school.NewStudent{Name: "X", Gender: "Z"})
	assert.True(t, core.IsValidationError(err))

	s, err = svc.UpdateStudent(s.ID, school.UpdateStudent{Status: strPtr(school.StudentSuspended)})
	require.NoError(t, err)
	assert.Equal(t, school.StudentSuspended, s.Status)
	assert.Equal(t, "Jane Roe", s.Name, "unset fields are kept")

	_, err = svc.UpdateStudent("S0", school.UpdateStudent{})
	assert.True(t, core.IsNotFound(err))

	tests := []struct {
		name   string
		filter school.StudentFilter
		want   int
	}{
		{name: "all", filter: school.StudentFilter{}, want: 7},
		{name: "search name", filter: school.StudentFilter{Search: "JANE"}, want: 1},
		{name: "search id", filter: school.StudentFilter{Search: "s20230"}, want: 6},
		{name: "section", filter: school.StudentFilter{SectionID: "CS2023A"}, want: 3},
		{name: "status", filter: school.StudentFilter{Status: school.StudentSuspended}, want: 2},
		{name: "and", filter: school.StudentFilter{SectionID: "CS2023A", Status: school.StudentActive}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.FilterStudents(tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	require.NoError(t, svc.RemoveStudent(s.ID))
	_, err = svc.GetStudent(s.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.RemoveStudent(s.ID)))
}

func TestService_AdjustWorkload(t *testing.T) {
	svc := setup(t)

	tc, err := svc.AddTeacher(school.NewTeacher{ID: "T9", Name: "New Teacher", Subjects: []string{"Logic"}, MaxWorkload: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, tc.RemainingWorkload())

	tests := []struct {
		name    string
		delta   int
		want    int
		wantErr error
	}{
		{name: "charge", delta: 6, want: 6},
		{name: "over max", delta: 5, want: 6, wantErr: school.ErrWorkloadExceeded},
		{name: "up to max", delta: 4, want: 10},
		{name: "release", delta: -3, want: 7},
		{name: "never negative", delta: -20, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdjustWorkload("T9", tt.delta)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			got, err := svc.GetTeacher("T9")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.CurrentWorkload)
		})
	}

	_, err = svc.AdjustWorkload("T9", 4)
	require.NoError(t, err)
	_, err = svc.UpdateTeacher("T9", school.UpdateTeacher{MaxWorkload: intPtr(3)})
	assert.True(t, core.IsValidationError(err), "max workload cannot drop below the current one")
	got, err := svc.UpdateTeacher("T9", school.UpdateTeacher{MaxWorkload: intPtr(4), Subjects: []string{"Logic", "Sets"}})
	require.NoError(t, err)
	assert.Equal(t, 0, got.RemainingWorkload())

	// records handed out are copies
	got.Subjects[0] = "changed"
	again, err := svc.GetTeacher("T9")
	require.NoError(t, err)
	assert.Equal(t, []string{"Logic", "Sets"}, again.Subjects)
}

type activeCounts map[string]int

func (c activeCounts) CountActive(courseID string) (int, error) {
	return c[courseID], nil
}

func TestService_UpdateCourse_capacity(t *testing.T) {
	svc := setup(t)
	_, err := svc.AddCourse(school.NewCourse{ID: "C1", Code: "C1", Name: "Course", Capacity: 5})
	require.NoError(t, err)
	svc.SetEnrollmentCounter(activeCounts{"C1": 3})

	tests := []struct {
		name     string
		capacity int
		want     int
		wantErr  bool
	}{
		{name: "below active", capacity: 2, want: 5, wantErr: true},
		{name: "equal to active", capacity: 3, want: 3},
		{name: "above active", capacity: 8, want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateCourse("C1", school.UpdateCourse{Capacity: intPtr(tt.capacity)})
			if tt.wantErr {
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, "capacity", vErr.Fields[0].Field)
			} else {
				require.NoError(t, err)
			}
			got, err := svc.GetCourse("C1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Capacity)
		})
	}

	_, err = svc.UpdateCourse("C1", school.UpdateCourse{Name: strPtr("Renamed")})
	assert.NoError(t, err, "capacity is only checked when it changes")
}

func TestService_filters(t *testing.T) {
	svc := setup(t)

	teachers, err := svc.FilterTeachers(school.TeacherFilter{Subject: "algorithms"})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "T001", teachers[0].ID)

	teachers, err = svc.FilterTeachers(school.TeacherFilter{Department: "Mathematics", Status: school.TeacherActive})
	require.NoError(t, err)
	assert.Len(t, teachers, 1)

	rooms, err := svc.FilterClassrooms(school.ClassroomFilter{MinCapacity: 60})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = svc.FilterClassrooms(school.ClassroomFilter{Status: school.RoomMaintenance})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "LAB2", rooms[0].ID)
	assert.False(t, rooms[0].IsAvailable())

	courses, err := svc.FilterCourses(school.CourseFilter{TeacherID: "T002"})
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	sections, err := svc.FilterSections(school.SectionFilter{Major: "Computer Science", Year: 2023})
	require.NoError(t, err)
	assert.Len(t, sections, 2)

	c, err := svc.UpdateCourse("CS301", school.UpdateCourse{Status: strPtr(school.CourseEnded)})
	require.NoError(t, err)
	assert.True(t, c.IsClosed(c.EnrollmentDeadline.Time))
}
