package enrollment_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	"github.com/trezcool/scolarite/core/school"
	"github.com/trezcool/scolarite/tests"
)

func setup(t *testing.T, students int, courses ...school.NewCourse) *enrollment.Ledger {
	db := testutil.OpenDB(t)
	svc := school.NewService(db.SchoolRepositories())
	for i := 1; i <= students; i++ {
		_, err := svc.AddStudent(school.NewStudent{ID: fmt.Sprintf("S%02d", i), Name: "Student"})
		require.NoError(t, err)
	}
	for _, nc := range courses {
		_, err := svc.AddCourse(nc)
		require.NoError(t, err)
	}
	l, err := enrollment.NewLedger(db.Enrollments(), svc)
	require.NoError(t, err)
	return l
}

func course(id string, capacity int) school.NewCourse {
	return school.NewCourse{ID: id, Code: id, Name: id, Capacity: capacity}
}

func intPtr(i int) *int { return &i }

func TestLedger_Enroll(t *testing.T) {
	now := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	enrollment.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { enrollment.NowFunc = time.Now })

	ended := course("ENDED", 10)
	ended.Status = school.CourseEnded
	late := course("LATE", 10)
	late.EnrollmentDeadline = null.TimeFrom(now.Add(-time.Hour))
	open := course("OPEN", 10)
	open.EnrollmentDeadline = null.TimeFrom(now.Add(time.Hour))

	l := setup(t, 3, course("C1", 2), ended, late, open)

	tests := []struct {
		name      string
		studentID string
		courseID  string
		wantErr   error
	}{
		{name: "first", studentID: "S01", courseID: "C1"},
		{name: "twice", studentID: "S01", courseID: "C1", wantErr: enrollment.ErrAlreadyEnrolled},
		{name: "second", studentID: " S02 ", courseID: "C1"},
		{name: "full", studentID: "S03", courseID: "C1", wantErr: enrollment.ErrCapacityExceeded},
		{name: "ended course", studentID: "S01", courseID: "ENDED", wantErr: enrollment.ErrCourseClosed},
		{name: "deadline passed", studentID: "S01", courseID: "LATE", wantErr: enrollment.ErrCourseClosed},
		{name: "before deadline", studentID: "S01", courseID: "OPEN"},
		{name: "unknown student", studentID: "S99", courseID: "C1", wantErr: core.ErrNotFound},
		{name: "unknown course", studentID: "S01", courseID: "C9", wantErr: core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := l.Enroll(tt.studentID, tt.courseID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, enrollment.StatusEnrolled, e.Status)
			assert.Equal(t, now, e.EnrolledAt)
			assert.False(t, e.DroppedAt.Valid)
		})
	}

	n, err := l.CountActive("C1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestLedger_Drop(t *testing.T) {
	l := setup(t, 3, course("C1", 2))

	for _, id := range []string{"S01", "S02"} {
		_, err := l.Enroll(id, "C1")
		require.NoError(t, err)
	}

	_, err := l.Drop("S03", "C1")
	assert.Equal(t, enrollment.ErrNotEnrolled, errors.Cause(err))

	dropped, err := l.Drop("S01", "C1")
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusDropped, dropped.Status)
	assert.True(t, dropped.DroppedAt.Valid)

	_, err = l.Drop("S01", "C1")
	assert.Equal(t, enrollment.ErrNotEnrolled, errors.Cause(err), "already dropped")

	// the freed seat can be taken again
	_, err = l.Enroll("S03", "C1")
	require.NoError(t, err)
	_, err = l.Enroll("S01", "C1")
	assert.Equal(t, enrollment.ErrCapacityExceeded, errors.Cause(err))

	// active count is enrolls minus drops
	n, err := l.CountActive("C1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := l.All()
	require.NoError(t, err)
	assert.Len(t, all, 3, "rows are never removed")

	history, err := l.History("S01")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enrollment.StatusDropped, history[0].Status)

	_, err = l.Drop("S02", "C1")
	require.NoError(t, err)
	re, err := l.Enroll("S01", "C1")
	require.NoError(t, err)
	assert.NotEqual(t, dropped.ID, re.ID, "re-enrolling appends a new row")

	history, err = l.History("S01")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	courses, err := l.StudentCourses("S01")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, courses)

	active, err := l.Active("C1")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "S03", active[0].StudentID, "enrollment order")
	assert.Equal(t, "S01", active[1].StudentID)
}

func TestLedger_Enroll_concurrent(t *testing.T) {
	l := setup(t, 20, course("C1", 5))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enrolled int
	)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := l.Enroll(id, "C1"); err == nil {
				mu.Lock()
				enrolled++
				mu.Unlock()
			}
		}(fmt.Sprintf("S%02d", i))
	}
	wg.Wait()

	assert.Equal(t, 5, enrolled)
	n, err := l.CountActive("C1")
	require.NoError(t, err)
	assert.Equal(t, 5, n, "capacity is never exceeded")
}

func TestNewLedger(t *testing.T) {
	_, err := enrollment.NewLedger(nil, nil)
	assert.Error(t, err)
}

func TestLedger_courseCapacityUpdate(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := school.NewService(db.SchoolRepositories())
	for _, id := range []string{"S1", "S2"} {
		_, err := svc.AddStudent(school.NewStudent{ID: id, Name: "Student"})
		require.NoError(t, err)
	}
	_, err := svc.AddCourse(course("C", 2))
	require.NoError(t, err)
	l, err := enrollment.NewLedger(db.Enrollments(), svc)
	require.NoError(t, err)
	svc.SetEnrollmentCounter(l)

	_, err = l.Enroll("S1", "C")
	require.NoError(t, err)
	_, err = l.Enroll("S2", "C")
	require.NoError(t, err)

	_, err = svc.UpdateCourse("C", school.UpdateCourse{Capacity: intPtr(1)})
	assert.True(t, core.IsValidationError(err))
	c, err := svc.GetCourse("C")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Capacity)

	_, err = l.Drop("S2", "C")
	require.NoError(t, err)
	c, err = svc.UpdateCourse("C", school.UpdateCourse{Capacity: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, c.Capacity)
	n, err := l.CountActive("C")
	require.NoError(t, err)
	assert.LessOrEqual(t, n, c.Capacity)
}
