package inmemdb

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/school"
	"github.com/trezcool/scolarite/core/timetable"
	"github.com/trezcool/scolarite/core/user"
)

// Collection keys, as saved in a core.Storage.
const (
	KeyStudents         = "students"
	KeyTeachers         = "teachers"
	KeyClassrooms       = "classrooms"
	KeyCourses          = "courses"
	KeySections         = "sections"
	KeyPlans            = "plans"
	KeyEnrollments      = "enrollments"
	KeyGrades           = "grades"
	KeyAuditTrail       = "audit_trail"
	KeyPublishHistory   = "publish_history"
	KeyAnomalyDecisions = "anomaly_decisions"
	KeyUsers            = "users"
)

type (
	collection interface {
		key() string
		encode() ([]byte, error)
		decode(data []byte) error
		Len() int
	}

	DB struct {
		students    *table[school.Student]
		teachers    *table[school.Teacher]
		classrooms  *table[school.Classroom]
		courses     *table[school.Course]
		sections    *table[school.Section]
		plans       *table[timetable.CoursePlan]
		enrollments *table[enrollment.Enrollment]
		grades      *table[grade.GradeRecord]
		trail       *table[grade.AuditEntry]
		history     *table[grade.PublishEntry]
		decisions   *table[grade.AnomalyDecision]
		users       userTable

		collections []collection
	}

	userTable struct {
		*table[user.User]
	}

	// storedUser keeps the password hash, which User never serializes.
	storedUser struct {
		user.User
		PasswordHash []byte `json:"password_hash"`
	}
)

var (
	_ core.Repository[school.Student]        = (*table[school.Student])(nil) // interface compliance check
	_ core.Repository[timetable.CoursePlan]  = (*table[timetable.CoursePlan])(nil)
	_ core.Repository[enrollment.Enrollment] = (*table[enrollment.Enrollment])(nil)
	_ core.Repository[user.User]             = userTable{}
)

func Open() (*DB, error) {
	db := &DB{
		students:    newTable(KeyStudents, func(s school.Student) string { return s.ID }, nil),
		teachers:    newTable(KeyTeachers, func(t school.Teacher) string { return t.ID }, school.CloneTeacher),
		classrooms:  newTable(KeyClassrooms, func(c school.Classroom) string { return c.ID }, nil),
		courses:     newTable(KeyCourses, func(c school.Course) string { return c.ID }, nil),
		sections:    newTable(KeySections, func(s school.Section) string { return s.ID }, nil),
		plans:       newTable(KeyPlans, func(p timetable.CoursePlan) string { return p.ID }, timetable.ClonePlan),
		enrollments: newTable(KeyEnrollments, func(e enrollment.Enrollment) string { return e.ID }, nil),
		grades:      newTable(KeyGrades, func(g grade.GradeRecord) string { return g.ID }, grade.Clone),
		trail:       newTable(KeyAuditTrail, func(e grade.AuditEntry) string { return e.ID }, nil),
		history:     newTable(KeyPublishHistory, func(e grade.PublishEntry) string { return e.ID }, nil),
		decisions:   newTable(KeyAnomalyDecisions, func(d grade.AnomalyDecision) string { return d.ID }, nil),
		users:       userTable{newTable(KeyUsers, func(u user.User) string { return u.ID }, user.Clone)},
	}
	db.collections = []collection{
		db.sections, db.teachers, db.classrooms, db.students, db.courses, db.plans,
		db.enrollments, db.grades, db.trail, db.history, db.decisions, db.users,
	}
	return db, nil
}

func (db *DB) SchoolRepositories() school.Repositories {
	return school.Repositories{
		Students:   db.students,
		Teachers:   db.teachers,
		Classrooms: db.classrooms,
		Courses:    db.courses,
		Sections:   db.sections,
	}
}

func (db *DB) GradeRepositories() grade.Repositories {
	return grade.Repositories{
		Grades:    db.grades,
		Trail:     db.trail,
		History:   db.history,
		Decisions: db.decisions,
	}
}

func (db *DB) Plans() core.Repository[timetable.CoursePlan] {
	return db.plans
}

func (db *DB) Enrollments() core.Repository[enrollment.Enrollment] {
	return db.enrollments
}

func (db *DB) Users() user.Repository {
	return db.users
}

// Keys returns the keys of every collection, in load order.
func (db *DB) Keys() []string {
	keys := make([]string, 0, len(db.collections))
	for _, c := range db.collections {
		keys = append(keys, c.key())
	}
	return keys
}

// Counts returns the number of records of every collection.
func (db *DB) Counts() map[string]int {
	counts := make(map[string]int, len(db.collections))
	for _, c := range db.collections {
		counts[c.key()] = c.Len()
	}
	return counts
}

// Load replaces the collections with the ones saved in store.
// It returns the keys store had nothing saved under; those collections are left as they were.
func (db *DB) Load(ctx context.Context, store core.Storage) ([]string, error) {
	var missing []string
	for _, c := range db.collections {
		data, err := store.Load(ctx, c.key())
		if err != nil {
			if errors.Cause(err) == core.ErrNoData {
				missing = append(missing, c.key())
				continue
			}
			return nil, errors.Wrapf(err, "loading %s", c.key())
		}
		if err := c.decode(data); err != nil {
			return nil, err
		}
	}
	return missing, nil
}

// Save writes the given collections to store, or all of them if no key is given.
func (db *DB) Save(ctx context.Context, store core.Storage, keys ...string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for _, c := range db.collections {
		if len(keys) > 0 && !want[c.key()] {
			continue
		}
		data, err := c.encode()
		if err != nil {
			return errors.Wrapf(err, "encoding %s", c.key())
		}
		if err := store.Save(ctx, c.key(), data); err != nil {
			return errors.Wrapf(err, "saving %s", c.key())
		}
	}
	return nil
}

func (t userTable) encode() ([]byte, error) {
	users, _ := t.List()
	stored := make([]storedUser, 0, len(users))
	for _, u := range users {
		stored = append(stored, storedUser{User: u, PasswordHash: u.PasswordHash})
	}
	return json.Marshal(stored)
}

func (t userTable) decode(data []byte) error {
	var stored []storedUser
	if err := json.Unmarshal(data, &stored); err != nil {
		return errors.Wrapf(err, "decoding %s", t.name)
	}
	users := make([]user.User, 0, len(stored))
	for _, s := range stored {
		u := s.User
		u.PasswordHash = s.PasswordHash
		users = append(users, u)
	}
	return t.replace(users)
}
