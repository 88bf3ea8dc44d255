package inmemdb

import (
	"encoding/json"
	"io/fs"
	"path"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/school"
	"github.com/trezcool/scolarite/core/timetable"
	"github.com/trezcool/scolarite/core/user"
	"github.com/trezcool/scolarite/fs"
)

var NowFunc = time.Now // mockable

type seedUser struct {
	user.User
	Password string `json:"password"`
}

// Seed fills the given collections, or all of them if no key is given, with the
// default data embedded in the binary. Collections without seed data are emptied.
func (db *DB) Seed(keys ...string) error {
	return db.SeedFS(appfs.FS, "seed", keys...)
}

// SeedFS is Seed reading the data files <key>.yaml from dir in fsys.
func (db *DB) SeedFS(fsys fs.FS, dir string, keys ...string) error {
	if len(keys) == 0 {
		keys = db.Keys()
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	// follow load order so that plans see the seeded teachers
	for _, key := range db.Keys() {
		if !want[key] {
			continue
		}
		var err error
		switch key {
		case KeyStudents:
			err = seedTable(fsys, dir, db.students, nil)
		case KeyTeachers:
			err = seedTable(fsys, dir, db.teachers, func(t *school.Teacher) { t.CurrentWorkload = 0 })
		case KeyClassrooms:
			err = seedTable(fsys, dir, db.classrooms, nil)
		case KeyCourses:
			err = seedTable(fsys, dir, db.courses, nil)
		case KeySections:
			err = seedTable(fsys, dir, db.sections, nil)
		case KeyPlans:
			err = db.seedPlans(fsys, dir)
		case KeyEnrollments:
			now := NowFunc().UTC()
			err = seedTable(fsys, dir, db.enrollments, func(e *enrollment.Enrollment) {
				e.ID = withID(e.ID)
				e.Status = withDefault(e.Status, enrollment.StatusEnrolled)
				if e.EnrolledAt.IsZero() {
					e.EnrolledAt = now
				}
			})
		case KeyGrades:
			now := NowFunc().UTC()
			err = seedTable(fsys, dir, db.grades, func(g *grade.GradeRecord) {
				g.ID = withID(g.ID)
				g.AuditStatus = withDefault(g.AuditStatus, grade.AuditPending)
				g.PublishStatus = withDefault(g.PublishStatus, grade.Unpublished)
				if g.SubmittedAt.IsZero() {
					g.SubmittedAt = now
				}
			})
		case KeyAuditTrail:
			err = seedTable(fsys, dir, db.trail, nil)
		case KeyPublishHistory:
			err = seedTable(fsys, dir, db.history, nil)
		case KeyAnomalyDecisions:
			err = seedTable(fsys, dir, db.decisions, nil)
		case KeyUsers:
			err = db.seedUsers(fsys, dir)
		}
		if err != nil {
			return errors.Wrapf(err, "seeding %s", key)
		}
	}
	return nil
}

func (db *DB) seedPlans(fsys fs.FS, dir string) error {
	now := NowFunc().UTC()
	var seq int
	err := seedTable(fsys, dir, db.plans, func(p *timetable.CoursePlan) {
		seq++
		p.ID = withID(p.ID)
		p.Status = withDefault(p.Status, timetable.StatusPending)
		p.Seq = seq
		p.CreatedAt, p.UpdatedAt = now, now
	})
	if err != nil {
		return err
	}

	// charge the seeded plans to their teachers
	plans, _ := db.plans.List()
	for _, p := range plans {
		if p.Status == timetable.StatusCancelled {
			continue
		}
		_, err := db.teachers.Update(p.TeacherID, func(t *school.Teacher) error {
			t.CurrentWorkload += p.Hours
			return nil
		})
		if err != nil && !core.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (db *DB) seedUsers(fsys fs.FS, dir string) error {
	var seeds []seedUser
	if err := readSeed(fsys, dir, KeyUsers, &seeds); err != nil {
		return err
	}
	now := NowFunc().UTC()
	users := make([]user.User, 0, len(seeds))
	for _, s := range seeds {
		u := s.User
		u.ID = withID(u.ID)
		u.IsActive = true
		u.CreatedAt, u.UpdatedAt = now, now
		if err := u.SetPassword(s.Password); err != nil {
			return err
		}
		users = append(users, u)
	}
	return db.users.replace(users)
}

func seedTable[T any](fsys fs.FS, dir string, t *table[T], prepare func(*T)) error {
	var recs []T
	if err := readSeed(fsys, dir, t.name, &recs); err != nil {
		return err
	}
	if prepare != nil {
		for i := range recs {
			prepare(&recs[i])
		}
	}
	return t.replace(recs)
}

// readSeed decodes dir/<key>.yaml into dst, through JSON so the records' json tags apply.
// A missing file leaves dst empty.
func readSeed(fsys fs.FS, dir, key string, dst interface{}) error {
	data, err := fs.ReadFile(fsys, path.Join(dir, key+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	var raw []map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "parsing %s.yaml", key)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(js, dst)
}

func withID(id string) string {
	if id = core.CleanString(id); id != "" {
		return id
	}
	return core.NewID()
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
