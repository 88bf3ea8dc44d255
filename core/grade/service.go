package grade

import (
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	"github.com/trezcool/scolarite/core/school"
)

var (
	NowFunc = time.Now // mockable

	// ErrInvalidTransition is returned when an action does not apply to a record's current status.
	ErrInvalidTransition = errors.New("invalid grade status transition")
)

type (
	// Directory resolves the courses grade records refer to.
	Directory interface {
		GetCourse(id string) (school.Course, error)
	}

	// Roster lists the students currently enrolled in a course.
	Roster interface {
		Active(courseID string) ([]enrollment.Enrollment, error)
	}

	Repositories struct {
		Grades    core.Repository[GradeRecord]
		Trail     core.Repository[AuditEntry]
		History   core.Repository[PublishEntry]
		Decisions core.Repository[AnomalyDecision]
	}

	// Service carries grade records through review and publication.
	Service struct {
		mu         sync.Mutex
		repos      Repositories
		dir        Directory
		roster     Roster
		thresholds Thresholds
		notifier   core.Notifier
	}
)

func NewService(repos Repositories, dir Directory, roster Roster, th Thresholds, notifier core.Notifier) (*Service, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(repos.Grades, "repos.Grades"),
		vala.IsNotNil(repos.Trail, "repos.Trail"),
		vala.IsNotNil(repos.History, "repos.History"),
		vala.IsNotNil(repos.Decisions, "repos.Decisions"),
		vala.IsNotNil(dir, "dir"),
		vala.IsNotNil(roster, "roster"),
	).Check()
	if err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = core.NopNotifier{}
	}
	return &Service{repos: repos, dir: dir, roster: roster, thresholds: th, notifier: notifier}, nil
}

func (svc *Service) Thresholds() Thresholds {
	return svc.thresholds
}

// Submit records a pending grade record. Every scored student must be enrolled in the course.
func (svc *Service) Submit(ng NewGradeRecord) (GradeRecord, error) {
	ng.CourseID = core.CleanString(ng.CourseID)
	ng.TeacherID = core.CleanString(ng.TeacherID)
	if err := core.Validate.Struct(ng); err != nil {
		return GradeRecord{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	course, err := svc.dir.GetCourse(ng.CourseID)
	if err != nil {
		return GradeRecord{}, errors.Wrap(err, "getting course")
	}
	if err := svc.checkRoster(course.ID, ng.Scores); err != nil {
		return GradeRecord{}, err
	}

	semester := core.CleanString(ng.Semester)
	if semester == "" {
		semester = course.Semester
	}
	rec := GradeRecord{
		ID:            core.NewID(),
		CourseID:      course.ID,
		TeacherID:     ng.TeacherID,
		Semester:      semester,
		Scores:        append([]StudentScore(nil), ng.Scores...),
		AuditStatus:   AuditPending,
		PublishStatus: Unpublished,
		SubmittedAt:   NowFunc().UTC(),
	}
	found, err := svc.detect(rec)
	if err != nil {
		return GradeRecord{}, err
	}
	if typ := anomalyType(found); typ != "" {
		rec.AnomalyType = null.StringFrom(typ)
	}
	return svc.repos.Grades.Add(rec)
}

func (svc *Service) checkRoster(courseID string, scores []StudentScore) error {
	active, err := svc.roster.Active(courseID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	enrolled := make(map[string]bool, len(active))
	for _, e := range active {
		enrolled[e.StudentID] = true
	}
	seen := make(map[string]bool, len(scores))
	for i, s := range scores {
		fld := fmt.Sprintf("scores[%d].student_id", i)
		if seen[s.StudentID] {
			return core.NewValidationError(nil, core.FieldError{Field: fld, Error: "student scored twice"})
		}
		seen[s.StudentID] = true
		if !enrolled[s.StudentID] {
			return core.NewValidationError(nil, core.FieldError{
				Field: fld,
				Error: fmt.Sprintf("student %s is not enrolled in course %s", s.StudentID, courseID),
			})
		}
	}
	return nil
}

func (svc *Service) Get(id string) (GradeRecord, error) {
	return svc.repos.Grades.Get(core.CleanString(id))
}

func (svc *Service) List(filter QueryFilter) ([]GradeRecord, error) {
	return svc.repos.Grades.Filter(filter.Match)
}

// Review records a reviewer decision on a pending record.
func (svc *Service) Review(id, decision string, reviewer core.Actor, comment string) (GradeRecord, error) {
	comment = core.CleanString(comment)
	var flds []core.FieldError
	switch decision {
	case AuditApproved, AuditRejected, AuditNeedRevision:
	default:
		flds = append(flds, core.FieldError{Field: "decision", Error: "must be one of approved, rejected, need_revision"})
	}
	if comment == "" {
		flds = append(flds, core.FieldError{Field: "comment", Error: "a review comment is required"})
	}
	if len(flds) > 0 {
		return GradeRecord{}, core.NewValidationError(nil, flds...)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := NowFunc().UTC()
	rec, err := svc.repos.Grades.Update(core.CleanString(id), func(g *GradeRecord) error {
		if g.AuditStatus != AuditPending {
			return errors.Wrapf(ErrInvalidTransition, "cannot review a %s record", g.AuditStatus)
		}
		g.AuditStatus = decision
		g.ReviewedAt = null.TimeFrom(now)
		return nil
	})
	if err != nil {
		return GradeRecord{}, err
	}

	if _, err := svc.repos.Trail.Add(AuditEntry{
		ID:       core.NewID(),
		GradeID:  rec.ID,
		Decision: decision,
		Comment:  comment,
		Reviewer: reviewer,
		At:       now,
	}); err != nil {
		return GradeRecord{}, errors.Wrap(err, "appending audit entry")
	}

	svc.notifier.Notify(core.NotifySuccess, fmt.Sprintf("grade record %s %s by %s", rec.ID, decision, reviewer.DisplayName))
	return rec, nil
}

// Publish makes an approved record visible to students.
func (svc *Service) Publish(id string, publisher core.Actor) (GradeRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rec, err := svc.publish(core.CleanString(id), publisher)
	if err != nil {
		return GradeRecord{}, err
	}
	svc.notifier.Notify(core.NotifySuccess, fmt.Sprintf("grade record %s published", rec.ID))
	return rec, nil
}

func (svc *Service) publish(id string, publisher core.Actor) (GradeRecord, error) {
	now := NowFunc().UTC()
	rec, err := svc.repos.Grades.Update(id, func(g *GradeRecord) error {
		if g.AuditStatus != AuditApproved {
			return errors.Wrapf(ErrInvalidTransition, "cannot publish a %s record", g.AuditStatus)
		}
		if g.PublishStatus == Published {
			return errors.Wrap(ErrInvalidTransition, "record already published")
		}
		g.PublishStatus = Published
		g.PublishedAt = null.TimeFrom(now)
		return nil
	})
	if err != nil {
		return GradeRecord{}, err
	}
	if err := svc.appendHistory(rec, ActionPublish, publisher, "", now); err != nil {
		return GradeRecord{}, err
	}
	return rec, nil
}

// Withdraw takes a published record back.
func (svc *Service) Withdraw(id string, actor core.Actor, reason string) (GradeRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := NowFunc().UTC()
	rec, err := svc.repos.Grades.Update(core.CleanString(id), func(g *GradeRecord) error {
		if g.PublishStatus != Published {
			return errors.Wrap(ErrInvalidTransition, "record is not published")
		}
		g.PublishStatus = Unpublished
		g.PublishedAt = null.Time{}
		return nil
	})
	if err != nil {
		return GradeRecord{}, err
	}
	if err := svc.appendHistory(rec, ActionWithdraw, actor, core.CleanString(reason), now); err != nil {
		return GradeRecord{}, err
	}
	svc.notifier.Notify(core.NotifyInfo, fmt.Sprintf("grade record %s withdrawn", rec.ID))
	return rec, nil
}

func (svc *Service) appendHistory(rec GradeRecord, action string, actor core.Actor, reason string, at time.Time) error {
	_, err := svc.repos.History.Add(PublishEntry{
		ID:               core.NewID(),
		GradeID:          rec.ID,
		Action:           action,
		Actor:            actor,
		AffectedStudents: len(rec.Scores),
		Reason:           reason,
		At:               at,
	})
	return errors.Wrap(err, "appending publish entry")
}

// BatchPublish publishes each record independently; failures never undo successes.
func (svc *Service) BatchPublish(ids []string, publisher core.Actor) BatchResult {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	res := BatchResult{Succeeded: []GradeRecord{}, Failed: []BatchFailure{}}
	for _, id := range ids {
		rec, err := svc.publish(core.CleanString(id), publisher)
		if err != nil {
			res.Failed = append(res.Failed, BatchFailure{ID: id, Error: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, rec)
	}

	kind := core.NotifySuccess
	if len(res.Failed) > 0 {
		kind = core.NotifyWarning
		if len(res.Succeeded) == 0 {
			kind = core.NotifyError
		}
	}
	svc.notifier.Notify(kind, fmt.Sprintf("published %d of %d grade records", len(res.Succeeded), len(ids)))
	return res
}

// Trail returns the audit entries of a record, oldest first.
func (svc *Service) Trail(id string) ([]AuditEntry, error) {
	id = core.CleanString(id)
	return svc.repos.Trail.Filter(func(e AuditEntry) bool { return e.GradeID == id })
}

// History returns the publish entries of a record, oldest first.
func (svc *Service) History(id string) ([]PublishEntry, error) {
	id = core.CleanString(id)
	return svc.repos.History.Filter(func(e PublishEntry) bool { return e.GradeID == id })
}

// detect derives the anomalies of rec from the current state.
func (svc *Service) detect(rec GradeRecord) ([]AnomalyRecord, error) {
	found := DetectAnomalies(rec.ID, rec.Statistics(), svc.thresholds)

	past, err := svc.repos.Grades.Filter(func(g GradeRecord) bool {
		return g.ID != rec.ID && g.Settled()
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying past records")
	}
	return append(found, DetectFluctuations(rec, NewBaselines(past), svc.thresholds.FluctuationDelta)...), nil
}

// Anomalies derives the anomalies of a record, with their reviewer decisions.
func (svc *Service) Anomalies(id string) ([]AnomalyRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	rec, err := svc.repos.Grades.Get(core.CleanString(id))
	if err != nil {
		return nil, err
	}
	return svc.anomalies(rec)
}

func (svc *Service) anomalies(rec GradeRecord) ([]AnomalyRecord, error) {
	found, err := svc.detect(rec)
	if err != nil {
		return nil, err
	}
	decisions, err := svc.repos.Decisions.Filter(func(d AnomalyDecision) bool { return d.GradeID == rec.ID })
	if err != nil {
		return nil, errors.Wrap(err, "querying anomaly decisions")
	}
	byKey := make(map[string]AnomalyDecision, len(decisions))
	for _, d := range decisions {
		byKey[d.ID] = d
	}
	for i := range found {
		if d, ok := byKey[found[i].key()]; ok {
			reviewer := d.Reviewer
			found[i].Decision = null.StringFrom(d.Decision)
			found[i].Comment = d.Comment
			found[i].Reviewer = &reviewer
			found[i].ResolvedAt = null.TimeFrom(d.At)
		}
	}
	return found, nil
}

// AllAnomalies derives the anomalies of every record matching filter.
func (svc *Service) AllAnomalies(filter QueryFilter) ([]AnomalyRecord, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	recs, err := svc.repos.Grades.Filter(filter.Match)
	if err != nil {
		return nil, err
	}
	all := make([]AnomalyRecord, 0)
	for _, rec := range recs {
		found, err := svc.anomalies(rec)
		if err != nil {
			return nil, err
		}
		all = append(all, found...)
	}
	return all, nil
}

// ResolveAnomaly records (or replaces) a reviewer decision on one of a record's current anomalies.
func (svc *Service) ResolveAnomaly(id string, ra ResolveAnomaly, reviewer core.Actor) (AnomalyRecord, error) {
	ra.StudentID = core.CleanString(ra.StudentID)
	if err := core.Validate.Struct(ra); err != nil {
		return AnomalyRecord{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	rec, err := svc.repos.Grades.Get(core.CleanString(id))
	if err != nil {
		return AnomalyRecord{}, err
	}
	found, err := svc.detect(rec)
	if err != nil {
		return AnomalyRecord{}, err
	}
	key := anomalyKey(rec.ID, ra.Type, ra.StudentID)
	var target *AnomalyRecord
	for i := range found {
		if found[i].key() == key {
			target = &found[i]
			break
		}
	}
	if target == nil {
		return AnomalyRecord{}, errors.Wrapf(core.ErrNotFound, "anomaly %s", key)
	}

	d := AnomalyDecision{
		ID:        key,
		GradeID:   rec.ID,
		Type:      ra.Type,
		StudentID: ra.StudentID,
		Decision:  ra.Decision,
		Comment:   core.CleanString(ra.Comment),
		Reviewer:  reviewer,
		At:        NowFunc().UTC(),
	}
	if _, err := svc.repos.Decisions.Update(key, func(old *AnomalyDecision) error {
		*old = d
		return nil
	}); err != nil {
		if !core.IsNotFound(err) {
			return AnomalyRecord{}, err
		}
		if _, err := svc.repos.Decisions.Add(d); err != nil {
			return AnomalyRecord{}, err
		}
	}

	target.Decision = null.StringFrom(d.Decision)
	target.Comment = d.Comment
	target.Reviewer = &reviewer
	target.ResolvedAt = null.TimeFrom(d.At)
	return *target, nil
}
