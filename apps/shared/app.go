// Package shared wires the core services both apps run on.
package shared

import (
	"context"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/school"
	"github.com/trezcool/scolarite/core/timetable"
	"github.com/trezcool/scolarite/core/user"
	metricsvc "github.com/trezcool/scolarite/services/metrics"
	notifysvc "github.com/trezcool/scolarite/services/notify"
	inmemdb "github.com/trezcool/scolarite/storage/database/inmem"
	"github.com/trezcool/scolarite/storage/kv"
)

// recentNotifications is the number of notifications kept for the API.
const recentNotifications = 50

// App holds the state and services of a running process.
type App struct {
	Conf    *core.Config
	Logger  core.Logger
	DB      *inmemdb.DB
	Store   core.Storage
	Metrics *metricsvc.Metrics
	// Recent keeps the last notifications sent.
	Recent *notifysvc.Recorder

	School    *school.Service
	Ledger    *enrollment.Ledger
	Scheduler *timetable.Scheduler
	Registry  *timetable.Registry
	Grades    *grade.Service
	Users     *user.Service

	saveMu sync.Mutex
}

// New opens the configured storage and builds the App on it.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (*App, error) {
	store, err := kv.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening storage")
	}
	app, err := NewWithStorage(ctx, conf, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// NewWithStorage builds the App on store: saved collections are loaded, missing ones are seeded.
func NewWithStorage(ctx context.Context, conf *core.Config, logger core.Logger, store core.Storage) (*App, error) {
	err := vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(store, "store"),
	).Check()
	if err != nil {
		return nil, err
	}

	db, err := inmemdb.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening in-memory database")
	}
	missing, err := db.Load(ctx, store)
	if err != nil {
		return nil, errors.Wrap(err, "loading collections")
	}
	if len(missing) > 0 {
		logger.Info("seeding collections", map[string]interface{}{"collections": missing})
		if err := db.Seed(missing...); err != nil {
			return nil, errors.Wrap(err, "seeding collections")
		}
		if err := db.Save(ctx, store, missing...); err != nil {
			return nil, errors.Wrap(err, "saving seeded collections")
		}
	}

	app := &App{
		Conf:    conf,
		Logger:  logger,
		DB:      db,
		Store:   store,
		Metrics: metricsvc.New(),
		Recent:  notifysvc.NewRecorder(recentNotifications),
	}
	sinks := notifysvc.Multi{notifysvc.NewConsoleNotifier(logger), app.Recent}
	if conf.SendgridAPIKey != "" {
		sinks = append(sinks, notifysvc.NewEmailNotifier(conf, logger))
	}
	notifier := app.Metrics.Notifier(sinks)

	app.School = school.NewService(db.SchoolRepositories())
	app.Users = user.NewService(db.Users())

	if app.Ledger, err = enrollment.NewLedger(db.Enrollments(), app.School); err != nil {
		return nil, errors.Wrap(err, "creating enrollment ledger")
	}
	app.School.SetEnrollmentCounter(app.Ledger)
	grid := timetable.NewGrid(conf.Schedule)
	if app.Scheduler, err = timetable.NewScheduler(db.Plans(), app.School, grid, notifier); err != nil {
		return nil, errors.Wrap(err, "creating scheduler")
	}
	if app.Registry, err = timetable.NewRegistry(db.Plans(), app.School, app.Scheduler); err != nil {
		return nil, errors.Wrap(err, "creating course-plan registry")
	}
	th := grade.NewThresholds(conf.Audit)
	if app.Grades, err = grade.NewService(db.GradeRepositories(), app.School, app.Ledger, th, notifier); err != nil {
		return nil, errors.Wrap(err, "creating grade service")
	}

	app.Metrics.SetCollections(db.Counts())
	return app, nil
}

// Persist saves every collection to the store.
func (a *App) Persist(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if err := a.DB.Save(ctx, a.Store); err != nil {
		return errors.Wrap(err, "persisting collections")
	}
	a.Metrics.SetCollections(a.DB.Counts())
	return nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
