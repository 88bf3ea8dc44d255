package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/apps/shared"
	"github.com/trezcool/scolarite/core/grade"
	"github.com/trezcool/scolarite/core/timetable"
	exportsvc "github.com/trezcool/scolarite/services/export"
)

type exportApi struct {
	app *shared.App
}

func registerExportAPI(g *echo.Group, app *shared.App) {
	api := exportApi{app: app}

	eg := g.Group("/exports", staffMiddleware())
	eg.GET("/plans", api.plans)
	eg.GET("/timetable", api.timetable)
	eg.GET("/grades", api.grades)
	eg.GET("/grades/:id/scores", api.scores)
}

// ExportQuery selects the format of an export; csv by default.
type ExportQuery struct {
	Format string `query:"format"`
}

func (api *exportApi) plans(ctx echo.Context) error {
	var filter timetable.PlanFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to PlanFilter")
	}
	plans, err := api.app.Registry.List(filter)
	if err != nil {
		return errors.Wrap(err, "listing plans")
	}
	return api.send(ctx, "plans", exportsvc.PlansTable(plans))
}

func (api *exportApi) timetable(ctx echo.Context) error {
	var filter timetable.PlanFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to PlanFilter")
	}
	cells, err := api.app.Registry.Timetable(filter)
	if err != nil {
		return errors.Wrap(err, "building timetable")
	}
	title := "Timetable"
	for _, part := range []string{filter.TeacherID, filter.SectionID, filter.RoomID, filter.Semester} {
		if part != "" {
			title += " " + part
		}
	}
	return api.send(ctx, "timetable", exportsvc.TimetableTable(title, api.app.Scheduler.Grid(), cells))
}

func (api *exportApi) grades(ctx echo.Context) error {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	records, err := api.app.Grades.List(filter)
	if err != nil {
		return errors.Wrap(err, "listing grade records")
	}
	return api.send(ctx, "grades", exportsvc.GradesTable(records))
}

func (api *exportApi) scores(ctx echo.Context) error {
	rec, err := api.app.Grades.Get(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade record")
	}
	return api.send(ctx, "scores-"+rec.ID, exportsvc.ScoresTable([]grade.GradeRecord{rec}))
}

func (api *exportApi) send(ctx echo.Context, name string, t exportsvc.Table) error {
	var q ExportQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to ExportQuery")
	}
	format := strings.ToLower(q.Format)
	if format == "" {
		format = exportsvc.FormatCSV
	}

	var buf bytes.Buffer
	if err := exportsvc.Write(&buf, format, t); err != nil {
		if errors.Cause(err) == exportsvc.ErrUnknownFormat {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrapf(err, "exporting %s", name)
	}

	filename := exportsvc.Filename(name, format, NowFunc())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, exportsvc.ContentType(format), buf.Bytes())
}
