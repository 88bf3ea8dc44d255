package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/timetable"
	metricsvc "github.com/trezcool/scolarite/services/metrics"
)

type timetableApi struct {
	registry *timetable.Registry
	metrics  *metricsvc.Metrics
}

func registerTimetableAPI(g *echo.Group, registry *timetable.Registry, metrics *metricsvc.Metrics) {
	api := timetableApi{registry: registry, metrics: metrics}

	pg := g.Group("/plans")
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)
	pg.POST("", api.create, adminMiddleware())
	pg.DELETE("/:id", api.destroy, adminMiddleware())
	pg.PUT("/:id/slot", api.assign, adminMiddleware())
	pg.DELETE("/:id/slot", api.unassign, adminMiddleware())
	pg.POST("/:id/complete", api.complete, adminMiddleware())
	pg.POST("/:id/cancel", api.cancel, adminMiddleware())

	g.POST("/schedule", api.scheduleAll, adminMiddleware())
	g.GET("/conflicts", api.conflicts)
	g.GET("/timetable", api.timetable)
	g.GET("/grid", api.grid)
}

type GridResponse struct {
	Days    []string `json:"days"`
	Periods []string `json:"periods"`
}

func (api *timetableApi) query(ctx echo.Context) error {
	var filter timetable.PlanFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []timetable.CoursePlan{})
	}
	plans, err := api.registry.List(filter)
	if err != nil {
		return errors.Wrap(err, "listing plans")
	}
	return ctx.JSON(http.StatusOK, nonNil(plans))
}

func (api *timetableApi) retrieve(ctx echo.Context) error {
	plan, err := api.registry.Get(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *timetableApi) create(ctx echo.Context) error {
	var data timetable.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	plan, err := api.registry.AddPlan(data)
	if err != nil {
		return errors.Wrap(err, "adding plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *timetableApi) destroy(ctx echo.Context) error {
	if err := api.registry.RemovePlan(ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing plan")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// assign answers 200 whether the slot was taken or not: a conflict is reported in the body.
func (api *timetableApi) assign(ctx echo.Context) error {
	var slot timetable.Slot
	if err := ctx.Bind(&slot); err != nil {
		return errors.Wrap(err, "binding to Slot")
	}
	res, err := api.registry.AssignSlot(ctx.Param("id"), slot)
	if err != nil {
		return errors.Wrap(err, "assigning slot")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *timetableApi) unassign(ctx echo.Context) error {
	plan, err := api.registry.Unassign(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "unassigning slot")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *timetableApi) complete(ctx echo.Context) error {
	plan, err := api.registry.Complete(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "completing plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *timetableApi) cancel(ctx echo.Context) error {
	plan, err := api.registry.Cancel(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *timetableApi) scheduleAll(ctx echo.Context) error {
	sum, err := api.registry.Scheduler().ScheduleAll()
	if err != nil {
		return errors.Wrap(err, "scheduling plans")
	}
	api.metrics.ObserveSchedule(sum)
	return ctx.JSON(http.StatusOK, sum)
}

func (api *timetableApi) conflicts(ctx echo.Context) error {
	entries, err := api.registry.Scheduler().ConflictReport()
	if err != nil {
		return errors.Wrap(err, "sweeping conflicts")
	}
	return ctx.JSON(http.StatusOK, nonNil(entries))
}

func (api *timetableApi) timetable(ctx echo.Context) error {
	var filter timetable.PlanFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to PlanFilter")
	}
	cells, err := api.registry.Timetable(filter)
	if err != nil {
		return errors.Wrap(err, "building timetable")
	}
	return ctx.JSON(http.StatusOK, nonNil(cells))
}

func (api *timetableApi) grid(ctx echo.Context) error {
	grid := api.registry.Scheduler().Grid()
	days := make([]string, 0, grid.Days)
	for d := 1; d <= grid.Days; d++ {
		days = append(days, timetable.DayName(d))
	}
	return ctx.JSON(http.StatusOK, GridResponse{Days: days, Periods: grid.Periods})
}
