package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/grade"
	metricsvc "github.com/trezcool/scolarite/services/metrics"
)

type gradeApi struct {
	auth    *authenticator
	svc     *grade.Service
	metrics *metricsvc.Metrics
}

func registerGradeAPI(g *echo.Group, auth *authenticator, svc *grade.Service, metrics *metricsvc.Metrics) {
	api := gradeApi{auth: auth, svc: svc, metrics: metrics}

	gg := g.Group("/grades")
	gg.GET("", api.query, staffMiddleware())
	gg.POST("", api.submit, staffMiddleware())
	gg.POST("/publish", api.batchPublish, adminMiddleware())
	gg.GET("/:id", api.retrieve, staffMiddleware())
	gg.GET("/:id/statistics", api.statistics, staffMiddleware())
	gg.POST("/:id/review", api.review, adminMiddleware())
	gg.POST("/:id/publish", api.publish, adminMiddleware())
	gg.POST("/:id/withdraw", api.withdraw, adminMiddleware())
	gg.GET("/:id/trail", api.trail, staffMiddleware())
	gg.GET("/:id/history", api.history, staffMiddleware())
	gg.GET("/:id/anomalies", api.anomalies, staffMiddleware())
	gg.POST("/:id/anomalies/resolve", api.resolveAnomaly, adminMiddleware())

	g.GET("/anomalies", api.allAnomalies, adminMiddleware())
	g.GET("/students/:id/grades", api.studentGrades)
}

type (
	ReviewRequest struct {
		Decision string `json:"decision"`
		Comment  string `json:"comment"`
	}

	WithdrawRequest struct {
		Reason string `json:"reason"`
	}

	BatchRequest struct {
		IDs []string `json:"ids"`
	}

	// StudentGrade is one published score of a student.
	StudentGrade struct {
		GradeID  string  `json:"grade_id"`
		CourseID string  `json:"course_id"`
		Semester string  `json:"semester"`
		Score    float64 `json:"score"`
	}
)

func (api *gradeApi) query(ctx echo.Context) error {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.GradeRecord{})
	}
	records, err := api.svc.List(filter)
	if err != nil {
		return errors.Wrap(err, "listing grade records")
	}
	return ctx.JSON(http.StatusOK, nonNil(records))
}

func (api *gradeApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) statistics(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting grade record")
	}
	return ctx.JSON(http.StatusOK, rec.Statistics())
}

// submit records a grade record; teachers may only submit their own.
func (api *gradeApi) submit(ctx echo.Context) error {
	var data grade.NewGradeRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGradeRecord")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if !claims.IsAdmin && data.TeacherID != claims.ProfileID {
		return errHttpForbidden
	}

	rec, err := api.svc.Submit(data)
	api.metrics.ObserveGradeAction("submit", err)
	if err != nil {
		return errors.Wrap(err, "submitting grade record")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *gradeApi) review(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.Review(ctx.Param("id"), data.Decision, actor, data.Comment)
	api.metrics.ObserveGradeAction("review", err)
	if err != nil {
		return errors.Wrap(err, "reviewing grade record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) publish(ctx echo.Context) error {
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Publish(ctx.Param("id"), actor)
	api.metrics.ObserveGradeAction(grade.ActionPublish, err)
	if err != nil {
		return errors.Wrap(err, "publishing grade record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *gradeApi) withdraw(ctx echo.Context) error {
	var data WithdrawRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WithdrawRequest")
	}
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}

	rec, err := api.svc.Withdraw(ctx.Param("id"), actor, data.Reason)
	api.metrics.ObserveGradeAction(grade.ActionWithdraw, err)
	if err != nil {
		return errors.Wrap(err, "withdrawing grade record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

// batchPublish answers 200 even when some records failed; failures are listed in the body.
func (api *gradeApi) batchPublish(ctx echo.Context) error {
	var data BatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BatchRequest")
	}
	if len(data.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no grade record ids given")
	}
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}

	res := api.svc.BatchPublish(data.IDs, actor)
	for range res.Succeeded {
		api.metrics.ObserveGradeAction(grade.ActionPublish, nil)
	}
	for _, f := range res.Failed {
		api.metrics.ObserveGradeAction(grade.ActionPublish, errors.New(f.Error))
	}
	res.Succeeded = nonNil(res.Succeeded)
	res.Failed = nonNil(res.Failed)
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradeApi) trail(ctx echo.Context) error {
	entries, err := api.svc.Trail(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting audit trail")
	}
	return ctx.JSON(http.StatusOK, nonNil(entries))
}

func (api *gradeApi) history(ctx echo.Context) error {
	entries, err := api.svc.History(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting publish history")
	}
	return ctx.JSON(http.StatusOK, nonNil(entries))
}

func (api *gradeApi) anomalies(ctx echo.Context) error {
	found, err := api.svc.Anomalies(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "detecting anomalies")
	}
	return ctx.JSON(http.StatusOK, nonNil(found))
}

func (api *gradeApi) allAnomalies(ctx echo.Context) error {
	var filter grade.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []grade.AnomalyRecord{})
	}
	found, err := api.svc.AllAnomalies(filter)
	if err != nil {
		return errors.Wrap(err, "detecting anomalies")
	}
	return ctx.JSON(http.StatusOK, nonNil(found))
}

func (api *gradeApi) resolveAnomaly(ctx echo.Context) error {
	var data grade.ResolveAnomaly
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveAnomaly")
	}
	actor, err := api.auth.actor(ctx)
	if err != nil {
		return err
	}

	a, err := api.svc.ResolveAnomaly(ctx.Param("id"), data, actor)
	if err != nil {
		return errors.Wrap(err, "resolving anomaly")
	}
	return ctx.JSON(http.StatusOK, a)
}

// studentGrades lists the published scores of a student.
func (api *gradeApi) studentGrades(ctx echo.Context) error {
	if err := ownProfileOrStaff(ctx); err != nil {
		return err
	}
	studentID := ctx.Param("id")
	records, err := api.svc.List(grade.QueryFilter{PublishStatus: grade.Published})
	if err != nil {
		return errors.Wrap(err, "listing published grade records")
	}

	grades := make([]StudentGrade, 0)
	for _, rec := range records {
		for _, s := range rec.Scores {
			if s.StudentID == studentID {
				grades = append(grades, StudentGrade{
					GradeID:  rec.ID,
					CourseID: rec.CourseID,
					Semester: rec.Semester,
					Score:    s.Score,
				})
			}
		}
	}
	return ctx.JSON(http.StatusOK, grades)
}
