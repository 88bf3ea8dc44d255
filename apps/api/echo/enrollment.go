package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/enrollment"
	metricsvc "github.com/trezcool/scolarite/services/metrics"
)

type enrollmentApi struct {
	auth    *authenticator
	ledger  *enrollment.Ledger
	metrics *metricsvc.Metrics
}

func registerEnrollmentAPI(g *echo.Group, auth *authenticator, ledger *enrollment.Ledger, metrics *metricsvc.Metrics) {
	api := enrollmentApi{auth: auth, ledger: ledger, metrics: metrics}

	g.GET("/enrollments", api.query, adminMiddleware())
	g.POST("/enrollments", api.enroll)
	g.POST("/enrollments/drop", api.drop)
	g.GET("/courses/:id/enrollments", api.courseEnrollments)
	g.GET("/courses/:id/enrollments/count", api.countActive)
	g.GET("/students/:id/enrollments", api.history)
	g.GET("/students/:id/courses", api.studentCourses)
}

type (
	EnrollmentRequest struct {
		StudentID string `json:"student_id" validate:"notblank"`
		CourseID  string `json:"course_id" validate:"notblank"`
	}

	CountResponse struct {
		CourseID string `json:"course_id"`
		Active   int    `json:"active"`
	}
)

func (er *EnrollmentRequest) Validate() error {
	er.StudentID = core.CleanString(er.StudentID)
	er.CourseID = core.CleanString(er.CourseID)
	return core.Validate.Struct(er)
}

// bind reads an EnrollmentRequest the request user may act on:
// admins act for anyone, students for themselves only.
func (api *enrollmentApi) bind(ctx echo.Context) (EnrollmentRequest, error) {
	var data EnrollmentRequest
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to EnrollmentRequest")
	}
	if err := data.Validate(); err != nil {
		return data, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return data, err
	}
	if !claims.IsAdmin && !(claims.IsStudent && claims.ProfileID == data.StudentID) {
		return data, errHttpForbidden
	}
	return data, nil
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	e, err := api.ledger.Enroll(data.StudentID, data.CourseID)
	api.metrics.ObserveEnrollment("enroll", err)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) drop(ctx echo.Context) error {
	data, err := api.bind(ctx)
	if err != nil {
		return err
	}
	e, err := api.ledger.Drop(data.StudentID, data.CourseID)
	api.metrics.ObserveEnrollment("drop", err)
	if err != nil {
		return errors.Wrap(err, "dropping")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	rows, err := api.ledger.All()
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	return ctx.JSON(http.StatusOK, nonNil(rows))
}

func (api *enrollmentApi) courseEnrollments(ctx echo.Context) error {
	rows, err := api.ledger.Active(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing active enrollments")
	}
	return ctx.JSON(http.StatusOK, nonNil(rows))
}

func (api *enrollmentApi) countActive(ctx echo.Context) error {
	n, err := api.ledger.CountActive(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "counting active enrollments")
	}
	return ctx.JSON(http.StatusOK, CountResponse{CourseID: ctx.Param("id"), Active: n})
}

func (api *enrollmentApi) history(ctx echo.Context) error {
	if err := ownProfileOrStaff(ctx); err != nil {
		return err
	}
	rows, err := api.ledger.History(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing student enrollments")
	}
	return ctx.JSON(http.StatusOK, nonNil(rows))
}

func (api *enrollmentApi) studentCourses(ctx echo.Context) error {
	if err := ownProfileOrStaff(ctx); err != nil {
		return err
	}
	ids, err := api.ledger.StudentCourses(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing student courses")
	}
	return ctx.JSON(http.StatusOK, nonNil(ids))
}

// ownProfileOrStaff lets admins, teachers and the student of the `:id` profile through.
func ownProfileOrStaff(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	if claims.IsAdmin || claims.IsTeacher || claims.ProfileID == ctx.Param("id") {
		return nil
	}
	return errHttpForbidden
}
