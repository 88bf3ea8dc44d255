package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scolarite/core/school"
)

// entityAPI serves the CRUD endpoints of one entity store.
// T is the record, N its creation input, U its update input and F its query filter.
type entityAPI[T, N, U, F any] struct {
	name   string
	filter func(F) ([]T, error)
	get    func(id string) (T, error)
	add    func(N) (T, error)
	update func(id string, data U) (T, error)
	remove func(id string) error
}

func (api entityAPI[T, N, U, F]) register(g *echo.Group, path string) {
	eg := g.Group(path)
	eg.GET("", api.query)
	eg.GET("/:id", api.retrieve)
	eg.POST("", api.create, adminMiddleware())
	eg.PUT("/:id", api.modify, adminMiddleware())
	eg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api entityAPI[T, N, U, F]) query(ctx echo.Context) error {
	var filter F
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []T{})
	}
	items, err := api.filter(filter)
	if err != nil {
		return errors.Wrapf(err, "querying %s", api.name)
	}
	return ctx.JSON(http.StatusOK, nonNil(items))
}

func (api entityAPI[T, N, U, F]) retrieve(ctx echo.Context) error {
	item, err := api.get(ctx.Param("id"))
	if err != nil {
		return errors.Wrapf(err, "getting %s", api.name)
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api entityAPI[T, N, U, F]) create(ctx echo.Context) error {
	var data N
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding new %s", api.name)
	}
	item, err := api.add(data)
	if err != nil {
		return errors.Wrapf(err, "adding %s", api.name)
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api entityAPI[T, N, U, F]) modify(ctx echo.Context) error {
	var data U
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding %s update", api.name)
	}
	item, err := api.update(ctx.Param("id"), data)
	if err != nil {
		return errors.Wrapf(err, "updating %s", api.name)
	}
	return ctx.JSON(http.StatusOK, item)
}

func (api entityAPI[T, N, U, F]) destroy(ctx echo.Context) error {
	if err := api.remove(ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "removing %s", api.name)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func registerSchoolAPI(g *echo.Group, svc *school.Service) {
	entityAPI[school.Student, school.NewStudent, school.UpdateStudent, school.StudentFilter]{
		name:   "student",
		filter: svc.FilterStudents,
		get:    svc.GetStudent,
		add:    svc.AddStudent,
		update: svc.UpdateStudent,
		remove: svc.RemoveStudent,
	}.register(g, "/students")

	entityAPI[school.Teacher, school.NewTeacher, school.UpdateTeacher, school.TeacherFilter]{
		name:   "teacher",
		filter: svc.FilterTeachers,
		get:    svc.GetTeacher,
		add:    svc.AddTeacher,
		update: svc.UpdateTeacher,
		remove: svc.RemoveTeacher,
	}.register(g, "/teachers")

	entityAPI[school.Classroom, school.NewClassroom, school.UpdateClassroom, school.ClassroomFilter]{
		name:   "classroom",
		filter: svc.FilterClassrooms,
		get:    svc.GetClassroom,
		add:    svc.AddClassroom,
		update: svc.UpdateClassroom,
		remove: svc.RemoveClassroom,
	}.register(g, "/classrooms")

	entityAPI[school.Course, school.NewCourse, school.UpdateCourse, school.CourseFilter]{
		name:   "course",
		filter: svc.FilterCourses,
		get:    svc.GetCourse,
		add:    svc.AddCourse,
		update: svc.UpdateCourse,
		remove: svc.RemoveCourse,
	}.register(g, "/courses")

	entityAPI[school.Section, school.NewSection, school.UpdateSection, school.SectionFilter]{
		name:   "section",
		filter: svc.FilterSections,
		get:    svc.GetSection,
		add:    svc.AddSection,
		update: svc.UpdateSection,
		remove: svc.RemoveSection,
	}.register(g, "/sections")
}
