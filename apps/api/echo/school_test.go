package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/scolarite/core/school"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func Test_schoolApi_students(t *testing.T) {
	s := setup(t)
	adminToken := getToken(t, s, "admin")
	teacherToken := getToken(t, s, "amartin")

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/students", wantCode: http.StatusUnauthorized, check: wantJSON(errMissingToken)},
		{name: "list", method: http.MethodGet, path: "/v1/students", token: teacherToken, wantCode: http.StatusOK, check: wantLen(6)},
		{name: "filter by section", method: http.MethodGet, path: "/v1/students?section_id=CS2023A", token: teacherToken, wantCode: http.StatusOK, check: wantLen(2)},
		{name: "search", method: http.MethodGet, path: "/v1/students?search=emma", token: teacherToken, wantCode: http.StatusOK, check: wantLen(1)},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/v1/students/S2023001",
			token:    teacherToken,
			wantCode: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var st school.Student
				unmarshal(t, body, &st)
				assert.Equal(t, "Emma Bernard", st.Name)
			},
		},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/students/nope", token: teacherToken, wantCode: http.StatusNotFound},
		{
			name:     "create: not admin",
			method:   http.MethodPost,
			path:     "/v1/students",
			token:    teacherToken,
			body:     marchallObj(t, school.NewStudent{ID: "S2023007", Name: "Ines Garnier"}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "create: blank name",
			method:   http.MethodPost,
			path:     "/v1/students",
			token:    adminToken,
			body:     marchallObj(t, school.NewStudent{ID: "S2023007", Name: "  "}),
			wantCode: http.StatusBadRequest,
			check:    wantJSON(map[string]string{"name": "this field cannot be blank"}),
		},
		{
			name:     "create",
			method:   http.MethodPost,
			path:     "/v1/students",
			token:    adminToken,
			body:     marchallObj(t, school.NewStudent{ID: "S2023007", Name: "Ines Garnier", SectionID: "MA2023A"}),
			wantCode: http.StatusCreated,
			check: func(t *testing.T, body []byte) {
				var st school.Student
				unmarshal(t, body, &st)
				assert.Equal(t, school.StudentActive, st.Status)
			},
		},
		{
			name:     "create: duplicate id",
			method:   http.MethodPost,
			path:     "/v1/students",
			token:    adminToken,
			body:     marchallObj(t, school.NewStudent{ID: "S2023007", Name: "Ines Garnier"}),
			wantCode: http.StatusConflict,
		},
		{
			name:     "update",
			method:   http.MethodPut,
			path:     "/v1/students/S2023007",
			token:    adminToken,
			body:     marchallObj(t, school.UpdateStudent{Status: strPtr(school.StudentSuspended)}),
			wantCode: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var st school.Student
				unmarshal(t, body, &st)
				assert.Equal(t, school.StudentSuspended, st.Status)
				assert.Equal(t, "Ines Garnier", st.Name, "untouched fields are kept")
			},
		},
		{name: "update unknown", method: http.MethodPut, path: "/v1/students/nope", token: adminToken, body: []byte(`{}`), wantCode: http.StatusNotFound},
		{name: "delete", method: http.MethodDelete, path: "/v1/students/S2023007", token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/students/S2023007", token: adminToken, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt.run(t, s)
	}
}

func Test_schoolApi_teachersAndRooms(t *testing.T) {
	s := setup(t)
	adminToken := getToken(t, s, "admin")

	tests := []httpTest{
		{name: "teachers by department", method: http.MethodGet, path: "/v1/teachers?department=Mathematics", token: adminToken, wantCode: http.StatusOK, check: wantLen(2)},
		{name: "teachers by subject", method: http.MethodGet, path: "/v1/teachers?subject=databases", token: adminToken, wantCode: http.StatusOK, check: wantLen(1)},
		{name: "rooms by min capacity", method: http.MethodGet, path: "/v1/classrooms?min_capacity=60", token: adminToken, wantCode: http.StatusOK, check: wantLen(2)},
		{name: "rooms by status", method: http.MethodGet, path: "/v1/classrooms?status=maintenance", token: adminToken, wantCode: http.StatusOK, check: wantLen(1)},
		{
			name:     "lower max workload below current",
			method:   http.MethodPut,
			path:     "/v1/teachers/T001",
			token:    adminToken,
			body:     marchallObj(t, school.UpdateTeacher{MaxWorkload: intPtr(2)}),
			wantCode: http.StatusBadRequest,
			check:    wantJSON(map[string]string{"max_workload": "cannot be lower than the current workload"}),
		},
		{name: "sections", method: http.MethodGet, path: "/v1/sections?year=2023", token: adminToken, wantCode: http.StatusOK, check: wantLen(3)},
		{name: "courses", method: http.MethodGet, path: "/v1/courses?teacher_id=T002", token: adminToken, wantCode: http.StatusOK, check: wantLen(2)},
	}
	for _, tt := range tests {
		tt.run(t, s)
	}
}
