package echoapi

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_exportApi(t *testing.T) {
	s := setup(t)
	adminToken := getToken(t, s, "admin")
	studentToken := getToken(t, s, "ebernard")

	NowFunc = func() time.Time { return time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { NowFunc = time.Now })

	tests := []struct {
		name            string
		path            string
		token           string
		wantCode        int
		wantType        string
		wantDisposition string
		wantPrefix      []byte
		wantRows        int
	}{
		{name: "student", path: "/v1/exports/plans", token: studentToken, wantCode: http.StatusForbidden},
		{name: "unknown format", path: "/v1/exports/plans?format=doc", token: adminToken, wantCode: http.StatusBadRequest},
		{
			name:            "plans csv",
			path:            "/v1/exports/plans",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "text/csv; charset=utf-8",
			wantDisposition: `attachment; filename="plans-20240902.csv"`,
			wantPrefix:      []byte("\xEF\xBB\xBFid,course_id,teacher_id"),
			wantRows:        4,
		},
		{
			name:            "filtered plans csv",
			path:            "/v1/exports/plans?teacher_id=T001",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "text/csv; charset=utf-8",
			wantDisposition: `attachment; filename="plans-20240902.csv"`,
			wantRows:        2,
		},
		{
			name:            "grades csv",
			path:            "/v1/exports/grades?format=CSV",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "text/csv; charset=utf-8",
			wantDisposition: `attachment; filename="grades-20240902.csv"`,
			wantRows:        2,
		},
		{
			name:            "scores csv",
			path:            "/v1/exports/grades/G001/scores",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "text/csv; charset=utf-8",
			wantDisposition: `attachment; filename="scores-G001-20240902.csv"`,
			wantRows:        4,
		},
		{name: "scores: unknown record", path: "/v1/exports/grades/G999/scores", token: adminToken, wantCode: http.StatusNotFound},
		{
			name:            "timetable xlsx",
			path:            "/v1/exports/timetable?format=xlsx",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			wantDisposition: `attachment; filename="timetable-20240902.xlsx"`,
			wantPrefix:      []byte("PK"),
		},
		{
			name:            "timetable pdf",
			path:            "/v1/exports/timetable?format=pdf&section_id=CS2023A",
			token:           adminToken,
			wantCode:        http.StatusOK,
			wantType:        "application/pdf",
			wantDisposition: `attachment; filename="timetable-20240902.pdf"`,
			wantPrefix:      []byte("%PDF"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			s.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantDisposition, rec.Header().Get("Content-Disposition"))
			body := rec.Body.Bytes()
			if tt.wantPrefix != nil {
				assert.True(t, bytes.HasPrefix(body, tt.wantPrefix), "body starts with %q", body[:min(len(body), 32)])
			}
			if tt.wantRows > 0 {
				rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, []byte("\xEF\xBB\xBF")))).ReadAll()
				require.NoError(t, err)
				assert.Len(t, rows, tt.wantRows+1, "header plus one row per record")
			}
		})
	}
}

func Test_metrics(t *testing.T) {
	s := setup(t)

	// generate some traffic first
	req, rec := newAuthRequest(http.MethodPost, "/v1/schedule", getToken(t, s, "admin"))
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/metrics", "")
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "scolarite_http_requests_total"), "request counter exported")
	assert.True(t, strings.Contains(body, "scolarite_"), "namespace applied")
}
