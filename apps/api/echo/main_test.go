package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/scolarite/apps/shared"
	"github.com/trezcool/scolarite/core/user"
	"github.com/trezcool/scolarite/storage/kv/badgerkv"
	"github.com/trezcool/scolarite/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// setup returns a server running on freshly seeded in-memory state.
func setup(t *testing.T) *server {
	conf := testutil.Config()
	store, err := badgerkv.OpenInMemory()
	require.NoError(t, err)

	app, err := shared.NewWithStorage(context.Background(), conf, testutil.Logger(conf), store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	return NewServer(Options{App: app, DisableReqLogs: true}).(*server)
}

// reload builds a second App on the store of s, as a restarted process would.
func reload(t *testing.T, s *server) *shared.App {
	conf := testutil.Config()
	app, err := shared.NewWithStorage(context.Background(), conf, testutil.Logger(conf), s.app.Store)
	require.NoError(t, err)
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	// check, when set, inspects the response body.
	check func(t *testing.T, body []byte)
}

func (tt httpTest) run(t *testing.T, s *server) {
	t.Run(tt.name, func(t *testing.T) {
		req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
		s.ServeHTTP(rec, req)
		if rec.Code != tt.wantCode {
			t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
		}
		if tt.check != nil {
			tt.check(t, rec.Body.Bytes())
		}
	})
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// getToken returns a token for the seeded user uname.
func getToken(t *testing.T, s *server, uname string) string {
	usr, err := s.app.Users.GetByUsernameOrEmail(uname)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return tokenFor(t, s, usr)
}

func tokenFor(t *testing.T, s *server, usr user.User) string {
	token, err := s.auth.Token(s.auth.Claims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, data []byte, dst interface{}) {
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; data %s", err, data)
	}
}

// wantJSON checks that the body decodes to want.
func wantJSON(want interface{}) func(t *testing.T, body []byte) {
	return func(t *testing.T, body []byte) {
		var got, exp interface{}
		unmarshal(t, body, &got)
		unmarshal(t, marchallObj(t, want), &exp)
		require.Equal(t, exp, got)
	}
}

// wantLen checks that the body is a JSON list of n items.
func wantLen(n int) func(t *testing.T, body []byte) {
	return func(t *testing.T, body []byte) {
		var items []interface{}
		unmarshal(t, body, &items)
		require.Len(t, items, n)
	}
}
