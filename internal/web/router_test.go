package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/lojf/garage/internal/auth"
	"github.com/lojf/garage/internal/cache"
	"github.com/lojf/garage/internal/db"
	"github.com/lojf/garage/internal/queries"
	"github.com/lojf/garage/internal/services"
)

const (
	testEmail    = "admin@example.com"
	testPassword = "correct horse"
)

func newTestRouter(t *testing.T, signInRate int) http.Handler {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	gdb, err := db.Open(dsn)
	require.NoError(t, err)

	a := auth.NewService(gdb, "test-secret", time.Hour, "http://garage.test", auth.WithBcryptCost(bcrypt.MinCost))
	_, err = a.CreateUser(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	q := queries.New(services.NewAttendanceService(gdb, time.UTC), services.NewLocationService(gdb), cache.New())
	return Router(Deps{DB: gdb, Auth: a, Queries: q, PublicURL: "http://garage.test", SignInRate: signInRate})
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Notice *queries.Notice `json:"notice"`
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func signIn(t *testing.T, h http.Handler) string {
	t.Helper()
	rec, res := do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok auth.Tokens
	require.NoError(t, json.Unmarshal(res.Data, &tok))
	require.NotEmpty(t, tok.AccessToken)
	return tok.AccessToken
}

func TestRouterHealthz(t *testing.T) {
	h := newTestRouter(t, 10)
	rec, _ := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresSession(t *testing.T) {
	h := newTestRouter(t, 10)
	rec, res := do(t, h, http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, res.Notice)
	assert.Equal(t, queries.NoticeError, res.Notice.Kind)

	rec, _ = do(t, h, http.MethodGet, "/api/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInWrongPassword(t *testing.T) {
	h := newTestRouter(t, 10)
	rec, res := do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": testEmail, "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.ErrInvalidCredentials.Error(), res.Error)
}

func TestSignInRateLimited(t *testing.T) {
	h := newTestRouter(t, 2)
	creds := map[string]string{"email": testEmail, "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodPost, "/auth/signin", "", creds)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec, res := do(t, h, http.MethodPost, "/auth/signin", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, res.Notice)
}

func TestForgotPasswordHasItsOwnBudget(t *testing.T) {
	h := newTestRouter(t, 2)
	creds := map[string]string{"email": testEmail, "password": "wrong-password"}
	for i := 0; i < 3; i++ {
		_, _ = do(t, h, http.MethodPost, "/auth/signin", "", creds)
	}

	rec, res := do(t, h, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": testEmail})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, res.Notice)
	assert.Equal(t, queries.NoticeSuccess, res.Notice.Kind)

	// Malformed addresses get the same answer as unknown ones.
	rec, _ = do(t, h, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": "not an email"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = do(t, h, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": testEmail})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRefreshIssuesNewTokens(t *testing.T) {
	h := newTestRouter(t, 10)
	rec, res := do(t, h, http.MethodPost, "/auth/signin", "", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	var tok auth.Tokens
	require.NoError(t, json.Unmarshal(res.Data, &tok))

	rec, res = do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var next auth.Tokens
	require.NoError(t, json.Unmarshal(res.Data, &next))

	rec, _ = do(t, h, http.MethodGet, "/auth/session", next.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/auth/session", tok.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignOutRevokesToken(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)

	rec, _ := do(t, h, http.MethodGet, "/auth/session", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, res := do(t, h, http.MethodPost, "/auth/signout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Signed out successfully", res.Notice.Text)

	rec, _ = do(t, h, http.MethodGet, "/auth/session", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportLifecycle(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)

	// Location quick-add, then a report against it.
	rec, res := do(t, h, http.MethodPost, "/api/locations", tok, map[string]any{"name": "Hall A"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, `Location "Hall A" created successfully!`, res.Notice.Text)
	var loc struct {
		ID        string  `json:"id"`
		CreatedBy *string `json:"created_by"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &loc))
	require.NotNil(t, loc.CreatedBy, "stamped with the signed-in user")

	rec, res = do(t, h, http.MethodPost, "/api/reports", tok, map[string]any{
		"date": "2026-10-11", "sv1": 10, "sv2": 5, "kids": 3, "local": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a location", res.Notice.Text)

	rec, res = do(t, h, http.MethodPost, "/api/reports", tok, map[string]any{
		"date": "2026-10-11", "location_id": loc.ID, "sv1": 10, "sv2": 5, "kids": 3, "local": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Attendance report for 2026-10-11 created successfully!", res.Notice.Text)
	var row struct {
		ID       string `json:"id"`
		Total    int    `json:"total"`
		Location string `json:"location"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &row))
	assert.Equal(t, 20, row.Total)
	assert.Equal(t, "Hall A", row.Location)

	rec, res = do(t, h, http.MethodGet, "/api/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash struct {
		Rows    []struct{ Location string } `json:"rows"`
		Pager   struct{ Label string }      `json:"pager"`
		Metrics struct{ Overall int64 }     `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &dash))
	require.Len(t, dash.Rows, 1)
	assert.Equal(t, "Showing 1-1 of 1 rows", dash.Pager.Label)
	assert.EqualValues(t, 20, dash.Metrics.Overall)

	// Deleting the location keeps the report under "Unknown Location".
	rec, _ = do(t, h, http.MethodDelete, "/api/locations/"+loc.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, res = do(t, h, http.MethodGet, "/api/dashboard", tok, nil)
	require.NoError(t, json.Unmarshal(res.Data, &dash))
	require.Len(t, dash.Rows, 1)
	assert.Equal(t, "Unknown Location", dash.Rows[0].Location)

	rec, res = do(t, h, http.MethodPut, "/api/reports/"+row.ID, tok, map[string]any{
		"date": "2026-10-11", "location_id": "", "sv1": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please select a location", res.Notice.Text)

	rec, res = do(t, h, http.MethodDelete, "/api/reports/"+row.ID, tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Attendance report deleted successfully!", res.Notice.Text)

	_, res = do(t, h, http.MethodGet, "/api/dashboard?tier=purple", tok, nil)
	var empty struct {
		Empty string `json:"empty"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &empty))
	assert.Equal(t, "No attendance reports found", empty.Empty)
}

func TestUnknownReportIs404(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)
	rec, _ := do(t, h, http.MethodGet, "/api/locations/missing", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadFilterIs400(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)
	rec, _ := do(t, h, http.MethodGet, "/api/reports?date=custom-range&from=yesterday", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, h, http.MethodGet, "/api/reports?tier=pink", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportsAndQR(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)

	_, res := do(t, h, http.MethodPost, "/api/locations", tok, map[string]any{"name": "Hall A"})
	var loc struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &loc))
	rec, _ := do(t, h, http.MethodPost, "/api/reports", tok, map[string]any{
		"date": "2026-10-11", "location_id": loc.ID, "sv1": 7, "tier": "green",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/reports/export.csv", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Location,SV1,SV2,YXP,Kids,Local,HC1,HC2,Total,Tier", lines[0])
	assert.Equal(t, "2026-10-11,Hall A,7,0,0,0,0,0,0,7,Green", lines[1])

	rec, _ = do(t, h, http.MethodGet, "/api/reports/export.xlsx", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Attendance")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Hall A", rows[1][1])
	assert.Equal(t, "Total", rows[2][0])

	rec, _ = do(t, h, http.MethodGet, "/api/locations/"+loc.ID+"/qr.png", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestSettingsAndSearch(t *testing.T) {
	h := newTestRouter(t, 10)
	tok := signIn(t, h)
	for _, name := range []string{"Hall A", "Hall B", "Annex"} {
		rec, _ := do(t, h, http.MethodPost, "/api/locations", tok, map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	_, res := do(t, h, http.MethodGet, "/api/settings/locations?search=hall&rows=5", tok, nil)
	var st struct {
		Locations []struct{ Name string } `json:"locations"`
		Pager     struct{ Label string }  `json:"pager"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &st))
	assert.Len(t, st.Locations, 2)
	assert.Equal(t, "Showing 1-2 of 2 rows", st.Pager.Label)

	_, res = do(t, h, http.MethodGet, "/api/locations/search?q=h", tok, nil)
	var found []struct{ Name string }
	require.NoError(t, json.Unmarshal(res.Data, &found))
	assert.Empty(t, found)

	_, res = do(t, h, http.MethodGet, "/api/locations/search?q=an", tok, nil)
	require.NoError(t, json.Unmarshal(res.Data, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Annex", found[0].Name)
}
