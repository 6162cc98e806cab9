package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "gatepass-backend/internal/api/http"
	"gatepass-backend/internal/domain"
	"gatepass-backend/internal/pass"
	"gatepass-backend/internal/repository/memory"
	"gatepass-backend/internal/security"
	"gatepass-backend/internal/service"
)

const (
	testJWTSecret = "0123456789abcdef0123456789abcdef"
	testPassword  = "front-desk-pw"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	hash, err := security.HashPassword(testPassword)
	require.NoError(t, err)

	repo := memory.NewVisitRepository()
	srv := httpapi.NewServer(httpapi.Dependencies{
		Issuer:       service.NewIssuerService(repo, nil),
		Validator:    service.NewValidatorService(repo),
		Roster:       service.NewRosterService(repo),
		TokenManager: security.NewTokenManager(testJWTSecret, time.Hour),
		Operators: security.NewOperatorRegistry([]security.Operator{
			{Username: "frontdesk", PasswordHash: hash, Role: "organizer"},
		}),
	})

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "frontdesk", "password": testPassword})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func createVisit(t *testing.T, ts *httptest.Server, token, visitDate string) *domain.VisitPass {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/visits", token, service.IssueRequest{
		VisitorName:  "John Doe",
		ResidentName: "Sarah Wilson",
		Phone:        "555-0100",
		Purpose:      "Delivery",
		VisitDate:    visitDate,
		VisitTime:    "10:30",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	visit := &domain.VisitPass{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(visit))
	require.NotEmpty(t, visit.ID)
	return visit
}

func today() string {
	return time.Now().UTC().Format(domain.VisitDateLayout)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_BadCredentials(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "frontdesk", "password": "guess"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVisits_RequireToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/visits"},
		{http.MethodGet, "/api/v1/visits"},
		{http.MethodGet, "/api/v1/visits/v1"},
		{http.MethodGet, "/api/v1/visits/v1/qr.png"},
		{http.MethodPost, "/api/v1/checkpoint/scan"},
	} {
		resp := doJSON(t, tc.method, ts.URL+tc.path, "", map[string]string{})
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestCreateAndFetchVisit(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	visit := createVisit(t, ts, token, today())
	assert.Equal(t, domain.VisitStatusPending, visit.Status)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/visits/"+visit.ID, token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	fetched := &domain.VisitPass{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(fetched))
	assert.Equal(t, visit.ID, fetched.ID)
	assert.Equal(t, "John Doe", fetched.VisitorName)
}

func TestCreateVisit_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/visits", token, service.IssueRequest{
		VisitorName: "John Doe",
		VisitDate:   today(),
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVisit_NotFound(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/visits/missing", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListVisits_DateFilter(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	createVisit(t, ts, token, today())
	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(domain.VisitDateLayout)
	createVisit(t, ts, token, tomorrow)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/visits?date="+today(), token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Visits []domain.VisitPass `json:"visits"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Visits, 1)
	assert.Equal(t, today(), body.Visits[0].VisitDate)

	bad := doJSON(t, http.MethodGet, ts.URL+"/api/v1/visits?date=02/20/2024", token, nil)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestVisitQR_ServesPNG(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	visit := createVisit(t, ts, token, today())

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/visits/"+visit.ID+"/qr.png", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf(`attachment; filename="visitor-qr-%s.png"`, visit.ID),
		resp.Header.Get("Content-Disposition"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pass.RenderSize, img.Bounds().Dx())
}

func TestScan_Lifecycle(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)
	visit := createVisit(t, ts, token, today())

	payload, err := pass.Encode(visit)
	require.NoError(t, err)

	scan := func(body map[string]string) *domain.ScanResult {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/checkpoint/scan", token, body)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		res := &domain.ScanResult{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(res))
		return res
	}

	res := scan(map[string]string{"payload": string(payload)})
	assert.Equal(t, domain.ScanStatusApproved, res.Status)
	require.NotNil(t, res.Visitor)
	assert.Equal(t, "John Doe", res.Visitor.VisitorName)

	// Second presentation of the same pass is a replay.
	res = scan(map[string]string{"payload": string(payload)})
	assert.Equal(t, domain.ScanStatusUsed, res.Status)
	assert.Equal(t, "already used", res.Reason)
	assert.NotNil(t, res.UsedAt)

	// A checkpoint on a different date refuses the pass without consuming it.
	res = scan(map[string]string{"payload": string(payload), "today": "2030-01-01"})
	assert.Equal(t, domain.ScanStatusExpired, res.Status)

	res = scan(map[string]string{"payload": "garbage"})
	assert.Equal(t, domain.ScanStatusDeclined, res.Status)
	assert.Equal(t, "malformed payload", res.Reason)
}

func TestScan_BadTodayFormat(t *testing.T) {
	ts := newTestServer(t)
	token := login(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/checkpoint/scan", token,
		map[string]string{"payload": "{}", "today": "Feb 20"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
