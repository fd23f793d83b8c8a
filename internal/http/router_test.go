package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"auditflow/internal/audits/assignment"
	auditshandler "auditflow/internal/audits/handler"
	auditmetrics "auditflow/internal/audits/metrics"
	auditsservice "auditflow/internal/audits/service"
	auditstore "auditflow/internal/audits/store"
	authhandler "auditflow/internal/auth/handler"
	"auditflow/internal/auth/password"
	authservice "auditflow/internal/auth/service"
	"auditflow/internal/auth/store/session"
	"auditflow/internal/auth/store/user"
	"auditflow/internal/platform/config"
	"auditflow/internal/platform/database"
	"auditflow/internal/platform/metrics"
	authmw "auditflow/pkg/platform/middleware/auth"
	"auditflow/pkg/testutil"
)

const cookieName = "audit_session"

func newApp(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, config.Database{Driver: config.DriverSQLite, URL: filepath.Join(t.TempDir(), "app.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	auth := authservice.New(user.New(db), session.New(), password.NewHasher(bcrypt.MinCost),
		authservice.WithLogger(logger), authservice.WithMetrics(m))
	gate := authmw.RequireSession(auth, cookieName, logger)

	store := auditstore.New(db)
	audits := auditsservice.New(store, assignment.New(store),
		auditsservice.WithLogger(logger),
		auditsservice.WithMetrics(auditmetrics.New(reg)),
		auditsservice.WithTransactor(db))

	return NewRouter(Options{
		Logger:         logger,
		Metrics:        m,
		Gatherer:       reg,
		BodyLimit:      10 * 1024,
		RequestTimeout: 5 * time.Second,
		Checks:         map[string]HealthChecker{"database": db},
	},
		authhandler.New(auth, logger, authhandler.CookieConfig{Name: cookieName, TTL: 24 * time.Hour}, gate),
		auditshandler.New(audits, logger, gate),
	)
}

type client struct {
	t      *testing.T
	app    http.Handler
	cookie *http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := testutil.NewRequestWithBody(c.t, method, path, body)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	return testutil.DoRequest(c.app, req)
}

func (c *client) login(username, pw string) {
	c.t.Helper()
	rr := c.do(http.MethodPost, "/api/login", `{"username":"`+username+`","password":"`+pw+`"}`)
	require.Equal(c.t, http.StatusOK, rr.Code, rr.Body.String())
	c.cookie = testutil.Cookie(rr, cookieName)
	require.NotNil(c.t, c.cookie)
}

func register(t *testing.T, app http.Handler, username, pw, role string) {
	t.Helper()
	rr := testutil.DoRequest(app, testutil.NewRequestWithBody(t, http.MethodPost, "/api/register",
		`{"username":"`+username+`","password":"`+pw+`","role":"`+role+`"}`))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func listAudits(t *testing.T, c *client) []map[string]any {
	t.Helper()
	rr := c.do(http.MethodGet, "/api/audits", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestApprovalScenario(t *testing.T) {
	app := newApp(t)
	register(t, app, "alice", "secret1", "USER")
	register(t, app, "bob", "secret2", "AUDITOR")

	alice := &client{t: t, app: app}
	alice.login("alice", "secret1")
	bob := &client{t: t, app: app}
	bob.login("bob", "secret2")

	rr := alice.do(http.MethodPost, "/api/audits", `{"title":"Office chairs","purchase_data":{"vendor":"Acme","amount":"500"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "bob", created["assignedToName"])
	assert.Equal(t, "Request submitted successfully", created["message"])
	id := created["id"].(float64)

	seen := listAudits(t, bob)
	require.Len(t, seen, 1)
	assert.Equal(t, "PENDING_REVIEW", seen[0]["status"])
	assert.Equal(t, "Office chairs", seen[0]["title"])
	assert.Equal(t, "Purchase", seen[0]["type"])
	assert.Equal(t, "alice", seen[0]["creator_name"])

	rr = bob.do(http.MethodPut, "/api/audits/"+jsonInt(id), `{"status":"APPROVED"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(t, rr, "notifiedUser", "alice")

	mine := listAudits(t, alice)
	require.Len(t, mine, 1)
	assert.Equal(t, "VERIFIED", mine[0]["status"])
	assert.Equal(t, "bob", mine[0]["auditor_name"])

	t.Run("verified request cannot be approved again", func(t *testing.T) {
		rr := bob.do(http.MethodPut, "/api/audits/"+jsonInt(id), `{"status":"APPROVED"}`)
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})

	t.Run("verified request cannot be resubmitted", func(t *testing.T) {
		rr := alice.do(http.MethodPut, "/api/audits/"+jsonInt(id), `{"purchase_data":{"vendor":"Acme","amount":"10"}}`)
		testutil.AssertStatus(t, rr, http.StatusConflict)
	})
}

func TestRejectAndResubmitScenario(t *testing.T) {
	app := newApp(t)
	register(t, app, "alice", "secret1", "USER")
	register(t, app, "carol", "secret3", "USER")
	register(t, app, "bob", "secret2", "AUDITOR")

	alice := &client{t: t, app: app}
	alice.login("alice", "secret1")
	carol := &client{t: t, app: app}
	carol.login("carol", "secret3")
	bob := &client{t: t, app: app}
	bob.login("bob", "secret2")

	rr := alice.do(http.MethodPost, "/api/audits", `{"title":"Laptops","purchase_data":{"vendor":"Dell","amount":"1200.50"}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = bob.do(http.MethodPut, "/api/audits/1", `{"status":"REJECTED","admin_notes":"Need invoice"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	testutil.AssertJSONContains(t, rr, "message", "Audit REJECTED")

	rr = carol.do(http.MethodPut, "/api/audits/1", `{"purchase_data":{"vendor":"Dell","amount":"1"}}`)
	testutil.AssertStatus(t, rr, http.StatusForbidden)
	testutil.AssertErrorMessage(t, rr, "Permission denied")
	assert.Empty(t, listAudits(t, carol))

	rr = alice.do(http.MethodPut, "/api/audits/1", `{"purchase_data":{"vendor":"Dell","amount":"1200.50","invoiceNumber":"INV-9","attachments":{"invoice":true}}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(t, rr, "notifiedAuditor", "bob")

	seen := listAudits(t, bob)
	require.Len(t, seen, 1)
	assert.Equal(t, "PENDING_REVIEW", seen[0]["status"])
	assert.Equal(t, "Need invoice", seen[0]["admin_notes"])
	data := seen[0]["purchase_data"].(map[string]any)
	assert.Equal(t, "INV-9", data["invoiceNumber"])

	rr = bob.do(http.MethodPut, "/api/audits/999", `{"status":"APPROVED"}`)
	testutil.AssertStatus(t, rr, http.StatusNotFound)
}

func TestCreateValidation(t *testing.T) {
	app := newApp(t)
	register(t, app, "alice", "secret1", "USER")
	alice := &client{t: t, app: app}
	alice.login("alice", "secret1")

	t.Run("no auditors", func(t *testing.T) {
		rr := alice.do(http.MethodPost, "/api/audits", `{"title":"x","purchase_data":{"amount":"5"}}`)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorMessage(t, rr, "No auditors available in the system.")
	})

	register(t, app, "bob", "secret2", "AUDITOR")

	t.Run("zero amount", func(t *testing.T) {
		rr := alice.do(http.MethodPost, "/api/audits", `{"title":"x","purchase_data":{"amount":"0"}}`)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("missing title", func(t *testing.T) {
		rr := alice.do(http.MethodPost, "/api/audits", `{"purchase_data":{"amount":"5"}}`)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorMessage(t, rr, "Missing required fields")
	})

	t.Run("oversized body", func(t *testing.T) {
		rr := alice.do(http.MethodPost, "/api/audits", `{"title":"`+strings.Repeat("a", 11*1024)+`"}`)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestLeastLoadedAssignment(t *testing.T) {
	app := newApp(t)
	register(t, app, "alice", "secret1", "USER")
	register(t, app, "bob", "secret2", "AUDITOR")
	register(t, app, "dana", "secret4", "AUDITOR")
	alice := &client{t: t, app: app}
	alice.login("alice", "secret1")

	var names []string
	for i := 0; i < 3; i++ {
		rr := alice.do(http.MethodPost, "/api/audits", `{"title":"t","purchase_data":{"amount":"5"}}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		names = append(names, body["assignedToName"].(string))
	}
	assert.Equal(t, []string{"bob", "dana", "bob"}, names)
}

func TestUnauthenticatedAccess(t *testing.T) {
	app := newApp(t)
	rr := testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/api/audits"))
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	testutil.AssertErrorMessage(t, rr, "Unauthorized")

	req := testutil.NewRequest(t, http.MethodGet, "/api/me")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "forged"})
	rr = testutil.DoRequest(app, req)
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestLogoutEndsSession(t *testing.T) {
	app := newApp(t)
	register(t, app, "alice", "secret1", "USER")
	alice := &client{t: t, app: app}
	alice.login("alice", "secret1")

	rr := alice.do(http.MethodGet, "/api/me", "")
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "username", "alice")

	rr = alice.do(http.MethodPost, "/api/logout", "")
	testutil.AssertStatusOK(t, rr)

	rr = alice.do(http.MethodGet, "/api/me", "")
	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestPlatformRoutes(t *testing.T) {
	app := newApp(t)

	t.Run("unknown api path", func(t *testing.T) {
		rr := testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/api/nope"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
		testutil.AssertErrorMessage(t, rr, "API endpoint not found")
	})

	t.Run("health", func(t *testing.T) {
		rr := testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
		rr = testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/readyz"))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("request id and security headers", func(t *testing.T) {
		rr := testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/healthz"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	})

	t.Run("metrics", func(t *testing.T) {
		rr := testutil.DoRequest(app, testutil.NewRequest(t, http.MethodGet, "/metrics"))
		testutil.AssertStatusOK(t, rr)
		assert.Contains(t, rr.Body.String(), "auditflow_http_request_duration_seconds")
	})
}

func TestReadinessReportsFailures(t *testing.T) {
	router := NewRouter(Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Checks: map[string]HealthChecker{
			"redis": CheckerFunc(func(context.Context) error { return errors.New("connection refused") }),
		},
	})
	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/readyz"))
	testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func jsonInt(f float64) string {
	return strconv.FormatInt(int64(f), 10)
}
