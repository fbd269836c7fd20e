package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/analytics"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const (
	testInternalKey = "internal-test-key"
	testPassword    = "Sup3r$ecret"
)

type stubGoogle struct {
	id  auth.GoogleIdentity
	err error
}

func (s stubGoogle) Verify(context.Context, string) (auth.GoogleIdentity, error) {
	return s.id, s.err
}

type testServer struct {
	*Server
	repo *storage.SQLiteRepository
}

func newTestServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cfg := Config{
		Addr:               ":0",
		Transactions:       services.NewTransactionService(repo, repo, nil),
		Categories:         services.NewCategoryService(repo),
		Users:              services.NewUserService(repo, stubGoogle{id: auth.GoogleIdentity{Subject: "g-1", Email: "ada@example.com", EmailVerified: true}}),
		Analytics:          analytics.NewService(repo, repo),
		Tokens:             auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour),
		InternalKey:        testInternalKey,
		CORSOrigins:        []string{"http://localhost:5173"},
		RateLimitPerMinute: 60,
		DashboardCacheTTL:  time.Minute,
		DB:                 repo,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s := NewServer(cfg)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return &testServer{Server: s, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	return rec
}

// signIn registers a user and returns the session cookie.
func (ts *testServer) signIn(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/signup",
		`{"fullName":"Ada Lovelace","email":"`+email+`","password":"`+testPassword+`","baseCurrency":"USD"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"`+email+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = ts.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "ok", body["checks"].(map[string]any)["database"])

	require.NoError(t, ts.repo.Close())
	rec = ts.do(t, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSAllowList(t *testing.T) {
	ts := newTestServer(t, nil)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		ts.Handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight("https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/auth/signup",
		`{"fullName":"Ada","email":"ada@example.com","password":"`+testPassword+`","role":"admin","isAdmin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid fields in request: role, isAdmin", errorMessage(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/signup",
		`{"fullName":"Ada","email":"ada@example.com","password":"weak"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cookie := ts.signIn(t, "ada@example.com")
	assert.True(t, cookie.HttpOnly)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"Wr0ng$pass"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email or password", errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]map[string]any](t, rec)["user"]
	assert.Equal(t, "ada@example.com", me["email"])
	assert.Equal(t, "USD", me["baseCurrency"])
	assert.NotContains(t, me, "passwordHash")

	rec = ts.do(t, http.MethodPost, "/api/auth/changePreferences", `{"currency":"EUR","theme":"dark"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prefs := decode[map[string]any](t, rec)
	assert.Equal(t, "EUR", prefs["baseCurrency"])
	assert.Equal(t, "dark", prefs["theme"])

	rec = ts.do(t, http.MethodPost, "/api/auth/signout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestRequireUser(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: No token provided", errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: auth.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: Invalid token", errorMessage(t, rec))

	token, _, err := ts.tokens.Issue("no-such-user")
	require.NoError(t, err)
	rec = ts.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: auth.CookieName, Value: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized: User not found", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "Unauthorized: User not found", errorMessage(t, rec))
}

func TestProfileAndPassword(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.signIn(t, "ada@example.com")

	rec := ts.do(t, http.MethodPatch, "/api/auth/profile", `{"fullName":"Ada King","email":"ada.king@example.com"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["emailVerificationRequired"])
	assert.Equal(t, "Ada King", body["user"].(map[string]any)["fullName"])

	rec = ts.do(t, http.MethodPost, "/api/auth/changePassword",
		`{"currentPassword":"nope","newPassword":"N3w$ecret"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", errorMessage(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/changePassword",
		`{"currentPassword":"`+testPassword+`","newPassword":"N3w$ecret"}`, cookie)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/auth/login", `{"email":"ada.king@example.com","password":"N3w$ecret"}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGoogleLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/auth/login/google", `{"credential":"id-token"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User does not exist", errorMessage(t, rec))

	ts.signIn(t, "ada@example.com")

	rec = ts.do(t, http.MethodPost, "/api/auth/login/google", `{"credential":"id-token"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ada@example.com", decode[googleProfile](t, rec).Email)
	assert.NotEmpty(t, sessionCookie(t, rec).Value)
}

func TestGoogleLoginRejected(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		repo := c.DB.(*storage.SQLiteRepository)
		c.Users = services.NewUserService(repo, stubGoogle{err: errors.New("bad audience")})
	})

	rec := ts.do(t, http.MethodPost, "/api/auth/login/google", `{"credential":"id-token"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid Google credential", errorMessage(t, rec))
}

func TestLoginRateLimited(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RateLimitPerMinute = 2 })

	body := `{"email":"nobody@example.com","password":"x"}`
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/api/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// other routes are not limited
	rec = ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInternalKey(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/categories/create-default", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden: Invalid internal key", errorMessage(t, rec))

	req := httptest.NewRequest(http.MethodPost, "/api/categories/create-default", nil)
	req.Header.Set(HeaderInternalKey, testInternalKey)
	rec = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Default categories already exist", errorMessage(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(HeaderInternalKey, testInternalKey)
	rec = httptest.NewRecorder()
	ts.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

type categoryJSON struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsDefault bool   `json:"isDefault"`
}

// categoryReply is the body of category create and update responses.
type categoryReply struct {
	Message  string       `json:"message"`
	Category categoryJSON `json:"category"`
}

func firstCategory(t *testing.T, ts *testServer, cookie *http.Cookie, typ string) categoryJSON {
	t.Helper()

	rec := ts.do(t, http.MethodGet, "/api/categories", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range decode[map[string][]categoryJSON](t, rec)["categories"] {
		if c.Type == typ {
			return c
		}
	}
	t.Fatalf("no %s category", typ)
	return categoryJSON{}
}

func TestCategoryRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	ada := ts.signIn(t, "ada@example.com")
	bob := ts.signIn(t, "bob@example.com")

	rec := ts.do(t, http.MethodPost, "/api/categories/create", `{"name":"Coffee","type":"expense","color":"red"}`, ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid fields in request: color", errorMessage(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/categories/create", `{"name":"Coffee","type":"expense"}`, ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[categoryReply](t, rec).Category
	assert.False(t, created.IsDefault)

	rec = ts.do(t, http.MethodPatch, "/api/categories/"+created.ID, `{"name":"Espresso"}`, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Category not found", errorMessage(t, rec))

	rec = ts.do(t, http.MethodPatch, "/api/categories/"+created.ID, `{"name":"Espresso"}`, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Espresso", decode[categoryReply](t, rec).Category.Name)

	def := firstCategory(t, ts, ada, "expense")
	require.True(t, def.IsDefault)
	rec = ts.do(t, http.MethodPatch, "/api/categories/"+def.ID, `{"name":"Mine"}`, ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/categories/"+created.ID, "", ada)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/categories/"+created.ID, "", ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type transactionJSON struct {
	ID     string  `json:"_id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
}

type transactionReply struct {
	Message     string          `json:"message"`
	Transaction transactionJSON `json:"transaction"`
}

type dashboardJSON struct {
	Summary struct {
		PeriodType       string  `json:"periodType"`
		Expense          float64 `json:"expense"`
		TransactionCount int     `json:"transactionCount"`
	} `json:"summary"`
	TrendSummary []json.RawMessage `json:"trendSummary"`
}

func TestTransactionLifecycleAndDashboard(t *testing.T) {
	ts := newTestServer(t, nil)
	ada := ts.signIn(t, "ada@example.com")
	bob := ts.signIn(t, "bob@example.com")
	food := firstCategory(t, ts, ada, "expense")

	rec := ts.do(t, http.MethodPost, "/api/transactions/create",
		`{"name":"Groceries","amount":42.5,"currency":"USD","categoryId":"`+food.ID+`","date":"2024-03-15","type":"expense","userId":"x"}`, ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid fields in request: userId", errorMessage(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/transactions/create",
		`{"name":"Groceries","amount":42.5,"currency":"USD","categoryId":"`+food.ID+`","date":"2024-03-15","type":"expense"}`, ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decode[transactionReply](t, rec).Transaction
	assert.Equal(t, 42.5, tx.Amount)

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+tx.ID, "", bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Transaction not found", errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/transactions?date=2024-03-15", "", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]transactionJSON](t, rec)["transactions"], 1)

	rec = ts.do(t, http.MethodGet, "/api/transactions?date=2024-03-16", "", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"transactions":[]}`, strings.TrimSpace(rec.Body.String()))

	rec = ts.do(t, http.MethodGet, "/api/transactions/month-summary?year=2024&month=3", "", ada)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]map[string]float64](t, rec)
	assert.Equal(t, 42.5, summary["2024-03-15"]["expense"])

	rec = ts.do(t, http.MethodGet, "/api/transactions/month-summary?year=1969&month=3", "", ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	dashboard := func() dashboardJSON {
		rec := ts.do(t, http.MethodGet, "/api/analytics/dashboard?periodType=monthly&date=2024-03-15", "", ada)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[dashboardJSON](t, rec)
	}

	d := dashboard()
	assert.Equal(t, "monthly", d.Summary.PeriodType)
	assert.Equal(t, 42.5, d.Summary.Expense)
	assert.Len(t, d.TrendSummary, 31)

	dashboard()
	assert.EqualValues(t, 1, ts.appMetrics.cacheHits)

	rec = ts.do(t, http.MethodPatch, "/api/transactions/"+tx.ID, `{"amount":10}`, ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, ts.dashboards.Size())
	assert.Equal(t, 10.0, dashboard().Summary.Expense)

	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+tx.ID, "", ada)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, dashboard().Summary.TransactionCount)

	rec = ts.do(t, http.MethodGet, "/api/transactions/"+tx.ID, "", ada)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// pausingFinder holds the first current-period fetch until release is closed.
type pausingFinder struct {
	analytics.TransactionFinder
	paused  atomic.Bool
	fetched chan struct{}
	release chan struct{}
}

func (f *pausingFinder) FindTransactions(ctx context.Context, ownerID string, from, to time.Time, newestFirst bool) ([]core.Transaction, error) {
	txs, err := f.TransactionFinder.FindTransactions(ctx, ownerID, from, to, newestFirst)
	if newestFirst && f.paused.CompareAndSwap(false, true) {
		close(f.fetched)
		<-f.release
	}
	return txs, err
}

func TestDashboardNotCachedAcrossConcurrentWrite(t *testing.T) {
	finder := &pausingFinder{fetched: make(chan struct{}), release: make(chan struct{})}
	ts := newTestServer(t, func(c *Config) {
		repo := c.DB.(*storage.SQLiteRepository)
		finder.TransactionFinder = repo
		c.Analytics = analytics.NewService(finder, repo)
	})
	ada := ts.signIn(t, "ada@example.com")
	food := firstCategory(t, ts, ada, "expense")

	const path = "/api/analytics/dashboard?periodType=monthly&date=2024-03-15"

	inFlight := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(ada)
		rec := httptest.NewRecorder()
		ts.Handler.ServeHTTP(rec, req)
		inFlight <- rec
	}()

	<-finder.fetched
	rec := ts.do(t, http.MethodPost, "/api/transactions/create",
		`{"name":"Groceries","amount":42.5,"currency":"USD","categoryId":"`+food.ID+`","date":"2024-03-15","type":"expense"}`, ada)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	close(finder.release)

	rec = <-inFlight
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, decode[dashboardJSON](t, rec).Summary.Expense)
	assert.Zero(t, ts.dashboards.Size(), "result computed before the write must not be cached")

	rec = ts.do(t, http.MethodGet, path, "", ada)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 42.5, decode[dashboardJSON](t, rec).Summary.Expense)
	assert.Zero(t, atomic.LoadInt64(&ts.appMetrics.cacheHits))
	assert.Equal(t, 1, ts.dashboards.Size())
}

func TestDashboardValidation(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.DashboardCacheTTL = 0 })
	ada := ts.signIn(t, "ada@example.com")

	rec := ts.do(t, http.MethodGet, "/api/analytics/dashboard?periodType=hourly", "", ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, analytics.ErrInvalidPeriodType.Error(), errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/analytics/dashboard?date=not-a-date", "", ada)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, analytics.ErrInvalidDate.Error(), errorMessage(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/analytics/dashboard", "", ada)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, ts.dashboards)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", errorMessage(t, rec))
}
