package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourusername/stock-manager/internal/activity"
	"github.com/yourusername/stock-manager/internal/directory"
	"github.com/yourusername/stock-manager/internal/logger"
	"github.com/yourusername/stock-manager/internal/metrics"
	"github.com/yourusername/stock-manager/internal/page"
)

type stubRecorder struct {
	logins  []int
	logouts []int
	entry   *activity.Entry
	err     error
}

func (s *stubRecorder) RecordLogin(_ context.Context, userID int) (*activity.Entry, error) {
	s.logins = append(s.logins, userID)
	return s.entry, s.err
}

func (s *stubRecorder) RecordLogout(_ context.Context, userID int) error {
	s.logouts = append(s.logouts, userID)
	return s.err
}

func (s *stubRecorder) Get(_ context.Context, _ int) (*activity.Entry, error) {
	return s.entry, s.err
}

type managerFixture struct {
	router  *gin.Engine
	logs    *observer.ObservedLogs
	metrics *metrics.Metrics
	cookies []*http.Cookie
}

func newManagerFixture(t *testing.T, recorder activity.Recorder) *managerFixture {
	t.Helper()
	router := newSessionRouter(t)
	core, logs := observer.New(zapcore.DebugLevel)
	router.Use(logger.Middleware(zap.New(core)))

	renderer := page.NewRenderer("test", "")
	renderer.Install(router)
	m := metrics.New()
	manager := NewManager(Options{
		Users:    directory.Default(),
		Renderer: renderer,
		Activity: recorder,
		Metrics:  m,
	})
	renderer.Share(manager.SharedProps)

	router.GET("/login", manager.ShowLogin)
	router.POST("/login", manager.Login)
	router.POST("/logout", manager.Logout)
	router.GET("/", manager.RequireLogin(), func(c *gin.Context) {
		renderer.Render(c, "Home", manager.ActivityProps(c))
	})

	return &managerFixture{router: router, logs: logs, metrics: m}
}

func (f *managerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range f.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		f.cookies = cookies
	}
	return rec
}

func (f *managerFixture) post(path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func TestLoginAndLogoutRecordActivity(t *testing.T) {
	recorder := &stubRecorder{}
	f := newManagerFixture(t, recorder)

	rec := f.post("/login", url.Values{"user_id": {"3"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []int{3}, recorder.logins)
	assert.Len(t, f.logs.FilterMessage("login succeeded").All(), 1)

	rec = f.post("/logout", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []int{3}, recorder.logouts)

	// 未ログインでのログアウトは履歴に残さない
	rec = f.post("/logout", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, []int{3}, recorder.logouts)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Logouts))
}

func TestLoginSucceedsWhenRecorderFails(t *testing.T) {
	recorder := &stubRecorder{err: errors.New("redis down")}
	f := newManagerFixture(t, recorder)

	rec := f.post("/login", url.Values{"user_id": {"1"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Len(t, f.logs.FilterMessage("failed to record login activity").All(), 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(page.HeaderInertia, "true")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastLoginAt":null`)
}

func TestActivityPropsUsesPreviousLogin(t *testing.T) {
	prev := time.Date(2026, 3, 31, 8, 30, 0, 0, time.UTC)
	recorder := &stubRecorder{entry: &activity.Entry{UserID: 1, LoginCount: 2, PreviousLoginAt: &prev}}
	f := newManagerFixture(t, recorder)

	require.Equal(t, http.StatusFound, f.post("/login", url.Values{"user_id": {"1"}}).Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(page.HeaderInertia, "true")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"lastLoginAt":"2026-03-31T08:30:00Z"`)
}

func TestLoginFailureIsLoggedAsInfo(t *testing.T) {
	f := newManagerFixture(t, nil)

	rec := f.post("/login", url.Values{"user_id": {"99"}})
	require.Equal(t, http.StatusFound, rec.Code)

	entries := f.logs.FilterMessage("login rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "99", entries[0].ContextMap()["user_id"])
	assert.Empty(t, f.logs.FilterLevelExact(zapcore.ErrorLevel).All())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Logins.WithLabelValues("failure")))
}
