// Package auth はログイン画面・ログイン/ログアウト処理と、ログイン必須ページのゲートを提供します。
package auth

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/yourusername/stock-manager/internal/activity"
	"github.com/yourusername/stock-manager/internal/directory"
	"github.com/yourusername/stock-manager/internal/logger"
	"github.com/yourusername/stock-manager/internal/metrics"
	"github.com/yourusername/stock-manager/internal/page"
)

// LoginComponent はログイン画面のページ名です。
const LoginComponent = "Login"

// Options は Manager の依存関係です。Users と Renderer 以外は省略できます。
type Options struct {
	Users    directory.Finder
	Renderer *page.Renderer
	Activity activity.Recorder
	Throttle *Throttle
	Metrics  *metrics.Metrics
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users    directory.Finder
	renderer *page.Renderer
	activity activity.Recorder
	throttle *Throttle
	metrics  *metrics.Metrics
}

// NewManager は認証マネージャーを作成します。
func NewManager(opts Options) *Manager {
	return &Manager{
		users:    opts.Users,
		renderer: opts.Renderer,
		activity: opts.Activity,
		throttle: opts.Throttle,
		metrics:  opts.Metrics,
	}
}

// ShowLogin は GET /login のハンドラーです。
func (m *Manager) ShowLogin(c *gin.Context) {
	// すでにログイン済みならトップページへ
	if _, ok := CurrentUser(sessions.Default(c)); ok {
		page.Redirect(c, HomePath)
		return
	}

	m.renderer.Render(c, LoginComponent, gin.H{
		"users":    m.users.All(c.Request.Context()),
		"intended": SanitizeIntended(c.Query(IntendedParam)),
	})
}

// Login は POST /login のハンドラーです。
func (m *Manager) Login(c *gin.Context) {
	log := logger.FromContext(c)
	session := sessions.Default(c)
	form := parseLoginForm(c)
	intended := SanitizeIntended(form.Intended)

	ip := c.ClientIP()
	if retryAfter := m.throttle.Check(ip); retryAfter > 0 {
		// Retry-After は秒数で返す
		c.Header("Retry-After", strconv.FormatInt(int64(retryAfter.Seconds())+1, 10))
		m.metrics.RecordLogin(false)
		log.Info("login throttled", zap.String("client_ip", ip))
		m.failLogin(c, session, form, intended,
			oops.Code(CodeLoginThrottled).With("field", fieldUserID).Public(MsgLoginThrottled).Errorf("login throttled"))
		return
	}

	user, err := m.authenticate(c, form.UserID)
	if err != nil {
		remaining := m.throttle.RecordFailure(ip)
		m.metrics.RecordLogin(false)
		log.Info("login rejected",
			zap.String("user_id", form.UserID),
			zap.Int("remaining_attempts", remaining),
			zap.Error(err),
		)
		m.failLogin(c, session, form, intended, err)
		return
	}
	m.throttle.Reset(ip)

	// セッションにユーザー情報を格納
	session.Set(SessionKeyUser, user)
	session.Delete(sessionKeyErrors)
	session.Delete(sessionKeyOld)
	if err := session.Save(); err != nil {
		log.Error("failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "セッションの保存に失敗しました",
		})
		return
	}

	if m.activity != nil {
		if _, err := m.activity.RecordLogin(c.Request.Context(), user.ID); err != nil {
			log.Warn("failed to record login activity", zap.Int("user_id", user.ID), zap.Error(err))
		}
	}
	m.metrics.RecordLogin(true)
	log.Info("login succeeded", zap.Int("user_id", user.ID))

	page.Redirect(c, intendedOrHome(intended))
}

// Logout は POST /logout のハンドラーです。未ログインでも同じ結果になります。
func (m *Manager) Logout(c *gin.Context) {
	log := logger.FromContext(c)
	session := sessions.Default(c)

	user, wasLoggedIn := CurrentUser(session)
	session.Delete(SessionKeyUser)
	if err := session.Save(); err != nil {
		log.Error("failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "セッションの削除に失敗しました",
		})
		return
	}

	if wasLoggedIn {
		if m.activity != nil {
			if err := m.activity.RecordLogout(c.Request.Context(), user.ID); err != nil {
				log.Warn("failed to record logout activity", zap.Int("user_id", user.ID), zap.Error(err))
			}
		}
		log.Info("logout", zap.Int("user_id", user.ID))
	}
	m.metrics.RecordLogout()

	page.Redirect(c, LoginPath)
}

// SharedProps は全ページ共通のプロパティ（ログインユーザーと直前のフォームエラー）を返します。
func (m *Manager) SharedProps(c *gin.Context) map[string]any {
	session := sessions.Default(c)

	var authUser any
	if user, ok := CurrentUser(session); ok {
		authUser = user
	}

	errs, old, popped := popFlashedForm(session)
	if popped {
		if err := session.Save(); err != nil {
			logger.FromContext(c).Warn("failed to clear flashed form", zap.Error(err))
		}
	}

	return map[string]any{
		"auth":   gin.H{"user": authUser},
		"errors": errs,
		"old":    old,
	}
}

// ActivityProps はログインユーザーの前回ログイン日時をトップページ用に返します。
func (m *Manager) ActivityProps(c *gin.Context) map[string]any {
	props := map[string]any{"lastLoginAt": nil}
	user, ok := UserFromContext(c)
	if !ok || m.activity == nil {
		return props
	}

	entry, err := m.activity.Get(c.Request.Context(), user.ID)
	if err != nil {
		logger.FromContext(c).Warn("failed to load login activity", zap.Int("user_id", user.ID), zap.Error(err))
		return props
	}
	if entry != nil && entry.PreviousLoginAt != nil {
		props["lastLoginAt"] = entry.PreviousLoginAt
	}
	return props
}

func (m *Manager) authenticate(c *gin.Context, rawID string) (directory.User, error) {
	id, err := parseUserID(rawID)
	if err != nil {
		return directory.User{}, err
	}
	user, ok := m.users.FindByID(c.Request.Context(), id)
	if !ok {
		return directory.User{}, fieldError(CodeUserNotFound, MsgUserNotFound, rawID)
	}
	return user, nil
}

// failLogin はエラーと入力値をセッションに残してログイン画面へ戻します。
func (m *Manager) failLogin(c *gin.Context, session sessions.Session, form loginForm, intended string, err error) {
	flashForm(session, fieldErrorsFrom(err), OldInput{fieldUserID: form.UserID})
	if saveErr := session.Save(); saveErr != nil {
		logger.FromContext(c).Error("failed to save session", zap.Error(saveErr))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_SAVE_FAILED",
			"message": "セッションの保存に失敗しました",
		})
		return
	}
	page.Redirect(c, LoginURL(intended))
}
