package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/stock-manager/internal/directory"
	"github.com/yourusername/stock-manager/internal/page"
)

const (
	LoginPath  = "/login"
	LogoutPath = "/logout"
	HomePath   = "/"

	// IntendedParam はログイン後に戻るパスを運ぶクエリパラメータ名です。
	IntendedParam = "intended"
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Decision はゲートの判定結果です。
type Decision struct {
	Allowed    bool
	RedirectTo string
}

// Authorize はセッションにログインユーザーがいるかでリクエストを通すか判定します。
// セッションは読むだけで変更しません。
func Authorize(session sessions.Session, req *http.Request) Decision {
	if _, ok := CurrentUser(session); ok {
		return Decision{Allowed: true}
	}
	if req != nil && (req.Method == http.MethodGet || req.Method == http.MethodHead) {
		return Decision{RedirectTo: LoginURL(req.URL.RequestURI())}
	}
	return Decision{RedirectTo: LoginPath}
}

// Gate は判定を行い、拒否した場合はログイン画面へリダイレクトして false を返します。
func (m *Manager) Gate(c *gin.Context) bool {
	session := sessions.Default(c)
	decision := Authorize(session, c.Request)
	m.metrics.RecordGate(decision.Allowed)
	if !decision.Allowed {
		page.Redirect(c, decision.RedirectTo)
		c.Abort()
		return false
	}

	user, _ := CurrentUser(session)
	c.Set(ContextUserKey, user)
	return true
}

// RequireLogin はセッションを検証するミドルウェアを返します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.Gate(c) {
			c.Next()
		}
	}
}

// UserFromContext は RequireLogin 通過後のユーザーを返します。
func UserFromContext(c *gin.Context) (directory.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return directory.User{}, false
	}
	user, ok := v.(directory.User)
	return user, ok
}

// LoginURL は戻り先を付けたログイン画面のURLを返します。
func LoginURL(intended string) string {
	intended = SanitizeIntended(intended)
	if intended == "" || intended == HomePath {
		return LoginPath
	}
	return LoginPath + "?" + IntendedParam + "=" + url.QueryEscape(intended)
}

// SanitizeIntended はログイン後の戻り先として使えるパスだけを返します。
// 外部サイトへのリダイレクトやログイン画面自身は空文字になります。
func SanitizeIntended(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return ""
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	if strings.ContainsAny(raw, "\r\n\t\\") {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	switch strings.TrimSuffix(u.Path, "/") {
	case LoginPath, LogoutPath:
		return ""
	}
	return raw
}

// intendedOrHome は戻り先が無ければトップページを返します。
func intendedOrHome(intended string) string {
	if intended = SanitizeIntended(intended); intended != "" {
		return intended
	}
	return HomePath
}
