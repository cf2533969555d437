package auth

import (
	"crypto/sha256"
	"encoding/gob"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"golang.org/x/crypto/hkdf"

	"github.com/yourusername/stock-manager/internal/config"
	"github.com/yourusername/stock-manager/internal/directory"
)

const (
	// SessionKeyUser はログイン済みユーザーを保持するセッションキーです。
	SessionKeyUser = "user"

	sessionKeyErrors = "_errors"
	sessionKeyOld    = "_old"

	sessionKeyLength = 32
)

// FieldErrors はフォーム項目ごとのエラーメッセージです。
type FieldErrors map[string]string

// OldInput は直前に送信されたフォームの値です（エラー時の再表示用）。
type OldInput map[string]string

func init() {
	gob.Register(FieldErrors{})
	gob.Register(OldInput{})
}

// SessionKeys は SESSION_SECRET からクッキーの署名鍵と暗号化鍵を導出します。
func SessionKeys(secret string) (authKey, encKey []byte, err error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("stock-manager session cookie"))
	authKey = make([]byte, sessionKeyLength)
	encKey = make([]byte, sessionKeyLength)
	if _, err := io.ReadFull(r, authKey); err != nil {
		return nil, nil, err
	}
	if _, err := io.ReadFull(r, encKey); err != nil {
		return nil, nil, err
	}
	return authKey, encKey, nil
}

// NewStore はセッションクッキーのストアを作成します。
func NewStore(cfg *config.Config) (sessions.Store, error) {
	authKey, encKey, err := SessionKeys(cfg.EffectiveSessionSecret())
	if err != nil {
		return nil, err
	}
	store := cookie.NewStore(authKey, encKey)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionLifetimeMinutes * 60,
		HttpOnly: true,
		Secure:   cfg.IsRelease(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// CurrentUser はセッションに保存されたログインユーザーを返します。
func CurrentUser(session sessions.Session) (directory.User, bool) {
	if session == nil {
		return directory.User{}, false
	}
	user, ok := session.Get(SessionKeyUser).(directory.User)
	if !ok || user.ID == 0 {
		return directory.User{}, false
	}
	return user, true
}

// flashForm は次のリクエストで一度だけ表示するエラーと入力値を保存します。
func flashForm(session sessions.Session, errs FieldErrors, old OldInput) {
	session.Set(sessionKeyErrors, errs)
	session.Set(sessionKeyOld, old)
}

// popFlashedForm はフラッシュされたエラーと入力値を取り出して削除します。
func popFlashedForm(session sessions.Session) (FieldErrors, OldInput, bool) {
	errsValue := session.Get(sessionKeyErrors)
	oldValue := session.Get(sessionKeyOld)
	if errsValue == nil && oldValue == nil {
		return FieldErrors{}, OldInput{}, false
	}

	errs, ok := errsValue.(FieldErrors)
	if !ok || errs == nil {
		errs = FieldErrors{}
	}
	old, ok := oldValue.(OldInput)
	if !ok || old == nil {
		old = OldInput{}
	}
	session.Delete(sessionKeyErrors)
	session.Delete(sessionKeyOld)
	return errs, old, true
}
