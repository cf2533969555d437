package auth

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
)

// ログインフォームのエラーコード
const (
	CodeUserIDRequired   = "USER_ID_REQUIRED"
	CodeUserIDNotNumeric = "USER_ID_NOT_NUMERIC"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeLoginThrottled   = "LOGIN_THROTTLED"
)

// ログインフォームのエラーメッセージ
const (
	MsgUserIDRequired   = "ユーザーIDを選択してください"
	MsgUserIDNotNumeric = "ユーザーIDは数値で指定してください"
	MsgUserNotFound     = "ユーザーが見つかりません"
	MsgLoginThrottled   = "ログイン試行回数が多すぎます。しばらくしてから再度お試しください"
)

const fieldUserID = "user_id"

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

type loginForm struct {
	UserID   string
	Intended string
}

type loginJSON struct {
	UserID   json.RawMessage `json:"user_id"`
	Intended string          `json:"intended"`
}

// parseLoginForm は JSON とフォームのどちらで送られた値も読み取ります。
// user_id は数値・文字列どちらの JSON 表現も受け付けます。
func parseLoginForm(c *gin.Context) loginForm {
	var form loginForm
	if strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
		var body loginJSON
		if err := c.ShouldBindJSON(&body); err == nil {
			form.UserID = rawToString(body.UserID)
			form.Intended = body.Intended
		}
	} else {
		form.UserID = c.PostForm(fieldUserID)
		form.Intended = c.PostForm(IntendedParam)
	}
	if form.Intended == "" {
		form.Intended = c.Query(IntendedParam)
	}
	return form
}

func rawToString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseUserID は user_id の必須・数値チェックを行います。
// 数値ではあるが整数でない値（例: 3.5）は存在しないユーザーとして扱います。
func parseUserID(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fieldError(CodeUserIDRequired, MsgUserIDRequired, raw)
	}
	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}
	if numericPattern.MatchString(value) {
		return 0, fieldError(CodeUserNotFound, MsgUserNotFound, raw)
	}
	return 0, fieldError(CodeUserIDNotNumeric, MsgUserIDNotNumeric, raw)
}

func fieldError(code, message, value string) error {
	return oops.
		Code(code).
		With("field", fieldUserID).
		With("value", value).
		Public(message).
		Errorf("invalid login: %s", strings.ToLower(code))
}

// fieldErrorsFrom はエラーをフォーム項目ごとのメッセージに変換します。
func fieldErrorsFrom(err error) FieldErrors {
	if oopsErr, ok := oops.AsOops(err); ok {
		field, _ := oopsErr.Context()["field"].(string)
		if field == "" {
			field = fieldUserID
		}
		if msg := oopsErr.Public(); msg != "" {
			return FieldErrors{field: msg}
		}
	}
	return FieldErrors{fieldUserID: MsgUserNotFound}
}
