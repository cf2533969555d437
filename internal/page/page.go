// Package page はサーバー側で決めた画面名とプロパティをクライアントの SPA に渡します。
//
// X-Inertia ヘッダー付きのリクエストには JSON のページオブジェクトを返し、
// それ以外（初回アクセス）には data-page 属性にページオブジェクトを埋め込んだ HTML を返します。
package page

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	HeaderInertia  = "X-Inertia"
	HeaderVersion  = "X-Inertia-Version"
	HeaderLocation = "X-Inertia-Location"
)

const shellTemplateName = "app.html"

//go:embed templates/app.html
var templateFS embed.FS

// Page はクライアントが画面を描画するためのページオブジェクトです。
type Page struct {
	Component string         `json:"component"`
	Props     map[string]any `json:"props"`
	URL       string         `json:"url"`
	Version   string         `json:"version"`
}

// SharedPropsFunc は全ページ共通のプロパティを返します。
type SharedPropsFunc func(c *gin.Context) map[string]any

// Renderer はページオブジェクトの生成と返却を行います。
type Renderer struct {
	appName string
	version string
	shared  []SharedPropsFunc
	tmpl    *template.Template
}

// NewRenderer は Renderer を作成します。
func NewRenderer(appName, version string) *Renderer {
	return &Renderer{
		appName: appName,
		version: version,
		tmpl:    template.Must(template.New(shellTemplateName).ParseFS(templateFS, "templates/"+shellTemplateName)),
	}
}

// Share は共通プロパティの提供元を追加します。後から追加したものが優先されます。
func (r *Renderer) Share(fn SharedPropsFunc) {
	r.shared = append(r.shared, fn)
}

// Install は HTML シェルのテンプレートを gin エンジンに登録します。
func (r *Renderer) Install(engine *gin.Engine) {
	engine.SetHTMLTemplate(r.tmpl)
}

// Version はフロントエンド資産のバージョンを返します。
func (r *Renderer) Version() string {
	return r.version
}

// Build は共通プロパティを合成したページオブジェクトを作成します。
func (r *Renderer) Build(c *gin.Context, component string, props map[string]any) *Page {
	merged := map[string]any{
		"appName": r.appName,
	}
	for _, fn := range r.shared {
		for k, v := range fn(c) {
			merged[k] = v
		}
	}
	for k, v := range props {
		merged[k] = v
	}

	return &Page{
		Component: component,
		Props:     merged,
		URL:       c.Request.URL.RequestURI(),
		Version:   r.version,
	}
}

// Render はページを返します。
func (r *Renderer) Render(c *gin.Context, component string, props map[string]any) {
	p := r.Build(c, component, props)

	c.Header("Vary", HeaderInertia)
	if IsInertia(c) {
		c.Header(HeaderInertia, "true")
		c.JSON(http.StatusOK, p)
		return
	}

	payload, err := json.Marshal(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "RENDER_FAILED",
			"message": "画面の生成に失敗しました。",
		})
		return
	}
	c.HTML(http.StatusOK, shellTemplateName, gin.H{
		"title": r.appName,
		"page":  string(payload),
	})
}

// VersionCheck は資産バージョンが古いクライアントに全画面リロードを指示するミドルウェアです。
func (r *Renderer) VersionCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && IsInertia(c) && c.GetHeader(HeaderVersion) != r.version {
			c.Header(HeaderLocation, c.Request.URL.RequestURI())
			c.AbortWithStatus(http.StatusConflict)
			return
		}
		c.Next()
	}
}

// IsInertia はクライアントの SPA からのページ遷移リクエストかを返します。
func IsInertia(c *gin.Context) bool {
	return c.GetHeader(HeaderInertia) == "true"
}

// Redirect は指定先へリダイレクトします。
// PUT/PATCH/DELETE の後は 303 を使い、遷移先を GET で取り直させます。
func Redirect(c *gin.Context, location string) {
	status := http.StatusFound
	switch c.Request.Method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		status = http.StatusSeeOther
	}
	c.Redirect(status, location)
}
