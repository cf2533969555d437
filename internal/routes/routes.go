// Package routes はページのルート表と gin への登録を提供します。
package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/stock-manager/internal/page"
)

// Route はURLパスと表示するページの対応です。
type Route struct {
	Path      string
	Component string
	Name      string
	Protected bool
}

// HomeComponent はトップページ（未定義パスのフォールバック先）のページ名です。
const HomeComponent = "Home"

// Table はアプリケーションのページルート表です。起動後に変更しません。
var Table = []Route{
	{Path: "/", Component: HomeComponent, Name: "home", Protected: true},
	{Path: "/inventory", Component: "Inventory/Index", Name: "inventory.index", Protected: true},
	{Path: "/orders", Component: "Orders/Index", Name: "orders.index", Protected: true},
	{Path: "/alerts", Component: "Alerts/Index", Name: "alerts.index", Protected: true},
}

// Lookup はパスに一致するルートを返します。
func Lookup(path string) (Route, bool) {
	for _, r := range Table {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// PropsFunc はページ固有のプロパティを返します。
type PropsFunc func(c *gin.Context) map[string]any

// Options はルート登録に必要な依存関係です。
type Options struct {
	Renderer *page.Renderer
	// Gate はログイン必須ページの判定を行い、拒否時はレスポンスを書いて false を返します。
	Gate func(c *gin.Context) bool
	// Props はページ名ごとの追加プロパティです。
	Props map[string]PropsFunc
	// PublicDir が存在すれば /js と /css を配信します。
	PublicDir string
}

// Register はルート表のページと、未定義パスのフォールバックを登録します。
func Register(router *gin.Engine, opts Options) {
	for _, r := range Table {
		router.GET(r.Path, pageHandler(r, opts))
	}

	fallback := Route{Path: "/*any", Component: HomeComponent, Name: "fallback", Protected: true}
	fallbackHandler := pageHandler(fallback, opts)
	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    "NOT_FOUND",
				"message": "指定されたページは存在しません。",
			})
			return
		}
		fallbackHandler(c)
	})

	registerStatic(router, opts.PublicDir)
}

func pageHandler(r Route, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.Protected && opts.Gate != nil && !opts.Gate(c) {
			return
		}

		var props map[string]any
		if fn, ok := opts.Props[r.Component]; ok && fn != nil {
			props = fn(c)
		}
		opts.Renderer.Render(c, r.Component, props)
	}
}

func registerStatic(router *gin.Engine, publicDir string) {
	if publicDir == "" {
		return
	}
	for _, sub := range []string{"js", "css"} {
		dir := filepath.Join(publicDir, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			router.Static("/"+sub, dir)
		}
	}
}
