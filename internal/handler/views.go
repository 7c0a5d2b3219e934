package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/portal/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレート名
const (
	pageHome             = "home.html"
	pageLogin            = "login.html"
	pageRegister         = "register.html"
	pageDashboardAdmin   = "dashboard_admin.html"
	pageDashboardStudent = "dashboard_student.html"
	pageProfile          = "profile.html"
	pageUnauthorized     = "unauthorized.html"
)

var pageNames = []string{
	pageHome,
	pageLogin,
	pageRegister,
	pageDashboardAdmin,
	pageDashboardStudent,
	pageProfile,
	pageUnauthorized,
}

// pageData はテンプレートに渡す値。
type pageData struct {
	Title        string
	Session      *model.Session
	Verified     bool
	Connectivity model.ConnectivityStatus
	Error        *model.APIError
	Notice       string
	Next         string
	Form         any
}

// Views は埋め込みテンプレートから画面を描画する。
type Views struct {
	pages map[string]*template.Template
}

// NewViews は全ページのテンプレートを解析する。
func NewViews() (*Views, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Views{pages: pages}, nil
}

// MustNewViews はNewViewsを呼び、失敗した場合はpanicする。
// テンプレートはバイナリに埋め込まれているため、失敗はビルドの不備を意味する。
func MustNewViews() *Views {
	v, err := NewViews()
	if err != nil {
		panic(err)
	}
	return v
}

// render はページを描画する。
// 途中で失敗した場合に部分的なHTMLを返さないよう、バッファに描画してから書き込む。
func (v *Views) render(w http.ResponseWriter, status int, name string, data *pageData) {
	tmpl, ok := v.pages[name]
	if !ok {
		slog.Error("template not found", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
