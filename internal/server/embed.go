package server

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed pages/*.html
var pagesFS embed.FS

const htmlContentType = "text/html; charset=utf-8"

// errorPages はエラー時に返すHTMLページを描画する
type errorPages struct {
	tmpl   *template.Template
	policy *bluemonday.Policy
}

// pageData はエラーページのテンプレートに渡す値
type pageData struct {
	Title string
	Path  string
}

var pageTitles = map[int]string{
	http.StatusNotFound:            "404 : File Not Found",
	http.StatusMethodNotAllowed:    "405 : Method Not Allowed",
	http.StatusInternalServerError: "500 : Internal Server Error",
}

// loadErrorPages は埋め込みテンプレートを読み込む
func loadErrorPages() (*errorPages, error) {
	tmpl, err := template.ParseFS(pagesFS, "pages/error.html")
	if err != nil {
		return nil, fmt.Errorf("エラーページの読み込みに失敗: %w", err)
	}
	return &errorPages{
		tmpl:   tmpl,
		policy: bluemonday.StrictPolicy(),
	}, nil
}

// render はステータスコードに対応するページを描画する
// path はマークアップを除去し、テンプレートでエスケープして埋め込む
func (p *errorPages) render(status int, path string) []byte {
	title, ok := pageTitles[status]
	if !ok {
		title = fmt.Sprintf("%d : %s", status, http.StatusText(status))
	}

	data := pageData{Title: title}
	if path != "" {
		data.Path = html.UnescapeString(p.policy.Sanitize(path))
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return []byte(title)
	}
	return buf.Bytes()
}

// write はエラーページをレスポンスとして書き込む
func (p *errorPages) write(c *gin.Context, status int, path string) {
	c.Data(status, htmlContentType, p.render(status, path))
}

// notFound は 404 ページを書き込む
func (p *errorPages) notFound(c *gin.Context) {
	p.write(c, http.StatusNotFound, c.Request.URL.Path)
}

// methodNotAllowed は 405 ページを書き込む
func (p *errorPages) methodNotAllowed(c *gin.Context) {
	c.Header("Allow", "GET, HEAD")
	p.write(c, http.StatusMethodNotAllowed, "")
}

// internalError は 500 ページを書き込む
func (p *errorPages) internalError(c *gin.Context) {
	p.write(c, http.StatusInternalServerError, "")
}
