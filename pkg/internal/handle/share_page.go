package handle

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/cloudbox/pkg/log"
)

const pageStyle = `body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;margin:0;padding:20px;background:#f8f9fa}
.container{max-width:800px;margin:0 auto;background:#fff;border-radius:12px;padding:30px;box-shadow:0 4px 12px rgba(0,0,0,.1);text-align:center}
.name{font-size:24px;font-weight:600;color:#1f2937;margin-bottom:8px}
.details{color:#6b7280;margin-bottom:8px}
.by{font-size:14px;color:#9ca3af}
.download{display:inline-block;background:#0061ff;color:#fff;padding:12px 24px;border-radius:8px;text-decoration:none;font-weight:600;margin-top:20px}
.preview{margin-top:20px}
.preview img,.preview video{max-width:100%;max-height:400px;border-radius:8px}`

var pageFuncs = template.FuncMap{
	"mb": func(n int64) string { return fmt.Sprintf("%.2f MB", float64(n)/1024/1024) },
	"isImage": func(mime string) bool { return strings.HasPrefix(mime, "image/") },
	"isVideo": func(mime string) bool { return strings.HasPrefix(mime, "video/") },
	"style":   func() template.CSS { return template.CSS(pageStyle) },
}

var sharePageTmpl = template.Must(template.New("share").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.File.OriginalName}} - shared file</title>
<style>{{style}}</style>
</head>
<body>
<div class="container">
<div class="name">{{.File.OriginalName}}</div>
<div class="details">{{mb .File.FileSize}}</div>
<div class="by">Shared by {{.SharedBy}}</div>
{{if isImage .File.MimeType}}<div class="preview"><img src="/api/shared/{{.Token}}/preview" alt="{{.File.OriginalName}}"></div>{{end}}
{{if isVideo .File.MimeType}}<div class="preview"><video controls poster="/api/shared/{{.Token}}/thumbnail"><source src="/api/shared/{{.Token}}/preview" type="{{.File.MimeType}}"></video></div>{{end}}
<a class="download" href="/api/shared/{{.Token}}/download">Download</a>
</div>
</body>
</html>`))

func statusPage(title, heading, text string) *template.Template {
	return template.Must(template.New(title).Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>` + title + `</title>
<style>{{style}}</style>
</head>
<body>
<div class="container">
<h1>` + heading + `</h1>
<p>` + text + `</p>
</div>
</body>
</html>`))
}

var (
	notFoundPageTmpl = statusPage("Link not found", "Link not found",
		"This share link does not exist or the file is no longer available.")
	expiredPageTmpl = statusPage("Link expired", "Link expired",
		"This share link has expired and can no longer be used.")
	errorPageTmpl = statusPage("Error", "Something went wrong", "Please try again later.")
)

// renderPage 先渲染到缓冲区，模板出错时不会写出半个页面.
func renderPage(c *gin.Context, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("template", tmpl.Name()).Msg("render page failed")
		c.Status(http.StatusInternalServerError)

		return
	}

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
