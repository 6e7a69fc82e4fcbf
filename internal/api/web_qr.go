package api

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrmark/internal/service"
)

// 扫码落地页。内容是链接时直接跳转，否则渲染为纯文本页面。
var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Content</title>
<style>
body { font-family: sans-serif; margin: 0; display: flex; justify-content: center; align-items: center; min-height: 100vh; background: #f5f5f5; }
.card { background: #fff; border-radius: 8px; padding: 2rem; max-width: 40rem; box-shadow: 0 1px 4px rgba(0,0,0,.15); word-break: break-word; white-space: pre-wrap; }
</style>
</head>
<body>
<div class="card">{{.Content}}</div>
</body>
</html>
`))

var notFoundTemplate = template.Must(template.New("notfound").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Not Found</title></head>
<body><p>This QR code does not exist or has been deleted.</p></body>
</html>
`))

func parseLandingID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

// isURL reports whether the content should be treated as a link rather than
// plain text.
func isURL(content string) bool {
	trimmed := strings.TrimSpace(content)
	lower := strings.ToLower(trimmed)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "ftp://") ||
		strings.HasPrefix(lower, "www.")
}

// redirectTarget prefixes scheme-less www. links so browsers follow them.
func redirectTarget(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(strings.ToLower(trimmed), "www.") {
		return "http://" + trimmed
	}
	return trimmed
}

// QrLanding 扫码落地页
func (h *HTTPHandler) QrLanding(c *gin.Context) {
	id, err := parseLandingID(c.Param("id"))
	if err != nil {
		h.renderNotFound(c)
		return
	}

	record, err := h.qrService.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, service.ErrRecordNotFound) {
			logrus.WithError(err).WithField("record_id", id).Error("failed to load landing record")
		}
		h.renderNotFound(c)
		return
	}

	if isURL(record.Content) {
		c.Redirect(http.StatusFound, redirectTarget(record.Content))
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := landingTemplate.Execute(c.Writer, gin.H{"Content": record.Content}); err != nil {
		logrus.WithError(err).Error("failed to render landing page")
	}
}

func (h *HTTPHandler) renderNotFound(c *gin.Context) {
	c.Status(http.StatusNotFound)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := notFoundTemplate.Execute(c.Writer, nil); err != nil {
		logrus.WithError(err).Error("failed to render not-found page")
	}
}
