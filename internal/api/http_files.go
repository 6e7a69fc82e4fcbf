package api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"qrmark/internal/storage"
)

// ServeStoredFile 提供本地存储的上传文件下载。二维码里嵌的就是这些地址，
// 所以不需要认证。仅当存储后端是本地文件系统时注册。
func (h *HTTPHandler) ServeStoredFile(c *gin.Context) {
	provider, ok := h.storage.(storage.LocalBaseDirProvider)
	if !ok {
		NotFound(c, "File not found")
		return
	}

	key := strings.TrimPrefix(c.Param("filepath"), "/")
	if key == "" {
		NotFound(c, "File not found")
		return
	}

	baseDir, err := filepath.Abs(provider.LocalBaseDir())
	if err != nil {
		InternalError(c, "Failed to resolve storage directory")
		return
	}
	absPath, err := filepath.Abs(filepath.Join(baseDir, filepath.FromSlash(key)))
	if err != nil || !strings.HasPrefix(absPath, baseDir+string(filepath.Separator)) {
		NotFound(c, "File not found")
		return
	}

	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		NotFound(c, "File not found")
		return
	}

	c.File(absPath)
}
