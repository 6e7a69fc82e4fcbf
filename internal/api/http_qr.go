package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"qrmark/internal/entity"
	"qrmark/internal/service"
)

// serviceUser converts the request user into the entity the service layer
// expects.
func serviceUser(c *gin.Context) *entity.User {
	user := CurrentUser(c)
	if user == nil {
		return nil
	}
	return &entity.User{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Status:   user.Status,
	}
}

// readUpload 读取 multipart 表单里的 file 字段。
func readUpload(c *gin.Context) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", service.ErrNoFile
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, fileHeader.Filename, nil
}

// writeQrItem 生成成功后返回扁平的二维码字段。
func writeQrItem(c *gin.Context, item *entity.QrRecordItem) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"id":        item.ID,
		"text":      item.Text,
		"url":       item.URL,
		"image":     item.Image,
		"timestamp": item.Timestamp,
		"type":      item.Type,
	})
}

func parseRecordID(c *gin.Context) (uint, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		BadRequest(c, "invalid record id")
		return 0, false
	}
	return uint(id), true
}

// GenerateQr 从文本生成二维码
func (h *HTTPHandler) GenerateQr(c *gin.Context) {
	var req entity.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	item, err := h.qrService.Generate(c.Request.Context(), serviceUser(c), req.Text)
	if err != nil {
		h.writeQrError(c, err)
		return
	}
	writeQrItem(c, item)
}

// GenerateQrFromImage 为上传的图片生成二维码
func (h *HTTPHandler) GenerateQrFromImage(c *gin.Context) {
	data, filename, err := readUpload(c)
	if err != nil {
		h.writeQrError(c, err)
		return
	}

	item, err := h.qrService.GenerateFromImageFile(c.Request.Context(), serviceUser(c), data, filename)
	if err != nil {
		h.writeQrError(c, err)
		return
	}
	writeQrItem(c, item)
}

// UploadDocument 为上传的文档生成二维码
func (h *HTTPHandler) UploadDocument(c *gin.Context) {
	data, filename, err := readUpload(c)
	if err != nil {
		h.writeQrError(c, err)
		return
	}

	item, err := h.qrService.GenerateForDocument(c.Request.Context(), serviceUser(c), data, filename)
	if err != nil {
		h.writeQrError(c, err)
		return
	}
	writeQrItem(c, item)
}

// ScanQr 识别上传图片里的二维码
func (h *HTTPHandler) ScanQr(c *gin.Context) {
	data, _, err := readUpload(c)
	if err != nil {
		h.writeQrError(c, err)
		return
	}

	item, err := h.qrService.Scan(c.Request.Context(), serviceUser(c), data)
	if err != nil {
		h.writeQrError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "text": item.Text, "record": item})
}

// QrHistory 当前用户的二维码历史，最新在前
func (h *HTTPHandler) QrHistory(c *gin.Context) {
	items, err := h.qrService.History(c.Request.Context(), serviceUser(c))
	if err != nil {
		logrus.WithError(err).Error("failed to load qr history")
		InternalError(c, "Failed to load history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": items})
}

// QrStats 当前用户的生成/扫描计数
func (h *HTTPHandler) QrStats(c *gin.Context) {
	stats, err := h.qrService.Stats(c.Request.Context(), serviceUser(c))
	if err != nil {
		logrus.WithError(err).Error("failed to load qr stats")
		InternalError(c, "Failed to load stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// UpdateQrText 修改一条记录的文本内容
func (h *HTTPHandler) UpdateQrText(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	var req entity.UpdateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	record, err := h.qrService.UpdateText(c.Request.Context(), serviceUser(c), id, req.Text)
	if err != nil {
		h.writeQrError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "QR code updated successfully",
		"id":      record.ID,
		"text":    record.Content,
	})
}

// DeleteQr 删除一条记录，上传文件会一并清理
func (h *HTTPHandler) DeleteQr(c *gin.Context) {
	id, ok := parseRecordID(c)
	if !ok {
		return
	}

	if err := h.qrService.Delete(c.Request.Context(), serviceUser(c), id); err != nil {
		h.writeQrError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "QR code deleted successfully"})
}

func (h *HTTPHandler) writeQrError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		BadRequest(c, "Content must not be empty")
	case errors.Is(err, service.ErrContentTooLong):
		BadRequest(c, "Content exceeds the maximum length of 750 characters")
	case errors.Is(err, service.ErrNotReadable):
		BadRequest(c, "QR code not readable")
	case errors.Is(err, service.ErrNoFile):
		BadRequest(c, "No file provided")
	case errors.Is(err, service.ErrFileTooLarge):
		ErrorResponse(c, http.StatusRequestEntityTooLarge, "File exceeds the maximum size of 50 MB")
	case errors.Is(err, service.ErrRecordNotFound):
		NotFound(c, "QR code not found")
	case errors.Is(err, service.ErrNotOwner):
		Forbidden(c, "You do not own this QR code")
	default:
		logrus.WithError(err).Error("qr operation failed")
		InternalError(c, "QR operation failed")
	}
}
