package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"net"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/sirupsen/logrus"
	qrencode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"qrmark/internal/config"
	"qrmark/internal/entity"
	"qrmark/internal/model"
	"qrmark/internal/storage"
)

const (
	// QrImageSize 生成的二维码 PNG 边长（像素）。
	QrImageSize = 300
	// MaxDocumentSize 文档上传的大小上限。
	MaxDocumentSize = 50 << 20
)

// QrService 二维码服务，封装生成、扫描和历史记录相关的业务逻辑。
type QrService struct {
	repo    model.Repository
	storage storage.Storage
	cfg     config.Config
}

// NewQrService 创建二维码服务实例。
func NewQrService(repo model.Repository, store storage.Storage, cfg config.Config) *QrService {
	return &QrService{repo: repo, storage: store, cfg: cfg}
}

// CallbackHost returns the hostname embedded in generated QR payloads. A
// configured hostname wins; otherwise the first private IPv4 address of a
// local interface is used.
func (s *QrService) CallbackHost() (string, error) {
	if host := strings.TrimSpace(s.cfg.CallbackHostname); host != "" {
		return host, nil
	}
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}
	var candidates []net.IP
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || !ip.IsPrivate() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}
	if best := preferPrivateIPv4(candidates); best != "" {
		return best, nil
	}
	return "", ErrNoHostAddress
}

// preferPrivateIPv4 按 10.x > 172.16-31.x > 192.168.x 的顺序挑选地址。
func preferPrivateIPv4(candidates []net.IP) string {
	var tenNet, seventyTwo, oneNinetyTwo string
	for _, ip := range candidates {
		switch {
		case ip[0] == 10:
			if tenNet == "" {
				tenNet = ip.String()
			}
		case ip[0] == 172 && ip[1] >= 16 && ip[1] <= 31:
			if seventyTwo == "" {
				seventyTwo = ip.String()
			}
		case ip[0] == 192 && ip[1] == 168:
			if oneNinetyTwo == "" {
				oneNinetyTwo = ip.String()
			}
		}
	}
	if tenNet != "" {
		return tenNet
	}
	if seventyTwo != "" {
		return seventyTwo
	}
	return oneNinetyTwo
}

// CallbackBase returns the scheme://host[:port] prefix for QR payload URLs.
// Default ports are omitted.
func (s *QrService) CallbackBase() (string, error) {
	host, err := s.CallbackHost()
	if err != nil {
		return "", err
	}
	scheme := strings.TrimSpace(s.cfg.CallbackScheme)
	if scheme == "" {
		scheme = "http"
	}
	port := strings.TrimSpace(s.cfg.HTTPPort)
	if port == "" || (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		return fmt.Sprintf("%s://%s", scheme, host), nil
	}
	return fmt.Sprintf("%s://%s:%s", scheme, host, port), nil
}

// EncodePNG renders the payload as a 300x300 PNG.
func (s *QrService) EncodePNG(payload string) ([]byte, error) {
	png, err := qrencode.Encode(payload, qrencode.Medium, QrImageSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

func pngDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// Decode extracts the text of a QR code from image bytes. Every failure mode
// collapses into ErrNotReadable so callers cannot distinguish a broken image
// from a missing code.
func (s *QrService) Decode(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", ErrNotReadable
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", ErrNotReadable
	}
	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil || result == nil {
		return "", ErrNotReadable
	}
	return result.GetText(), nil
}

// Generate stores the text as a new record and returns a QR image whose
// payload is the record's landing URL.
func (s *QrService) Generate(ctx context.Context, user *entity.User, text string) (*entity.QrRecordItem, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}

	record := &entity.QrRecord{
		Content: text,
		Kind:    entity.QrKindGenerated,
		UserID:  user.ID,
	}
	if err := s.repo.CreateQrRecord(ctx, record); err != nil {
		return nil, err
	}

	base, err := s.CallbackBase()
	if err != nil {
		return nil, err
	}
	payload := fmt.Sprintf("%s/qr/%d", base, record.ID)

	png, err := s.EncodePNG(payload)
	if err != nil {
		return nil, err
	}

	return &entity.QrRecordItem{
		ID:        record.ID,
		Text:      record.Content,
		URL:       payload,
		Image:     pngDataURI(png),
		Timestamp: record.CreatedAt,
		Type:      record.Kind,
	}, nil
}

// GenerateFromImageFile stores an uploaded image and returns a QR code whose
// payload is the image's download URL.
func (s *QrService) GenerateFromImageFile(ctx context.Context, user *entity.User, data []byte, filename string) (*entity.QrRecordItem, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	return s.generateForUpload(ctx, user, data, filename, "qr-images", "image")
}

// GenerateForDocument stores an uploaded document and returns a QR code whose
// payload is the document's download URL.
func (s *QrService) GenerateForDocument(ctx context.Context, user *entity.User, data []byte, filename string) (*entity.QrRecordItem, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrFileTooLarge
	}
	return s.generateForUpload(ctx, user, data, filename, "qr-docs", "doc")
}

func (s *QrService) generateForUpload(ctx context.Context, user *entity.User, data []byte, filename, category, route string) (*entity.QrRecordItem, error) {
	ext := ""
	base := filename
	if idx := strings.LastIndex(filename, "."); idx >= 0 {
		ext = filename[idx+1:]
		base = filename[:idx]
	}

	key, err := s.storage.Save(ctx, data, storage.SaveOptions{
		Category:  category,
		Extension: ext,
		BaseName:  base,
	})
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	callbackBase, err := s.CallbackBase()
	if err != nil {
		return nil, err
	}
	payload := fmt.Sprintf("%s/api/qr/%s/%s", callbackBase, route, key)

	record := &entity.QrRecord{
		Content: payload,
		Kind:    entity.QrKindGenerated,
		UserID:  user.ID,
	}
	if err := s.repo.CreateQrRecord(ctx, record); err != nil {
		return nil, err
	}

	png, err := s.EncodePNG(payload)
	if err != nil {
		return nil, err
	}

	return &entity.QrRecordItem{
		ID:        record.ID,
		Text:      record.Content,
		URL:       payload,
		Image:     pngDataURI(png),
		Timestamp: record.CreatedAt,
		Type:      record.Kind,
	}, nil
}

// Scan decodes an uploaded image and records the result in the scan history.
func (s *QrService) Scan(ctx context.Context, user *entity.User, data []byte) (*entity.QrRecordItem, error) {
	if len(data) == 0 {
		return nil, ErrNoFile
	}
	text, err := s.Decode(data)
	if err != nil {
		return nil, err
	}

	record := &entity.QrRecord{
		Content: text,
		Kind:    entity.QrKindScanned,
		UserID:  user.ID,
	}
	if err := s.repo.CreateQrRecord(ctx, record); err != nil {
		return nil, err
	}

	return &entity.QrRecordItem{
		ID:        record.ID,
		Text:      record.Content,
		Timestamp: record.CreatedAt,
		Type:      record.Kind,
	}, nil
}

// History returns the user's records, newest first. Generated records carry a
// freshly rendered QR image; render failures degrade to an empty image rather
// than failing the listing.
func (s *QrService) History(ctx context.Context, user *entity.User) ([]entity.QrRecordItem, error) {
	records, err := s.repo.ListQrRecordsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	items := make([]entity.QrRecordItem, 0, len(records))
	for _, record := range records {
		item := entity.QrRecordItem{
			ID:        record.ID,
			Text:      record.Content,
			Timestamp: record.CreatedAt,
			Type:      record.Kind,
		}
		if record.Kind == entity.QrKindGenerated {
			payload, err := s.recordPayload(&record)
			if err == nil {
				item.URL = payload
				if png, err := s.EncodePNG(payload); err == nil {
					item.Image = pngDataURI(png)
				} else {
					logrus.WithError(err).WithField("record_id", record.ID).Warn("failed to render history image")
				}
			} else {
				logrus.WithError(err).WithField("record_id", record.ID).Warn("failed to build history payload")
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// recordPayload rebuilds the QR payload for a generated record. File records
// already store the full download URL as their content.
func (s *QrService) recordPayload(record *entity.QrRecord) (string, error) {
	if isFileRecord(record.Content) {
		return record.Content, nil
	}
	base, err := s.CallbackBase()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/qr/%d", base, record.ID), nil
}

func isFileRecord(content string) bool {
	return strings.Contains(content, "/api/qr/image/") || strings.Contains(content, "/api/qr/doc/")
}

// Stats counts the user's generated and scanned records.
func (s *QrService) Stats(ctx context.Context, user *entity.User) (*entity.QrStats, error) {
	generated, err := s.repo.CountQrRecordsByUserAndKind(ctx, user.ID, entity.QrKindGenerated)
	if err != nil {
		return nil, err
	}
	scanned, err := s.repo.CountQrRecordsByUserAndKind(ctx, user.ID, entity.QrKindScanned)
	if err != nil {
		return nil, err
	}
	return &entity.QrStats{Generated: generated, Scanned: scanned}, nil
}

// UpdateText replaces the content of one of the user's records.
func (s *QrService) UpdateText(ctx context.Context, user *entity.User, id uint, text string) (*entity.QrRecord, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(text) > entity.MaxQrContentLength {
		return nil, ErrContentTooLong
	}

	record, err := s.ownedRecord(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQrRecord(ctx, record.ID, map[string]interface{}{"content": text}); err != nil {
		return nil, err
	}
	record.Content = text
	return record, nil
}

// Delete removes one of the user's records. Backing files of uploaded images
// and documents are removed best effort.
func (s *QrService) Delete(ctx context.Context, user *entity.User, id uint) error {
	record, err := s.ownedRecord(ctx, user, id)
	if err != nil {
		return err
	}
	s.removeBackingFile(ctx, record)
	return s.repo.DeleteQrRecord(ctx, record.ID)
}

// DeleteAllForUser removes every record owned by the user, including backing
// files. Used when an account is deleted.
func (s *QrService) DeleteAllForUser(ctx context.Context, userID uint) error {
	records, err := s.repo.ListQrRecordsByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, record := range records {
		s.removeBackingFile(ctx, &record)
		if err := s.repo.DeleteQrRecord(ctx, record.ID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

// Get loads a record by ID for the public landing page.
func (s *QrService) Get(ctx context.Context, id uint) (*entity.QrRecord, error) {
	record, err := s.repo.GetQrRecord(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *QrService) ownedRecord(ctx context.Context, user *entity.User, id uint) (*entity.QrRecord, error) {
	record, err := s.repo.GetQrRecord(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if record.UserID != user.ID {
		return nil, ErrNotOwner
	}
	return record, nil
}

// removeBackingFile 从记录内容里解析出存储键并尽力删除文件，失败仅记录日志。
func (s *QrService) removeBackingFile(ctx context.Context, record *entity.QrRecord) {
	if s.storage == nil || record == nil {
		return
	}
	key := extractStorageKey(record.Content)
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"record_id": record.ID,
			"key":       key,
		}).Warn("failed to remove backing file")
	}
}

// CleanupOrphanFiles removes stored upload files that no record references
// any more. File writes and record inserts are not transactional, so a crash
// between the two can leave strays behind. Best effort, run at startup; only
// applies to local storage.
func (s *QrService) CleanupOrphanFiles(ctx context.Context) {
	provider, ok := s.storage.(storage.LocalBaseDirProvider)
	if !ok {
		return
	}

	referenced := map[string]struct{}{}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		logrus.WithError(err).Warn("orphan sweep: failed to list users")
		return
	}
	for _, user := range users {
		records, err := s.repo.ListQrRecordsByUser(ctx, user.ID)
		if err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("orphan sweep: failed to list records")
			return
		}
		for _, record := range records {
			if key := extractStorageKey(record.Content); key != "" {
				referenced[key] = struct{}{}
			}
		}
	}

	baseDir := provider.LocalBaseDir()
	removed := 0
	err = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(rel)
		if _, ok := referenced[key]; ok {
			return nil
		}
		if err := s.storage.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("orphan sweep: failed to remove file")
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		logrus.WithError(err).Warn("orphan sweep: walk failed")
	}
	if removed > 0 {
		logrus.WithField("count", removed).Info("orphan sweep removed stray files")
	}
}

func extractStorageKey(content string) string {
	for _, marker := range []string{"/api/qr/image/", "/api/qr/doc/"} {
		if idx := strings.Index(content, marker); idx >= 0 {
			return content[idx+len(marker):]
		}
	}
	return ""
}
