package service

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	"qrmark/internal/entity"
	"qrmark/internal/storage"
)

// fakeRepo is an in-memory Repository used by the service tests.
type fakeRepo struct {
	users      map[uint]*entity.User
	records    map[uint]*entity.QrRecord
	activities []entity.SuspiciousActivity

	nextUserID   uint
	nextRecordID uint

	// Error injection.
	userErr     error
	recordErr   error
	activityErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   map[uint]*entity.User{},
		records: map[uint]*entity.QrRecord{},
	}
}

func (f *fakeRepo) addUser(user entity.User) *entity.User {
	f.nextUserID++
	user.ID = f.nextUserID
	f.users[user.ID] = &user
	return &user
}

func (f *fakeRepo) addRecord(record entity.QrRecord) *entity.QrRecord {
	f.nextRecordID++
	record.ID = f.nextRecordID
	f.records[record.ID] = &record
	return &record
}

func (f *fakeRepo) CreateUser(_ context.Context, user *entity.User) error {
	if f.userErr != nil {
		return f.userErr
	}
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) || existing.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	f.nextUserID++
	user.ID = f.nextUserID
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, id uint, updates map[string]interface{}) error {
	if f.userErr != nil {
		return f.userErr
	}
	user, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		str, _ := value.(string)
		switch key {
		case "username":
			user.Username = str
		case "email":
			user.Email = str
		case "password_hash":
			user.PasswordHash = str
		case "status":
			user.Status = str
		case "role":
			user.Role = str
		}
	}
	return nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	for _, user := range f.users {
		if user.Username == username && !strings.EqualFold(user.Status, entity.UserStatusDeleted) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id uint) (*entity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeRepo) ListUsers(_ context.Context) ([]entity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	ids := make([]uint, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	users := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, *f.users[id])
	}
	return users, nil
}

func (f *fakeRepo) DeleteUser(_ context.Context, id uint) error {
	if f.userErr != nil {
		return f.userErr
	}
	if _, ok := f.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeRepo) EmailInUse(_ context.Context, email string, excludeUserID uint) (bool, error) {
	if f.userErr != nil {
		return false, f.userErr
	}
	for _, user := range f.users {
		if user.ID != excludeUserID && strings.EqualFold(user.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateQrRecord(_ context.Context, record *entity.QrRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.nextRecordID++
	record.ID = f.nextRecordID
	copied := *record
	f.records[record.ID] = &copied
	return nil
}

func (f *fakeRepo) GetQrRecord(_ context.Context, id uint) (*entity.QrRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	record, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRepo) ListQrRecordsByUser(_ context.Context, userID uint) ([]entity.QrRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	ids := make([]uint, 0, len(f.records))
	for id, record := range f.records {
		if record.UserID == userID {
			ids = append(ids, id)
		}
	}
	// Newest first, matching the SQL ordering.
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	records := make([]entity.QrRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, *f.records[id])
	}
	return records, nil
}

func (f *fakeRepo) CountQrRecordsByUserAndKind(_ context.Context, userID uint, kind string) (int64, error) {
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	var count int64
	for _, record := range f.records {
		if record.UserID == userID && record.Kind == kind {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) UpdateQrRecord(_ context.Context, id uint, updates map[string]interface{}) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	record, ok := f.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if content, ok := updates["content"].(string); ok {
		record.Content = content
	}
	return nil
}

func (f *fakeRepo) DeleteQrRecord(_ context.Context, id uint) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	if _, ok := f.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRepo) CreateSuspiciousActivity(_ context.Context, entry *entity.SuspiciousActivity) error {
	if f.activityErr != nil {
		return f.activityErr
	}
	entry.ID = uint(len(f.activities) + 1)
	f.activities = append(f.activities, *entry)
	return nil
}

func (f *fakeRepo) ListSuspiciousActivities(_ context.Context) ([]entity.SuspiciousActivity, error) {
	if f.activityErr != nil {
		return nil, f.activityErr
	}
	out := make([]entity.SuspiciousActivity, len(f.activities))
	copy(out, f.activities)
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// fakeStorage records saved payloads and deletions in memory.
type fakeStorage struct {
	saved   map[string][]byte
	deleted []string
	nextKey string
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string][]byte{}, nextKey: "qr-docs/2026/01/01/file.bin"}
}

func (f *fakeStorage) Save(_ context.Context, data []byte, opts storage.SaveOptions) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	key := f.nextKey
	if key == "" {
		key = opts.Category + "/file." + opts.Extension
	}
	f.saved[key] = data
	return key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}
