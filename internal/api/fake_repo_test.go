package api

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"qrmark/internal/entity"
)

// stubRepo is the minimal Repository used by the handler tests. Only the
// operations the handler tests touch are backed by data; the rest report an
// error.
type stubRepo struct {
	usersByName  map[string]*entity.User
	records      map[uint]*entity.QrRecord
	nextRecordID uint
	lookupErr    error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		usersByName: map[string]*entity.User{},
		records:     map[uint]*entity.QrRecord{},
	}
}

var errStubNotImplemented = errors.New("not implemented in stub")

func (s *stubRepo) CreateUser(context.Context, *entity.User) error { return errStubNotImplemented }
func (s *stubRepo) UpdateUser(context.Context, uint, map[string]interface{}) error {
	return errStubNotImplemented
}
func (s *stubRepo) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, user := range s.usersByName {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	user, ok := s.usersByName[username]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *stubRepo) GetUserByID(context.Context, uint) (*entity.User, error) {
	return nil, errStubNotImplemented
}
func (s *stubRepo) ListUsers(context.Context) ([]entity.User, error) {
	return nil, errStubNotImplemented
}
func (s *stubRepo) DeleteUser(context.Context, uint) error { return errStubNotImplemented }
func (s *stubRepo) EmailInUse(context.Context, string, uint) (bool, error) {
	return false, errStubNotImplemented
}

func (s *stubRepo) CreateQrRecord(_ context.Context, record *entity.QrRecord) error {
	s.nextRecordID++
	record.ID = s.nextRecordID
	copied := *record
	s.records[record.ID] = &copied
	return nil
}

func (s *stubRepo) GetQrRecord(_ context.Context, id uint) (*entity.QrRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *stubRepo) ListQrRecordsByUser(context.Context, uint) ([]entity.QrRecord, error) {
	return nil, errStubNotImplemented
}
func (s *stubRepo) CountQrRecordsByUserAndKind(context.Context, uint, string) (int64, error) {
	return 0, errStubNotImplemented
}
func (s *stubRepo) UpdateQrRecord(context.Context, uint, map[string]interface{}) error {
	return errStubNotImplemented
}
func (s *stubRepo) DeleteQrRecord(context.Context, uint) error { return errStubNotImplemented }

func (s *stubRepo) CreateSuspiciousActivity(context.Context, *entity.SuspiciousActivity) error {
	return errStubNotImplemented
}
func (s *stubRepo) ListSuspiciousActivities(context.Context) ([]entity.SuspiciousActivity, error) {
	return nil, errStubNotImplemented
}
