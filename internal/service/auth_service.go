package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"qrmark/internal/auth"
	"qrmark/internal/entity"
	"qrmark/internal/model"
)

// MinPasswordLength 密码的最小长度。
const MinPasswordLength = 6

// AuthService 账号服务，封装注册、登录和个人资料相关的业务逻辑。
type AuthService struct {
	repo   model.Repository
	tokens *auth.Manager
}

// NewAuthService 创建账号服务实例。
func NewAuthService(repo model.Repository, tokens *auth.Manager) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// Register creates a new user account and returns a signed token for it.
func (s *AuthService) Register(ctx context.Context, req entity.RegisterRequest) (*entity.AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	// 已删除账号占用的邮箱同样不可复用。
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         entity.UserRoleUser,
		Status:       entity.UserStatusActive,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	token, _, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	return &entity.AuthResult{
		Success:  true,
		Message:  "Registration successful",
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// Login authenticates by email and password.
//
// 检查顺序固定：账号存在 → 未删除 → 未封禁 → 密码正确。被标记为可疑的
// 账号仍可登录，但每次登录都会写入审计日志。
func (s *AuthService) Login(ctx context.Context, req entity.LoginRequest) (*entity.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsStatus(entity.UserStatusDeleted) {
		return nil, ErrAccountDeleted
	}
	if user.IsStatus(entity.UserStatusBlocked) {
		return nil, ErrAccountBlocked
	}
	if auth.VerifyPassword(user.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	s.logSuspicious(ctx, user, "login")

	return &entity.AuthResult{
		Success:  true,
		Message:  "Login successful",
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// AdminLogin authenticates an administrator. The identifier may be an email
// address or a username.
func (s *AuthService) AdminLogin(ctx context.Context, req entity.AdminLoginRequest) (*entity.AuthResult, error) {
	identifier := strings.TrimSpace(req.Username)

	var user *entity.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.repo.GetUserByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.repo.GetUserByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsStatus(entity.UserStatusDeleted) {
		return nil, ErrAccountDeleted
	}
	if user.IsStatus(entity.UserStatusBlocked) {
		return nil, ErrAccountBlocked
	}
	if auth.VerifyPassword(user.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsAdmin() {
		return nil, ErrNotAdmin
	}

	token, _, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	return &entity.AuthResult{
		Success:  true,
		Message:  "Admin login successful",
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
	}, nil
}

// UserFromToken resolves the account behind a bearer token.
func (s *AuthService) UserFromToken(ctx context.Context, token string) (*entity.User, error) {
	username := s.tokens.Subject(token)
	if username == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// GetProfile returns the profile for the token's account. When logView is set
// and the account is flagged as suspicious, the view is written to the audit
// log.
func (s *AuthService) GetProfile(ctx context.Context, token string, logView bool) (*entity.User, error) {
	user, err := s.UserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if logView {
		s.logSuspicious(ctx, user, "profile_view")
	}
	return user, nil
}

// UpdateProfile applies the non-empty fields of req to the token's account.
// The returned bool reports whether anything actually changed.
func (s *AuthService) UpdateProfile(ctx context.Context, token string, req entity.ProfileUpdateRequest) (*entity.User, bool, error) {
	user, err := s.UserFromToken(ctx, token)
	if err != nil {
		return nil, false, err
	}

	updates := map[string]interface{}{}

	if username := strings.TrimSpace(req.Username); username != "" && username != user.Username {
		existing, err := s.repo.GetUserByUsername(ctx, username)
		if err == nil && existing.ID != user.ID {
			return nil, false, ErrUsernameExists
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
		updates["username"] = username
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != user.Email {
		inUse, err := s.repo.EmailInUse(ctx, email, user.ID)
		if err != nil {
			return nil, false, err
		}
		if inUse {
			return nil, false, ErrEmailTaken
		}
		updates["email"] = email
	}

	if req.NewPassword != "" {
		if len(req.NewPassword) < MinPasswordLength {
			return nil, false, ErrWeakPassword
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return nil, false, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) == 0 {
		return user, false, nil
	}

	if err := s.repo.UpdateUser(ctx, user.ID, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, ErrEmailTaken
		}
		return nil, false, err
	}

	updated, err := s.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	s.logSuspicious(ctx, updated, "profile_update")
	return updated, true, nil
}

// ValidateToken reports whether the token belongs to a live account.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*entity.User, error) {
	user, err := s.UserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.IsStatus(entity.UserStatusBlocked) {
		return nil, ErrAccountBlocked
	}
	return user, nil
}

// IsEmailAvailable reports whether the email can be used for a new account.
// Lookup failures are treated as unavailable.
func (s *AuthService) IsEmailAvailable(ctx context.Context, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	if err != nil {
		logrus.WithError(err).WithField("email", email).Warn("email availability check failed")
	}
	return false
}

// logSuspicious 仅对处于可疑状态的账号写审计日志，写入失败不影响主流程。
func (s *AuthService) logSuspicious(ctx context.Context, user *entity.User, action string) {
	if user == nil || !user.IsStatus(entity.UserStatusSuspicious) {
		return
	}
	activity := &entity.SuspiciousActivity{
		UserID:   user.ID,
		Username: user.Username,
		Action:   action,
	}
	if err := s.repo.CreateSuspiciousActivity(ctx, activity); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": user.ID,
			"action":  action,
		}).Error("failed to record suspicious activity")
	}
}
