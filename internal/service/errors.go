package service

import "errors"

// 业务错误。API 层据此选择状态码和面向用户的消息。
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeleted     = errors.New("account has been deleted")
	ErrAccountBlocked     = errors.New("account has been blocked")
	ErrNotAdmin           = errors.New("not an admin account")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already in use by another account")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrAdminTarget        = errors.New("cannot perform this action on an admin account")

	ErrRecordNotFound = errors.New("record not found")
	ErrNotOwner       = errors.New("record belongs to another user")
	ErrEmptyContent   = errors.New("content must not be empty")
	ErrContentTooLong = errors.New("content exceeds the maximum length")
	ErrNotReadable    = errors.New("QR code not readable")
	ErrNoHostAddress  = errors.New("no suitable host address found")
	ErrFileTooLarge   = errors.New("file exceeds the maximum size")
	ErrNoFile         = errors.New("no file provided")
)
