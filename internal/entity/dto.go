package entity

import "time"

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginRequest carries a username-or-email identifier.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateRequest asks whether a token is still valid.
type ValidateRequest struct {
	Token string `json:"token"`
}

// CheckEmailRequest asks whether an email can still be registered.
type CheckEmailRequest struct {
	Email string `json:"email"`
}

// ProfileUpdateRequest carries independently optional profile changes.
type ProfileUpdateRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// AuthResult is the envelope returned by the auth endpoints.
type AuthResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	Username  string     `json:"username,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// GenerateRequest is the payload for generating a QR code from text.
type GenerateRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// UpdateTextRequest is the payload for editing a record's content.
type UpdateTextRequest struct {
	Text string `json:"text"`
}

// QrRecordItem is a record as returned to clients, with the rendered QR
// image attached where applicable.
type QrRecordItem struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// QrStats counts a user's records per kind.
type QrStats struct {
	Generated int64 `json:"generated"`
	Scanned   int64 `json:"scanned"`
}

// UserSummary is a lightweight user description for the admin listing.
type UserSummary struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
