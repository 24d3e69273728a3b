package models

import "time"

// ============================================================================
// ROLES
// ============================================================================

// Role names stored on users.role. Transition permissions are declared once in
// the services permission table, not at call sites.
const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleForeman  = "foreman"
	RoleSupplier = "supplier"
	RoleDriver   = "driver"
)

// ValidRoles lists every role signup accepts.
var ValidRoles = []string{RoleOwner, RoleAdmin, RoleForeman, RoleSupplier, RoleDriver}

// ============================================================================
// USER MODEL
// ============================================================================

type User struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	TOTPSecret   string    `json:"-"` // Never expose in JSON
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TenantContext is the authenticated actor as seen by the engine: identity,
// role and organization. It is passed into every service operation and never
// stored.
type TenantContext struct {
	UserID string
	OrgID  string
	Role   string
}

// Ctx is a convenience accessor for the service layer.
func (u *User) Ctx() TenantContext {
	return TenantContext{UserID: u.ID, OrgID: u.OrgID, Role: u.Role}
}

// ============================================================================
// AUTHENTICATION REQUESTS
// ============================================================================

type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	OrgName  string `json:"org_name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

type AuthResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ============================================================================
// 2FA
// ============================================================================

type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

type VerifyTOTPRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}
