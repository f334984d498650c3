package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/innovalab/center/core"
)

// Roles
const (
	RoleStudent = "estudiante"
	RoleAdmin   = "admin"
)

// Auth providers
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// PasswordCost is the bcrypt cost factor used for every stored password.
const PasswordCost = 10

type User struct {
	ID                  int64     `json:"id"`
	Names               string    `json:"nombres"`
	Surnames            string    `json:"apellidos"`
	Email               string    `json:"email"`
	Phone               string    `json:"telefono,omitempty"`
	PasswordHash        []byte    `json:"-"` // nil for social-only accounts
	Role                string    `json:"rol"`
	Provider            string    `json:"auth_provider"`
	IsVerified          bool      `json:"is_verified"`
	PasswordChangeCount int       `json:"-"`
	PasswordChangedAt   time.Time `json:"-"` // UTC; zero if never changed
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// HasPassword is false for accounts created through a social provider that never set one.
func (u *User) HasPassword() bool { return len(u.PasswordHash) > 0 }

func (u *User) FullName() string {
	return core.CleanString(u.Names + " " + u.Surnames)
}

// Profile is the projection of a User its owner can see.
type Profile struct {
	ID       int64  `json:"id"`
	Names    string `json:"nombres"`
	Surnames string `json:"apellidos"`
	Email    string `json:"email"`
	Provider string `json:"auth_provider"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Names: u.Names, Surnames: u.Surnames, Email: u.Email, Provider: u.Provider}
}

// NewUser contains information needed to register a local account.
type NewUser struct {
	Names    string `json:"names" validate:"required,notblank"`
	Surnames string `json:"lastNames" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Phone    string `json:"phone" validate:"omitempty,max=20"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Names = core.CleanString(nu.Names)
	nu.Surnames = core.CleanString(nu.Surnames)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	return validate.Struct(nu)
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// SocialCredentials carries the identity token issued by a provider to the frontend.
// Names are only used as a fallback when the provider does not share them.
type SocialCredentials struct {
	Token    string `json:"token" validate:"required"`
	Names    string `json:"names"`
	Surnames string `json:"lastNames"`
}

func (sc *SocialCredentials) Validate(validate *validator.Validate) error {
	sc.Token = core.CleanString(sc.Token)
	sc.Names = core.CleanString(sc.Names)
	sc.Surnames = core.CleanString(sc.Surnames)
	return validate.Struct(sc)
}

// UpdateProfile defines what information a user may change on their own profile.
type UpdateProfile struct {
	Names       string `json:"nombres" validate:"required,notblank"`
	Surnames    string `json:"apellidos" validate:"required,notblank"`
	NewPassword string `json:"newPassword"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.Names = core.CleanString(up.Names)
	up.Surnames = core.CleanString(up.Surnames)
	return validate.Struct(up)
}

// Patch lists the columns of a User to update; nil fields are left untouched.
type Patch struct {
	Names               *string
	Surnames            *string
	PasswordHash        []byte
	Role                *string
	Provider            *string
	PasswordChangeCount *int
	PasswordChangedAt   *time.Time
}

func (p Patch) IsEmpty() bool {
	return p.Names == nil && p.Surnames == nil && p.PasswordHash == nil && p.Role == nil && p.Provider == nil &&
		p.PasswordChangeCount == nil && p.PasswordChangedAt == nil
}

// Identity is what a provider vouches for after verifying its token.
type Identity struct {
	Provider string
	Subject  string
	Email    string
	Names    string
	Surnames string
}

func StringPtr(s string) *string { return &s }
func IntPtr(i int) *int          { return &i }
func TimePtr(t time.Time) *time.Time {
	return &t
}
