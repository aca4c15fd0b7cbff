package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/account_service/internal/domain"
)

type User struct {
	ID                  string      `gorm:"primaryKey;type:varchar(36)"       json:"id"                  bson:"_id"`
	Username            string      `gorm:"uniqueIndex;not null"              json:"username"            bson:"username"`
	PasswordHash        string      `gorm:"not null"                          json:"-"                   bson:"password_hash"`
	Role                domain.Role `gorm:"type:varchar(16);not null"         json:"role"                bson:"role"`
	FailedLoginAttempts int         `gorm:"not null;default:0"                json:"failedLoginAttempts" bson:"failed_login_attempts"`
	LockUntil           *time.Time  `                                         json:"lockUntil,omitempty" bson:"lock_until,omitempty"`

	Email       string `json:"email,omitempty"       bson:"email,omitempty"`
	Name        string `json:"name,omitempty"        bson:"name,omitempty"`
	Phone       string `json:"phone,omitempty"       bson:"phone,omitempty"`
	Address     string `json:"address,omitempty"     bson:"address,omitempty"`
	City        string `json:"city,omitempty"        bson:"city,omitempty"`
	Avatar      string `json:"avatar,omitempty"      bson:"avatar,omitempty"`
	Gender      string `json:"gender,omitempty"      bson:"gender,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	return nil
}

func (u *User) LockState() domain.LockState {
	return domain.LockState{FailedAttempts: u.FailedLoginAttempts, LockUntil: u.LockUntil}
}

func (u *User) Identity() domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// Profile holds the optional descriptive fields of a user.
type Profile struct {
	Email       *string `json:"email"`
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	Avatar      *string `json:"avatar"`
	Gender      *string `json:"gender"`
	Description *string `json:"description"`
}

// UserPatch is a partial update; nil fields are left untouched.
// ClearLock resets the lockout counter and lock expiry together.
type UserPatch struct {
	PasswordHash        *string
	Role                *domain.Role
	FailedLoginAttempts *int
	LockUntil           *time.Time
	ClearLock           bool
	Profile
}

func (p UserPatch) Empty() bool {
	return p.PasswordHash == nil && p.Role == nil && p.FailedLoginAttempts == nil &&
		p.LockUntil == nil && !p.ClearLock && p.Profile == (Profile{})
}

// Fields returns the patch keyed by storage field name. Keys follow the bson tags;
// gorm column names are the same words in snake case.
func (p UserPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.PasswordHash != nil {
		out["password_hash"] = *p.PasswordHash
	}
	if p.Role != nil {
		out["role"] = *p.Role
	}
	if p.FailedLoginAttempts != nil {
		out["failed_login_attempts"] = *p.FailedLoginAttempts
	}
	if p.LockUntil != nil {
		out["lock_until"] = *p.LockUntil
	}
	if p.ClearLock {
		out["failed_login_attempts"] = 0
		out["lock_until"] = nil
	}
	for k, v := range map[string]*string{
		"email":       p.Email,
		"name":        p.Name,
		"phone":       p.Phone,
		"address":     p.Address,
		"city":        p.City,
		"avatar":      p.Avatar,
		"gender":      p.Gender,
		"description": p.Description,
	} {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
