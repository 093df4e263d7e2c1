package models

import (
	"time"

	"github.com/google/uuid"
)

// Academic years accepted at registration.
var Years = []string{"FE", "SE", "TE", "BE"}

// Branches accepted at registration.
var Branches = []string{"CS", "IT", "ENTC", "AIDS", "ECE"}

// User is a registered campus member. Password and OTP fields never leave the
// server; handlers project users through dto types.
type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string     `gorm:"size:100;not null" json:"name"`
	Email           string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password        string     `gorm:"not null" json:"-"`
	Phone           string     `gorm:"size:10;not null" json:"phone"`
	WhatsApp        string     `gorm:"column:whatsapp;size:10;not null" json:"whatsapp"`
	Year            string     `gorm:"size:2;not null" json:"year"`
	Branch          string     `gorm:"size:10;not null" json:"branch"`
	InstitutionalID string     `gorm:"size:20;not null;uniqueIndex" json:"institutionalId"`
	ProfileImage    string     `gorm:"type:text" json:"profileImage"`
	IsVerified      bool       `gorm:"not null;default:false" json:"isVerified"`
	EmailOTP        *string    `gorm:"column:email_otp;size:6" json:"-"`
	EmailOTPExpiry  *time.Time `gorm:"column:email_otp_expiry" json:"-"`
	Rating          float64    `gorm:"not null;default:0;check:rating >= 0 AND rating <= 5" json:"rating"`
	TotalRatings    int        `gorm:"not null;default:0" json:"totalRatings"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// HasPendingOTP reports whether a code has been issued and not yet consumed.
func (u *User) HasPendingOTP() bool {
	return !u.IsVerified && u.EmailOTP != nil && u.EmailOTPExpiry != nil
}
