package dto

import (
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	Phone           string `json:"phone" validate:"required,len=10,number"`
	WhatsApp        string `json:"whatsapp" validate:"required,len=10,number"`
	Year            string `json:"year" validate:"required,oneof=FE SE TE BE"`
	Branch          string `json:"branch" validate:"required,oneof=CS IT ENTC AIDS ECE"`
	InstitutionalID string `json:"institutionalId" validate:"required,institutional_id"`
}

// Normalize trims free text and canonicalizes the email and ID.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.WhatsApp = strings.TrimSpace(r.WhatsApp)
	r.Year = strings.TrimSpace(r.Year)
	r.Branch = strings.TrimSpace(r.Branch)
	r.InstitutionalID = strings.ToUpper(strings.TrimSpace(r.InstitutionalID))
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,number"`
}

func (r *VerifyEmailRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ResendOTPRequest) Normalize() { r.Email = NormalizeEmail(r.Email) }

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() { r.Email = NormalizeEmail(r.Email) }

// DeleteUserRequest is the admin removal payload.
type DeleteUserRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *DeleteUserRequest) Normalize() { r.Email = NormalizeEmail(r.Email) }

// NormalizeEmail lower-cases and trims; emails are stored this way.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterResponse struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
	Email   string    `json:"email"`
	OTPSent bool      `json:"otpSent"`
}

type OTPSentResponse struct {
	Message string `json:"message"`
	OTPSent bool   `json:"otpSent"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

// UserResponse is the account as its owner sees it.
type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	WhatsApp        string    `json:"whatsapp"`
	Year            string    `json:"year"`
	Branch          string    `json:"branch"`
	InstitutionalID string    `json:"institutionalId"`
	ProfileImage    string    `json:"profileImage"`
	IsVerified      bool      `json:"isVerified"`
	Rating          float64   `json:"rating"`
	TotalRatings    int       `json:"totalRatings"`
	CreatedAt       time.Time `json:"createdAt"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Phone:           u.Phone,
		WhatsApp:        u.WhatsApp,
		Year:            u.Year,
		Branch:          u.Branch,
		InstitutionalID: u.InstitutionalID,
		ProfileImage:    u.ProfileImage,
		IsVerified:      u.IsVerified,
		Rating:          u.Rating,
		TotalRatings:    u.TotalRatings,
		CreatedAt:       u.CreatedAt,
	}
}

type ErrorResponse struct {
	Error             bool                `json:"error"`
	Code              string              `json:"code,omitempty"`
	Message           string              `json:"message"`
	Errors            []apperr.FieldError `json:"errors,omitempty"`
	NeedsVerification bool                `json:"needsVerification,omitempty"`
	Email             string              `json:"email,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DeleteUserResponse struct {
	Message      string `json:"message"`
	DeletedEmail string `json:"deletedEmail"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
