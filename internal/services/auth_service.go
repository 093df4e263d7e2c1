package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const otpDigits = 6

// dummyHash is compared against when the email is unknown, so both login
// failures cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("campus-market-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("generate dummy hash: %v", err))
	}
	return h
})

// Notifier delivers account emails.
type Notifier interface {
	SendOTP(ctx context.Context, to, name, code string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// AuthService runs registration and the email verification lifecycle:
// unverified with a pending code, then verified with the code cleared.
type AuthService struct {
	users    repository.UserRepository
	notifier Notifier
	validate *validation.Validator
	cfg      *config.Config

	now     func() time.Time
	newCode func() (string, error)
	compare func(hash, password []byte) error
}

func NewAuthService(users repository.UserRepository, notifier Notifier, validate *validation.Validator, cfg *config.Config) *AuthService {
	return &AuthService{
		users:    users,
		notifier: notifier,
		validate: validate,
		cfg:      cfg,
		now:      time.Now,
		newCode:  generateOTP,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("User already exists with this email")
	}
	taken, err = s.users.ExistsByInstitutionalID(ctx, req.InstitutionalID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Institutional ID already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password failed")
	}
	code, err := s.newCode()
	if err != nil {
		return nil, apperr.Internal(err, "generate otp failed")
	}
	expiry := s.now().Add(s.cfg.OTPTTL)

	user := models.User{
		Name:            req.Name,
		Email:           req.Email,
		Password:        string(hash),
		Phone:           req.Phone,
		WhatsApp:        req.WhatsApp,
		Year:            req.Year,
		Branch:          req.Branch,
		InstitutionalID: req.InstitutionalID,
		EmailOTP:        &code,
		EmailOTPExpiry:  &expiry,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return nil, err
	}

	if err := s.notifier.SendOTP(ctx, user.Email, user.Name, code); err != nil {
		// An account nobody can verify must not linger.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			slog.Error("rollback unverified user failed", "user_id", user.ID.String(), "action", "register", "error", delErr)
		}
		return nil, apperr.Wrap(err, apperr.CodeDelivery, "Failed to send verification email. Please try again.")
	}

	slog.Info("user registered", "user_id", user.ID.String(), "action", "register")
	return &dto.RegisterResponse{
		Message: "Registration successful! Please check your email for verification OTP.",
		UserID:  user.ID,
		Email:   user.Email,
		OTPSent: true,
	}, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (*dto.AuthResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := checkOTP(user, req.OTP, now); err != nil {
		return nil, err
	}

	ok, err := s.users.MarkVerified(ctx, user.ID, req.OTP, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another verify or a resend; report the state we lost to.
		current, err := s.users.GetByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := checkOTP(current, req.OTP, now); err != nil {
			return nil, err
		}
		return nil, apperr.Internal(errors.New("conditional verify matched no row"), "verify email failed")
	}
	user.IsVerified = true
	user.EmailOTP, user.EmailOTPExpiry = nil, nil

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendWelcome(ctx, user.Email, user.Name); err != nil {
		slog.Warn("welcome email failed", "user_id", user.ID.String(), "action", "verify_email", "error", err)
	}

	return &dto.AuthResponse{
		Message: fmt.Sprintf("Email verified successfully! Welcome to %s!", s.cfg.BrandName),
		Token:   token,
		User:    dto.NewUserResponse(user),
	}, nil
}

// checkOTP applies the verification checks in their fixed order.
func checkOTP(user *models.User, code string, now time.Time) error {
	if user.IsVerified {
		return apperr.New(apperr.CodeAlreadyVerified, "Email already verified")
	}
	if !user.HasPendingOTP() || *user.EmailOTP != code {
		return apperr.New(apperr.CodeInvalidCode, "Invalid OTP")
	}
	if now.After(*user.EmailOTPExpiry) {
		return apperr.New(apperr.CodeExpiredCode, "OTP expired. Please request a new one.")
	}
	return nil
}

func (s *AuthService) ResendOTP(ctx context.Context, req dto.ResendOTPRequest) (*dto.OTPSentResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, apperr.New(apperr.CodeAlreadyVerified, "Email already verified")
	}

	code, err := s.newCode()
	if err != nil {
		return nil, apperr.Internal(err, "generate otp failed")
	}
	ok, err := s.users.SetOTP(ctx, user.ID, code, s.now().Add(s.cfg.OTPTTL))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.CodeAlreadyVerified, "Email already verified")
	}

	if err := s.notifier.SendOTP(ctx, user.Email, user.Name, code); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeDelivery, "Failed to send OTP. Please try again.")
	}
	return &dto.OTPSentResponse{Message: "OTP sent successfully! Please check your email.", OTPSent: true}, nil
}

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			_ = s.compare(dummyHash(), []byte(req.Password))
			return nil, apperr.New(apperr.CodeInvalidCredentials, "Invalid credentials")
		}
		return nil, err
	}
	if err := s.compare([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.New(apperr.CodeInvalidCredentials, "Invalid credentials")
	}
	if !user.IsVerified {
		return nil, apperr.New(apperr.CodeVerificationRequired,
			"Please verify your email before logging in. Check your email for verification OTP.").
			WithMeta("email", user.Email)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Message: "Login successful", Token: token, User: dto.NewUserResponse(user)}, nil
}

// Profile returns the caller's account. A token naming a deleted account is
// rejected as invalid.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, staleToken()
		}
		return nil, err
	}
	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// DeleteUser hard-deletes an account and, through foreign keys, its listings
// and favorites.
func (s *AuthService) DeleteUser(ctx context.Context, req dto.DeleteUserRequest) (*dto.DeleteUserResponse, error) {
	req.Normalize()
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return nil, err
	}
	slog.Info("user deleted", "user_id", user.ID.String(), "action", "delete_user")
	return &dto.DeleteUserResponse{Message: "User deleted successfully", DeletedEmail: user.Email}, nil
}

// IssueToken signs a session credential for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTExpiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", apperr.Internal(err, "sign token failed")
	}
	return token, nil
}

func staleToken() error {
	return apperr.New(apperr.CodeAuthToken, "Token is not valid")
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
