package repository

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByInstitutionalID(ctx context.Context, institutionalID string) (bool, error)
	// SetOTP overwrites the pending code of an unverified user. It reports
	// false when the user is missing or already verified.
	SetOTP(ctx context.Context, id uuid.UUID, code string, expiry time.Time) (bool, error)
	// MarkVerified flips an unverified user with a matching, unexpired code to
	// verified and clears the code. It reports false when nothing matched.
	MarkVerified(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type userRepository struct {
	baseRepository[models.User]
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{baseRepository: newBaseRepository[models.User](db, "User")}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.create(ctx, user)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email = ?", email)
}

func (r *userRepository) ExistsByInstitutionalID(ctx context.Context, institutionalID string) (bool, error) {
	return r.exists(ctx, "institutional_id = ?", institutionalID)
}

func (r *userRepository) SetOTP(ctx context.Context, id uuid.UUID, code string, expiry time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_verified = ?", id, false).
		Updates(map[string]any{"email_otp": code, "email_otp_expiry": expiry})
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "store otp failed")
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) MarkVerified(ctx context.Context, id uuid.UUID, code string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_verified = ? AND email_otp = ? AND email_otp_expiry >= ?", id, false, code, now).
		Updates(map[string]any{"is_verified": true, "email_otp": nil, "email_otp_expiry": nil})
	if res.Error != nil {
		return false, apperr.Internal(res.Error, "verify user failed")
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.deleteWhere(ctx, "id = ?", id)
}
