// Package storetest provides in-memory repositories for service and handler
// tests. They honor the same conditional-update contracts as the gorm ones.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/models"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/repository"
	"github.com/google/uuid"
)

var _ repository.UserRepository = (*Users)(nil)

type Users struct {
	mu   sync.Mutex
	rows map[uuid.UUID]models.User

	// CreateErr, when set, is returned by the next Create.
	CreateErr error
}

func NewUsers() *Users {
	return &Users{rows: map[uuid.UUID]models.User{}}
}

// Put stores u as-is, assigning an id if missing.
func (s *Users) Put(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.rows[u.ID] = u
	return u
}

// Len reports the number of stored users.
func (s *Users) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.CreateErr; err != nil {
		s.CreateErr = nil
		return err
	}
	for _, row := range s.rows {
		if row.Email == u.Email || row.InstitutionalID == u.InstitutionalID {
			return apperr.Conflict("User already exists")
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.rows[u.ID] = *u
	return nil
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	return &u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("User not found")
}

func (s *Users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *Users) ExistsByInstitutionalID(_ context.Context, institutionalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if u.InstitutionalID == institutionalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Users) SetOTP(_ context.Context, id uuid.UUID, code string, expiry time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok || u.IsVerified {
		return false, nil
	}
	u.EmailOTP, u.EmailOTPExpiry = &code, &expiry
	s.rows[id] = u
	return true, nil
}

func (s *Users) MarkVerified(_ context.Context, id uuid.UUID, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok || u.IsVerified || u.EmailOTP == nil || *u.EmailOTP != code ||
		u.EmailOTPExpiry == nil || now.After(*u.EmailOTPExpiry) {
		return false, nil
	}
	u.IsVerified = true
	u.EmailOTP, u.EmailOTPExpiry = nil, nil
	s.rows[id] = u
	return true, nil
}

func (s *Users) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return apperr.NotFound("User not found")
	}
	delete(s.rows, id)
	return nil
}
