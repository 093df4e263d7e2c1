package services

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/validation"
	"github.com/stretchr/testify/mock"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendOTP(ctx context.Context, to, name, code string) error {
	return m.Called(ctx, to, name, code).Error(0)
}

func (m *mockNotifier) SendWelcome(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, file ImageFile) (string, error) {
	args := m.Called(ctx, file.Filename)
	return args.String(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret-at-least-16",
		JWTExpiry: 7 * 24 * time.Hour,
		OTPTTL:    10 * time.Minute,
		BrandName: "PICT OLX",
	}
}

var testValidator = validation.New()

func imageFile(name string) ImageFile {
	return ImageFile{
		Filename:    name,
		ContentType: "image/jpeg",
		Size:        4,
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("jpeg")), nil },
	}
}

// fixedClock returns a clock that can be moved forward.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time          { return c.t }
func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
