package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/routes"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/services"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/storetest"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// codeBox captures the codes the server mails out.
type codeBox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBox) SendOTP(_ context.Context, to, _, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[to] = code
	return nil
}

func (b *codeBox) SendWelcome(context.Context, string, string) error { return nil }

func (b *codeBox) code(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[email]
}

type testServer struct {
	app    *fiber.App
	mail   *codeBox
	users  *storetest.Users
	items  *storetest.Items
	dbMock sqlmock.Sqlmock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:     "handler-test-secret",
		JWTExpiry:     time.Hour,
		OTPTTL:        10 * time.Minute,
		BrandName:     "PICT OLX",
		MaxImageBytes: 1024,
		AdminEmails:   "admin@pict.edu",
	}

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	s := &testServer{
		mail:   &codeBox{codes: map[string]string{}},
		users:  storetest.NewUsers(),
		dbMock: mock,
	}
	s.items = storetest.NewItems(s.users)

	validate := validation.New()
	authService := services.NewAuthService(s.users, s.mail, validate, cfg)
	itemService := services.NewItemService(s.items, s.users, nil, validate)

	s.app = fiber.New()
	routes.Setup(s.app, cfg, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Items:  handlers.NewItemHandler(itemService, cfg.MaxImageBytes),
		Users:  handlers.NewUserHandler(authService, itemService),
		Health: handlers.NewHealthHandler(db),
	})
	return s
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func jsonRequest(method, path, token string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

type upload struct {
	name        string
	contentType string
	data        string
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string][]string, files []upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="images"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func registration(email, institutionalID string) map[string]string {
	return map[string]string{
		"name":            "Campus User",
		"email":           email,
		"password":        "secret123",
		"phone":           "9876543210",
		"whatsapp":        "9123456789",
		"year":            "TE",
		"branch":          "IT",
		"institutionalId": institutionalID,
	}
}

// signup registers and verifies an account, returning its token and id.
func (s *testServer) signup(t *testing.T, email, institutionalID string) (string, string) {
	t.Helper()
	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", "", registration(email, institutionalID)))
	require.Equal(t, http.StatusCreated, status, body)

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/verify-email", "", map[string]string{
		"email": email, "otp": s.mail.code(email),
	}))
	require.Equal(t, http.StatusOK, status, body)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func listingFields() map[string][]string {
	return map[string][]string{
		"title":       {"Engineering Graphics kit"},
		"description": {"Drafter, set squares and a compass box"},
		"price":       {"450"},
		"category":    {"Stationery"},
		"condition":   {"Good"},
		"tags":        {"drafter, eg , "},
	}
}

func (s *testServer) createListing(t *testing.T, token string) string {
	t.Helper()
	status, body := s.do(t, multipartRequest(t, http.MethodPost, "/api/items", token, listingFields(),
		[]upload{{name: "kit.jpg", contentType: "image/jpeg", data: "jpeg"}}))
	require.Equal(t, http.StatusCreated, status, body)
	return body["item"].(map[string]any)["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", "", registration("Riya@PICT.edu", "i2k221234")))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["otpSent"])
	assert.Equal(t, "riya@pict.edu", body["email"])

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "riya@pict.edu", "password": "secret123",
	}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, true, body["needsVerification"])
	assert.Equal(t, "riya@pict.edu", body["email"])

	wrong := "000000"
	if s.mail.code("riya@pict.edu") == wrong {
		wrong = "111111"
	}
	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/verify-email", "", map[string]string{
		"email": "riya@pict.edu", "otp": wrong,
	}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid OTP", body["message"])

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/verify-email", "", map[string]string{
		"email": "riya@pict.edu", "otp": s.mail.code("riya@pict.edu"),
	}))
	require.Equal(t, http.StatusOK, status, body)
	token := body["token"].(string)

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "riya@pict.edu", "password": "wrong-pass",
	}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid credentials", body["message"])

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/auth/profile", token, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "I2K221234", body["institutionalId"])
	assert.NotContains(t, body, "password")
}

func TestRegister_ReportsEveryInvalidField(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "A", "email": "nope", "password": "123",
	}))
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["code"])
	assert.GreaterOrEqual(t, len(body["errors"].([]any)), 7)
}

func TestRegister_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	status, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["message"])
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, jsonRequest(http.MethodGet, "/api/auth/profile", "", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token, authorization denied", body["message"])

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/items", "not-a-jwt", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token is not valid", body["message"])
}

func TestItems_CreateAndView(t *testing.T) {
	s := newTestServer(t)
	token, sellerID := s.signup(t, "seller@pict.edu", "C2K220001")
	id := s.createListing(t, token)

	status, body := s.do(t, jsonRequest(http.MethodGet, "/api/items/"+id, "", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{services.PlaceholderNoImageHost}, body["images"])
	assert.Equal(t, []any{"drafter", "eg"}, body["tags"])
	assert.Equal(t, 450.0, body["price"])
	assert.Equal(t, 1.0, body["views"])
	seller := body["seller"].(map[string]any)
	assert.Equal(t, sellerID, seller["id"])
	assert.NotContains(t, seller, "phone", "anonymous viewers do not see contact numbers")

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/items/"+id, token, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, body["views"])
	assert.Equal(t, "9876543210", body["seller"].(map[string]any)["phone"])

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/items?category=Stationery&sortBy=price-low", "", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, 1.0, pagination["totalItems"])
	assert.Equal(t, 1.0, pagination["currentPage"])
}

func TestItems_CreateRejectsBadUploads(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "seller@pict.edu", "C2K220001")

	status, body := s.do(t, multipartRequest(t, http.MethodPost, "/api/items", token, listingFields(), nil))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "no_images", body["code"])
	assert.Equal(t, "At least one image is required", body["message"])

	status, body = s.do(t, multipartRequest(t, http.MethodPost, "/api/items", token, listingFields(),
		[]upload{{name: "notes.pdf", contentType: "application/pdf", data: "%PDF"}}))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", body["code"])

	big := make([]byte, 2048)
	status, _ = s.do(t, multipartRequest(t, http.MethodPost, "/api/items", token, listingFields(),
		[]upload{{name: "huge.jpg", contentType: "image/jpeg", data: string(big)}}))
	assert.Equal(t, http.StatusBadRequest, status)

	six := make([]upload, 6)
	for i := range six {
		six[i] = upload{name: "p.jpg", contentType: "image/jpeg", data: "jpeg"}
	}
	status, _ = s.do(t, multipartRequest(t, http.MethodPost, "/api/items", token, listingFields(), six))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 0, s.items.Len())
}

func TestItems_OwnershipGates(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup(t, "owner@pict.edu", "C2K220001")
	other, _ := s.signup(t, "other@pict.edu", "E2K220002")
	id := s.createListing(t, owner)

	status, body := s.do(t, jsonRequest(http.MethodPut, "/api/items/"+id, other, map[string]string{"title": "Stolen listing"}))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized to update this item", body["message"])

	status, _ = s.do(t, jsonRequest(http.MethodDelete, "/api/items/"+id, other, nil))
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.do(t, jsonRequest(http.MethodPost, "/api/items/"+id+"/sold", other, nil))
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, jsonRequest(http.MethodPut, "/api/items/"+id, owner, map[string]string{"price": "399.5"}))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Item updated successfully", body["message"])
	item := body["item"].(map[string]any)
	assert.Equal(t, 399.5, item["price"])
	assert.Equal(t, "Engineering Graphics kit", item["title"])

	status, body = s.do(t, jsonRequest(http.MethodDelete, "/api/items/"+id, owner, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Item deleted successfully", body["message"])

	status, _ = s.do(t, jsonRequest(http.MethodGet, "/api/items/"+id, "", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestItems_UpdateMultipartImages(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup(t, "owner@pict.edu", "C2K220001")
	id := s.createListing(t, owner)

	status, body := s.do(t, multipartRequest(t, http.MethodPut, "/api/items/"+id, owner,
		map[string][]string{"existingImages": {`["https://elsewhere.example/x.jpg"]`}}, nil))
	assert.Equal(t, http.StatusBadRequest, status, "dropping every image is rejected")
	assert.Equal(t, "validation", body["code"])

	status, body = s.do(t, multipartRequest(t, http.MethodPut, "/api/items/"+id, owner,
		map[string][]string{"existingImages": {services.PlaceholderNoImageHost}, "condition": {"Fair"}},
		[]upload{{name: "side.png", contentType: "image/png", data: "png"}}))
	require.Equal(t, http.StatusOK, status, body)
	item := body["item"].(map[string]any)
	assert.Len(t, item["images"], 2)
	assert.Equal(t, "Fair", item["condition"])
}

func TestItems_InvalidIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, jsonRequest(http.MethodGet, "/api/items/not-a-uuid", "", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Item not found", body["message"])
}

func TestItems_FavoriteAndSell(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.signup(t, "owner@pict.edu", "C2K220001")
	buyer, buyerID := s.signup(t, "buyer@pict.edu", "A2K220003")
	id := s.createListing(t, owner)

	status, body := s.do(t, jsonRequest(http.MethodPost, "/api/items/"+id+"/favorite", buyer, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["isFavorited"])
	assert.Equal(t, "Added to favorites", body["message"])

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/users/me/favorites", buyer, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = s.do(t, jsonRequest(http.MethodPost, "/api/items/"+id+"/sold", owner, map[string]string{"buyerId": buyerID}))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Item marked as sold successfully", body["message"])

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/items", "", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"], "sold listings leave the public list")

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/users/me/listings", owner, nil))
	require.Equal(t, http.StatusOK, status)
	listings := body["items"].([]any)
	require.Len(t, listings, 1)
	sold := listings[0].(map[string]any)
	assert.Equal(t, true, sold["isSold"])
	assert.Equal(t, buyerID, sold["soldTo"].(map[string]any)["id"])
}

func TestAdmin_DeleteUser(t *testing.T) {
	s := newTestServer(t)
	user, _ := s.signup(t, "student@pict.edu", "C2K220001")
	admin, _ := s.signup(t, "admin@pict.edu", "I2K220009")

	status, _ := s.do(t, jsonRequest(http.MethodDelete, "/api/admin/users", user, map[string]string{"email": "admin@pict.edu"}))
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, jsonRequest(http.MethodDelete, "/api/admin/users", admin, map[string]string{"email": "Student@PICT.edu"}))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "student@pict.edu", body["deletedEmail"])
	assert.Equal(t, 1, s.users.Len())

	status, _ = s.do(t, jsonRequest(http.MethodDelete, "/api/admin/users", admin, map[string]string{"email": "student@pict.edu"}))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdmin_DeletedUserTokenIsRejected(t *testing.T) {
	s := newTestServer(t)
	user, _ := s.signup(t, "student@pict.edu", "C2K220001")
	admin, _ := s.signup(t, "admin@pict.edu", "I2K220009")
	id := s.createListing(t, admin)

	status, body := s.do(t, jsonRequest(http.MethodDelete, "/api/admin/users", admin, map[string]string{"email": "student@pict.edu"}))
	require.Equal(t, http.StatusOK, status, body)

	status, body = s.do(t, jsonRequest(http.MethodGet, "/api/auth/profile", user, nil))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token is not valid", body["message"])

	status, body = s.do(t, multipartRequest(t, http.MethodPost, "/api/items", user, listingFields(),
		[]upload{{name: "kit.jpg", contentType: "image/jpeg", data: "jpeg"}}))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token is not valid", body["message"])
	assert.Equal(t, 1, s.items.Len())

	status, _ = s.do(t, jsonRequest(http.MethodPost, "/api/items/"+id+"/favorite", user, nil))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.dbMock.ExpectPing()

	status, body := s.do(t, jsonRequest(http.MethodGet, "/api/health", "", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
	require.NoError(t, s.dbMock.ExpectationsWereMet())
}
