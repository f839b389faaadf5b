package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/escape-room/internal/middleware"
	"github.com/trentd187/escape-room/internal/models"
	"github.com/trentd187/escape-room/internal/registry"
	"github.com/trentd187/escape-room/internal/store"
)

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	args := m.Called(ctx, uid)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *MockProfileStore) Upsert(ctx context.Context, p *models.Profile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProfileStore) Delete(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

// asUser stands in for middleware.Auth.
func asUser(uid, name, email, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, uid)
		c.Locals(middleware.LocalUserName, name)
		c.Locals(middleware.LocalUserEmail, email)
		c.Locals(middleware.LocalUserRole, role)
		return c.Next()
	}
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealthCheck(t *testing.T) {
	reg := registry.New("default")
	reg.EnsureRoom("R")
	reg.AddMember("R", registry.Member{ID: "a"})

	app := fiber.New()
	app.Get("/health", HealthCheck(reg, CounterFunc(func() int { return 3 })))

	code, body := do(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok","rooms":1,"connections":3}`, body)
}

func TestRooms(t *testing.T) {
	reg := registry.New("default")
	reg.EnsureRoom("R1")
	reg.AddMember("R1", registry.Member{ID: "a", Username: "Alice", IsCreator: true})

	app := fiber.New()
	app.Get("/rooms", ListRooms(reg))
	app.Get("/rooms/:id", GetRoom(reg))

	code, body := do(t, app, http.MethodGet, "/rooms/R1", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t,
		`{"id":"R1","players":[{"id":"a","username":"Alice","isCreator":true}],"hostId":"a","theme":"default","started":false}`,
		body)

	code, _ = do(t, app, http.MethodGet, "/rooms/missing", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = do(t, app, http.MethodGet, "/rooms", "")
	assert.Equal(t, fiber.StatusOK, code)
	var list []registry.Snapshot
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Len(t, list, 1)
}

func TestGetProfiles(t *testing.T) {
	profiles := &MockProfileStore{}
	profiles.On("Get", mock.Anything, "u1").Return(&models.Profile{UID: "u1", DisplayName: "Alice"}, nil)
	profiles.On("Get", mock.Anything, "u2").Return(nil, store.ErrNotFound)
	profiles.On("Get", mock.Anything, "u3").Return(nil, errors.New("db down"))

	app := fiber.New()
	app.Use(asUser("u1", "Alice", "alice@example.com", "user"))
	app.Get("/profiles/me", GetMyProfile(profiles))
	app.Get("/profiles/:uid", GetProfile(profiles))

	code, body := do(t, app, http.MethodGet, "/profiles/me", "")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, `"displayName":"Alice"`)

	code, _ = do(t, app, http.MethodGet, "/profiles/u2", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	code, _ = do(t, app, http.MethodGet, "/profiles/u3", "")
	assert.Equal(t, fiber.StatusInternalServerError, code)

	profiles.AssertExpectations(t)
}

func TestPutMyProfile(t *testing.T) {
	tests := []struct {
		description string
		body        string
		setupMocks  func(m *MockProfileStore)
		wantCode    int
		wantName    string
	}{
		{
			description: "body name wins over token",
			body:        `{"displayName":"Ali","email":"ali@example.com"}`,
			setupMocks: func(m *MockProfileStore) {
				m.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.Profile) bool {
					return p.UID == "u1" && p.DisplayName == "Ali" && p.Email == "ali@example.com" && p.Role == models.UserRoleUser
				})).Return(nil)
			},
			wantCode: fiber.StatusOK,
			wantName: "Ali",
		},
		{
			description: "falls back to token claims",
			body:        `{}`,
			setupMocks: func(m *MockProfileStore) {
				m.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.Profile) bool {
					return p.DisplayName == "Alice" && p.Email == "alice@example.com"
				})).Return(nil)
			},
			wantCode: fiber.StatusOK,
			wantName: "Alice",
		},
		{
			description: "bad email",
			body:        `{"email":"not-an-email"}`,
			setupMocks:  func(m *MockProfileStore) {},
			wantCode:    fiber.StatusBadRequest,
		},
		{
			description: "name too long",
			body:        `{"displayName":"` + strings.Repeat("x", 40) + `"}`,
			setupMocks:  func(m *MockProfileStore) {},
			wantCode:    fiber.StatusBadRequest,
		},
		{
			description: "invalid json",
			body:        `{`,
			setupMocks:  func(m *MockProfileStore) {},
			wantCode:    fiber.StatusBadRequest,
		},
		{
			description: "store failure",
			body:        `{}`,
			setupMocks: func(m *MockProfileStore) {
				m.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
			wantCode: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			profiles := &MockProfileStore{}
			tt.setupMocks(profiles)

			app := fiber.New()
			app.Use(asUser("u1", "Alice", "alice@example.com", "user"))
			app.Put("/profiles/me", PutMyProfile(profiles))

			code, body := do(t, app, http.MethodPut, "/profiles/me", tt.body)
			assert.Equal(t, tt.wantCode, code, body)
			if tt.wantName != "" {
				var p models.Profile
				require.NoError(t, json.Unmarshal([]byte(body), &p))
				assert.Equal(t, tt.wantName, p.DisplayName)
			}
			profiles.AssertExpectations(t)
		})
	}
}

func TestDeleteMyProfile(t *testing.T) {
	profiles := &MockProfileStore{}
	profiles.On("Delete", mock.Anything, "u1").Return(nil).Once()
	profiles.On("Delete", mock.Anything, "u1").Return(store.ErrNotFound).Once()

	app := fiber.New()
	app.Use(asUser("u1", "Alice", "alice@example.com", "user"))
	app.Delete("/profiles/me", DeleteMyProfile(profiles))

	code, _ := do(t, app, http.MethodDelete, "/profiles/me", "")
	assert.Equal(t, fiber.StatusNoContent, code)

	code, _ = do(t, app, http.MethodDelete, "/profiles/me", "")
	assert.Equal(t, fiber.StatusNotFound, code)

	profiles.AssertExpectations(t)
}
