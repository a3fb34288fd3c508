package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	authsvc "gatelist-backend/internal/auth"
	"gatelist-backend/internal/middleware"
	"gatelist-backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthApp(t *testing.T) (*fiber.App, *redis.Client) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: every pooled conn gets its own :memory: database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Couple{}, &models.Operator{}))

	require.NoError(t, authsvc.SeedOperator(context.Background(), db, "frontdesk", "S3cret!pass"))

	hash, err := bcrypt.GenerateFromPassword([]byte("Couple#2026"), 10)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Couple{
		DisplayName:  "Ada & Tunde",
		Username:     "adatunde",
		PasswordHash: string(hash),
	}).Error)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	cfg := middleware.SessionConfig{RedisURL: "redis://" + mr.Addr()}
	sessionHandler, rdb, err := middleware.Session(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &Handlers{
		Service: &authsvc.Service{DB: db},
		Rdb:     rdb,
		Config:  cfg,
	}
	app := fiber.New()
	app.Use(sessionHandler)
	app.Post("/login", h.Login)
	app.Get("/me", h.Me)
	app.Delete("/logout", h.Logout)
	return app, rdb
}

func TestLogin_EmptyBody(t *testing.T) {
	app, _ := setupAuthApp(t)

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_MissingPassword(t *testing.T) {
	app, _ := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "adatunde"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_UnknownUsername(t *testing.T) {
	app, _ := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "nobody", "password": "whatever"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	app, _ := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "adatunde", "password": "wrong"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_CoupleSuccess(t *testing.T) {
	app, rdb := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "adatunde", "password": "Couple#2026"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Login successful", out["message"])
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	user, _ := data["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, "couple", user["role"])
	assert.Equal(t, "adatunde", user["username"])
	assert.NotEmpty(t, user["couple_id"])

	cookies := resp.Header.Values("Set-Cookie")
	assert.NotEmpty(t, cookies)
	assert.Contains(t, cookies[0], "gatelist.sid=")

	keys, err := rdb.Keys(context.Background(), "session:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys, "expected session:* key in Redis")
}

func TestLogin_OperatorSuccess(t *testing.T) {
	app, _ := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "frontdesk", "password": "S3cret!pass"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	data, _ := out["data"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, "operator", user["role"])
	assert.Nil(t, user["couple_id"])
}

func TestMe_NoSession(t *testing.T) {
	app, _ := setupAuthApp(t)

	req := httptest.NewRequest("GET", "/me", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMe_AfterLogin(t *testing.T) {
	app, _ := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "adatunde", "password": "Couple#2026"})
	loginReq := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	loginResp, err := app.Test(loginReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, loginResp.StatusCode)
	cookies := loginResp.Header.Values("Set-Cookie")
	require.NotEmpty(t, cookies)

	meReq := httptest.NewRequest("GET", "/me", nil)
	meReq.Header.Set("Cookie", cookies[0])
	meResp, err := app.Test(meReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, meResp.StatusCode)

	b, _ := io.ReadAll(meResp.Body)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "Authenticated", out["message"])
	data, _ := out["data"].(map[string]interface{})
	user, _ := data["user"].(map[string]interface{})
	require.NotNil(t, user)
	assert.Equal(t, "adatunde", user["username"])
}

func TestLogout_ClearsSession(t *testing.T) {
	app, rdb := setupAuthApp(t)

	body, _ := json.Marshal(map[string]string{"username": "adatunde", "password": "Couple#2026"})
	loginReq := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	loginReq.Header.Set("Content-Type", "application/json")
	loginResp, err := app.Test(loginReq)
	require.NoError(t, err)
	cookies := loginResp.Header.Values("Set-Cookie")
	require.NotEmpty(t, cookies)

	logoutReq := httptest.NewRequest("DELETE", "/logout", nil)
	logoutReq.Header.Set("Cookie", cookies[0])
	logoutResp, err := app.Test(logoutReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, logoutResp.StatusCode)

	meReq := httptest.NewRequest("GET", "/me", nil)
	meReq.Header.Set("Cookie", cookies[0])
	meResp, err := app.Test(meReq)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, meResp.StatusCode)

	keys, err := rdb.Keys(context.Background(), "session:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// A cookie with an id Redis has never seen must not create a session key:
// otherwise clients could mint their own ids, and a cookie left over from a
// logout would bring the deleted session back.
func TestUnknownSessionCookie_MintsNoKey(t *testing.T) {
	app, rdb := setupAuthApp(t)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", "gatelist.sid=attacker-chosen-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	keys, err := rdb.Keys(context.Background(), "session:*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLogin_NilService(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	h := &Handlers{Service: nil}
	app := fiber.New()
	app.Post("/login", h.Login)

	body, _ := json.Marshal(map[string]string{"username": "a", "password": "b"})
	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
