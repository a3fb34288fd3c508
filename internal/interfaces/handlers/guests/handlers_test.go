package guests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	guestsvc "gatelist-backend/internal/application/guests"
	invitesvc "gatelist-backend/internal/application/invites"
	"gatelist-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type guestTestEnv struct {
	app    *fiber.App
	db     *gorm.DB
	couple *models.Couple
	other  *models.Couple
}

func setupGuestApp(t *testing.T, sessionUser map[string]interface{}) *guestTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection: every pooled conn gets its own :memory: database.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Couple{}, &models.Guest{}, &models.Tag{}))

	couple := &models.Couple{DisplayName: "Ada & Tunde", Username: "adatunde", PasswordHash: "x"}
	require.NoError(t, db.Create(couple).Error)
	other := &models.Couple{DisplayName: "Bisi & Emeka", Username: "bisiemeka", PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)

	if sessionUser != nil && sessionUser["couple_id"] == "set-me" {
		sessionUser["couple_id"] = couple.CoupleID.String()
	}

	h := &Handlers{
		Service: &guestsvc.Service{DB: db},
		Invites: &invitesvc.Service{BaseURL: "https://rsvp.example.com"},
	}
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if sessionUser != nil {
			c.Locals("user", sessionUser)
		}
		return c.Next()
	})
	app.Post("/guests", h.CreateGuest)
	app.Post("/guests/bulk", h.BulkCreate)
	app.Get("/guests", h.ListGuests)
	app.Get("/guests/:id", h.GetGuest)
	app.Patch("/guests/:id", h.UpdateGuest)
	app.Delete("/guests/:id", h.DeleteGuest)
	app.Put("/guests/:id/tags", h.AssignTags)
	app.Get("/guests/:id/qr", h.GuestQR)
	app.Post("/tags", h.CreateTag)
	app.Get("/tags", h.ListTags)
	return &guestTestEnv{app: app, db: db, couple: couple, other: other}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestCreateGuest_Success(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, out := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name":         "Chidi Okafor",
		"phone_number": "+234 801 234 5678",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, "Chidi Okafor", data["name"])
	assert.Equal(t, "+2348012345678", data["phone_number"])
	assert.Len(t, data["identifier"], 32)
	assert.Len(t, data["code"], 4)
}

func TestCreateGuest_DuplicatePhone(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, _ := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Someone Else", "phone_number": "+2348012345678",
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestCreateGuest_NoSession(t *testing.T) {
	env := setupGuestApp(t, nil)
	status, _ := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestCreateGuest_OperatorNeedsCouple(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "operator"})
	status, _ := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestListGuests_CoupleOnlySeesOwn(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	require.NoError(t, env.db.Create(&models.Guest{
		CoupleID: env.other.CoupleID, Identifier: "a1", Code: "1111",
		Name: "Foreign Guest", PhoneNumber: "+2348099999999",
	}).Error)

	status, _ := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, out := doJSON(t, env.app, "GET", "/guests", nil)
	require.Equal(t, fiber.StatusOK, status)
	list, _ := out["data"].([]interface{})
	require.Len(t, list, 1)
	g, _ := list[0].(map[string]interface{})
	assert.Equal(t, "Chidi Okafor", g["name"])
}

func TestListGuests_OperatorScopesByQuery(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "operator"})

	require.NoError(t, env.db.Create(&models.Guest{
		CoupleID: env.couple.CoupleID, Identifier: "a1", Code: "1111",
		Name: "First", PhoneNumber: "+2348011111111",
	}).Error)
	require.NoError(t, env.db.Create(&models.Guest{
		CoupleID: env.other.CoupleID, Identifier: "a2", Code: "2222",
		Name: "Second", PhoneNumber: "+2348022222222",
	}).Error)

	status, out := doJSON(t, env.app, "GET", "/guests", nil)
	require.Equal(t, fiber.StatusOK, status)
	list, _ := out["data"].([]interface{})
	assert.Len(t, list, 2)

	status, out = doJSON(t, env.app, "GET", "/guests?couple_id="+env.couple.CoupleID.String(), nil)
	require.Equal(t, fiber.StatusOK, status)
	list, _ = out["data"].([]interface{})
	require.Len(t, list, 1)
	g, _ := list[0].(map[string]interface{})
	assert.Equal(t, "First", g["name"])
}

func TestGetGuest_CrossCoupleIsNotFound(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	foreign := &models.Guest{
		CoupleID: env.other.CoupleID, Identifier: "a1", Code: "1111",
		Name: "Foreign Guest", PhoneNumber: "+2348099999999",
	}
	require.NoError(t, env.db.Create(foreign).Error)

	status, _ := doJSON(t, env.app, "GET", "/guests/"+foreign.GuestID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestGetGuest_BadID(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})
	status, _ := doJSON(t, env.app, "GET", "/guests/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUpdateGuest_PhoneConflict(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, first := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "First", "phone_number": "+2348011111111",
	})
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Second", "phone_number": "+2348022222222",
	})
	require.Equal(t, fiber.StatusCreated, status)

	data, _ := first["data"].(map[string]interface{})
	id, _ := data["guest_id"].(string)
	status, _ = doJSON(t, env.app, "PATCH", "/guests/"+id, map[string]interface{}{
		"phone_number": "+2348022222222",
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestBulkCreate_ReportsFailures(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, out := doJSON(t, env.app, "POST", "/guests/bulk", map[string]interface{}{
		"guests": []map[string]interface{}{
			{"name": "First", "phone_number": "+2348011111111"},
			{"name": "Dup", "phone_number": "+2348011111111"},
			{"name": "", "phone_number": "+2348022222222"},
		},
	})
	require.Equal(t, fiber.StatusCreated, status)
	created, _ := out["data"].([]interface{})
	assert.Len(t, created, 1)
	meta, _ := out["metadata"].(map[string]interface{})
	require.NotNil(t, meta)
	failures, _ := meta["failures"].([]interface{})
	assert.Len(t, failures, 2)
}

func TestAssignTags_ForeignTagRejected(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, created := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := created["data"].(map[string]interface{})
	id, _ := data["guest_id"].(string)

	foreignTag := &models.Tag{CoupleID: env.other.CoupleID, Name: "groomsmen", Color: "#112233"}
	require.NoError(t, env.db.Create(foreignTag).Error)

	status, _ = doJSON(t, env.app, "PUT", "/guests/"+id+"/tags", map[string]interface{}{
		"tag_ids": []string{foreignTag.TagID.String()},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAssignTags_OwnTag(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, created := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := created["data"].(map[string]interface{})
	id, _ := data["guest_id"].(string)

	status, tagOut := doJSON(t, env.app, "POST", "/tags", map[string]interface{}{
		"name": "family", "color": "#ff8800",
	})
	require.Equal(t, fiber.StatusCreated, status)
	tagData, _ := tagOut["data"].(map[string]interface{})
	tagID, _ := tagData["tag_id"].(string)

	status, out := doJSON(t, env.app, "PUT", "/guests/"+id+"/tags", map[string]interface{}{
		"tag_ids": []string{tagID},
	})
	require.Equal(t, fiber.StatusOK, status)
	g, _ := out["data"].(map[string]interface{})
	tags, _ := g["tags"].([]interface{})
	require.Len(t, tags, 1)
}

func TestGuestQR_ReturnsPNG(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, created := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := created["data"].(map[string]interface{})
	id, _ := data["guest_id"].(string)

	req := httptest.NewRequest("GET", "/guests/"+id+"/qr", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	require.True(t, len(body) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body[:4])
}

func TestDeleteGuest_ThenGone(t *testing.T) {
	env := setupGuestApp(t, map[string]interface{}{"role": "couple", "couple_id": "set-me"})

	status, created := doJSON(t, env.app, "POST", "/guests", map[string]interface{}{
		"name": "Chidi Okafor", "phone_number": "+2348012345678",
	})
	require.Equal(t, fiber.StatusCreated, status)
	data, _ := created["data"].(map[string]interface{})
	id, _ := data["guest_id"].(string)

	status, _ = doJSON(t, env.app, "DELETE", "/guests/"+id, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = doJSON(t, env.app, "GET", "/guests/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
