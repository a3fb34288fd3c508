package guests

import (
	guestsvc "gatelist-backend/internal/application/guests"
	invitesvc "gatelist-backend/internal/application/invites"
	"gatelist-backend/internal/middleware"
	"gatelist-backend/internal/pkg/response"
	"gatelist-backend/internal/tenantauth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *guestsvc.Service
	Invites *invitesvc.Service
}

// resolveScope authorizes the session caller against the optional couple_id
// query parameter. Couples are pinned to their own couple regardless of it.
func resolveScope(c *fiber.Ctx) (tenantauth.Scope, error) {
	caller, err := tenantauth.CallerFromSession(middleware.GetUser(c))
	if err != nil {
		return tenantauth.Scope{}, err
	}
	return tenantauth.Authorize(caller, c.Query("couple_id"))
}

// serviceError maps guest directory errors onto the standard error format.
func serviceError(c *fiber.Ctx, err error) error {
	switch err {
	case guestsvc.ErrGuestNotFound, guestsvc.ErrTagNotFound:
		return response.NotFound(c, err.Error())
	case guestsvc.ErrDuplicatePhone, guestsvc.ErrDuplicateTagName, guestsvc.ErrCodeSpaceExhausted:
		return response.Conflict(c, err.Error())
	case guestsvc.ErrInvalidTag, guestsvc.ErrInvalidInput:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case tenantauth.ErrUnauthorized:
		return response.Unauthorized(c, err.Error())
	case tenantauth.ErrTenantRequired:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	default:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

// CreateGuest POST /api/v1/guests
func (h *Handlers) CreateGuest(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	var in guestsvc.CreateGuestInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	g, err := h.Service.Create(c.Context(), scope, in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Guest created successfully", g, nil)
}

// BulkCreateRequest for POST /api/v1/guests/bulk.
type BulkCreateRequest struct {
	Guests []guestsvc.CreateGuestInput `json:"guests"`
}

// BulkCreate POST /api/v1/guests/bulk — per-row failures reported in metadata.
func (h *Handlers) BulkCreate(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	var req BulkCreateRequest
	if err := c.BodyParser(&req); err != nil || len(req.Guests) == 0 {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.BulkCreate(c.Context(), scope, req.Guests)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Guest import finished", res.Created, fiber.Map{
		"failures": res.Failures,
	})
}

// ListGuests GET /api/v1/guests
func (h *Handlers) ListGuests(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	list, err := h.Service.List(c.Context(), scope)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Guests fetched successfully", list, nil)
}

// GetGuest GET /api/v1/guests/:id
func (h *Handlers) GetGuest(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid guest id", fiber.StatusBadRequest, nil)
	}
	g, err := h.Service.Get(c.Context(), scope, id)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Guest fetched successfully", g, nil)
}

// UpdateGuest PATCH /api/v1/guests/:id
func (h *Handlers) UpdateGuest(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid guest id", fiber.StatusBadRequest, nil)
	}
	var in guestsvc.UpdateGuestInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	g, err := h.Service.Update(c.Context(), scope, id, in)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Guest updated successfully", g, nil)
}

// DeleteGuest DELETE /api/v1/guests/:id
func (h *Handlers) DeleteGuest(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid guest id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.Delete(c.Context(), scope, id); err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Guest deleted successfully", nil, nil)
}

// AssignTagsRequest for PUT /api/v1/guests/:id/tags.
type AssignTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// AssignTags PUT /api/v1/guests/:id/tags — replaces the guest's tag set.
func (h *Handlers) AssignTags(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid guest id", fiber.StatusBadRequest, nil)
	}
	var req AssignTagsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tagIDs := make([]uuid.UUID, 0, len(req.TagIDs))
	for _, s := range req.TagIDs {
		tid, err := uuid.Parse(s)
		if err != nil {
			return response.Error(c, guestsvc.ErrInvalidTag.Error(), fiber.StatusBadRequest, nil)
		}
		tagIDs = append(tagIDs, tid)
	}
	g, err := h.Service.AssignTags(c.Context(), scope, id, tagIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Guest tags updated successfully", g, nil)
}

// GuestQR GET /api/v1/guests/:id/qr — PNG of the guest's invite link.
func (h *Handlers) GuestQR(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid guest id", fiber.StatusBadRequest, nil)
	}
	g, err := h.Service.Get(c.Context(), scope, id)
	if err != nil {
		return serviceError(c, err)
	}
	png, err := h.Invites.QRPNG(g.Identifier, c.QueryInt("size"))
	if err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// CreateTagRequest for POST /api/v1/tags.
type CreateTagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateTag POST /api/v1/tags
func (h *Handlers) CreateTag(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	var req CreateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tag, err := h.Service.CreateTag(c.Context(), scope, req.Name, req.Color)
	if err != nil {
		return serviceError(c, err)
	}
	return response.SuccessCreated(c, "Tag created successfully", tag, nil)
}

// ListTags GET /api/v1/tags
func (h *Handlers) ListTags(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	tags, err := h.Service.ListTags(c.Context(), scope)
	if err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Tags fetched successfully", tags, nil)
}

// DeleteTag DELETE /api/v1/tags/:id
func (h *Handlers) DeleteTag(c *fiber.Ctx) error {
	scope, err := resolveScope(c)
	if err != nil {
		return serviceError(c, err)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid tag id", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeleteTag(c.Context(), scope, id); err != nil {
		return serviceError(c, err)
	}
	return response.Success(c, "Tag deleted successfully", nil, nil)
}
