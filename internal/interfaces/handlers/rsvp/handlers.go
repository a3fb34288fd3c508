package rsvp

import (
	rsvpsvc "gatelist-backend/internal/application/rsvp"
	"gatelist-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serve the public guest-facing RSVP endpoints. The identifier in
// the path is the capability; no session is involved.
type Handlers struct {
	Service *rsvpsvc.Service
}

// Lookup GET /api/v1/rsvp/:identifier — snapshot for the RSVP page.
func (h *Handlers) Lookup(c *fiber.Ctx) error {
	g, err := h.Service.Lookup(c.Context(), c.Params("identifier"))
	if err != nil {
		if err == rsvpsvc.ErrGuestNotFound {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Guest fetched successfully", fiber.Map{
		"name":              g.Name,
		"rsvp_confirmed":    g.RSVPConfirmed,
		"companion_allowed": g.CompanionAllowed,
		"companion_name":    g.CompanionName,
		"companion_rsvp":    g.CompanionRSVP,
	}, nil)
}

// Submit POST /api/v1/rsvp/:identifier — record or overwrite the response.
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var in rsvpsvc.Response
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	g, err := h.Service.Submit(c.Context(), c.Params("identifier"), in)
	if err != nil {
		if err == rsvpsvc.ErrGuestNotFound {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "RSVP recorded", g, nil)
}
