package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
)

// RSVPHandler records invitation replies and lets the couple read them
// back with a running headcount.
type RSVPHandler struct {
	rsvps *repository.RSVPRepo
	log   *logrus.Logger
}

// NewRSVPHandler wires the RSVP endpoints.
func NewRSVPHandler(rsvps *repository.RSVPRepo, log *logrus.Logger) *RSVPHandler {
	return &RSVPHandler{rsvps: rsvps, log: log}
}

type rsvpRequest struct {
	Name      string  `json:"name"`
	Attending bool    `json:"attending"`
	PartySize uint8   `json:"party_size"`
	Note      *string `json:"note"`
}

type rsvpResponse struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name"`
	Attending bool    `json:"attending"`
	PartySize uint8   `json:"party_size"`
	Note      *string `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toRSVPResponse(v *model.RSVP) rsvpResponse {
	return rsvpResponse{
		ID:        v.ID,
		Name:      v.Name,
		Attending: v.Attending,
		PartySize: v.PartySize,
		Note:      v.Note,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create records an invitation reply.  Party size counts the guest
// themselves, so it must be at least 1; ten is the largest table we seat.
func (h *RSVPHandler) Create(c echo.Context) error {
	var req rsvpRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Attending && (req.PartySize < 1 || req.PartySize > 10) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be between 1 and 10"})
	}
	if !req.Attending {
		req.PartySize = 0
	}
	if req.Note != nil && strings.TrimSpace(*req.Note) == "" {
		req.Note = nil
	}

	v := &model.RSVP{
		Name:      req.Name,
		Attending: req.Attending,
		PartySize: req.PartySize,
		Note:      req.Note,
	}
	if err := h.rsvps.Create(c.Request().Context(), v); err != nil {
		h.log.WithError(err).Error("failed to store rsvp")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, toRSVPResponse(v))
}

// List returns all replies plus the attending headcount.  Admin only.
// The optional attending query parameter filters by answer.
func (h *RSVPHandler) List(c echo.Context) error {
	var attending *bool
	if raw := c.QueryParam("attending"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "attending must be true or false"})
		}
		attending = &b
	}

	ctx := c.Request().Context()
	replies, err := h.rsvps.List(ctx, attending)
	if err != nil {
		h.log.WithError(err).Error("failed to list rsvps")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	headcount, err := h.rsvps.Headcount(ctx)
	if err != nil {
		h.log.WithError(err).Error("failed to compute headcount")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	out := make([]rsvpResponse, 0, len(replies))
	for i := range replies {
		out = append(out, toRSVPResponse(&replies[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"rsvps": out, "headcount": headcount})
}
