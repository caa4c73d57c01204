package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/service"
)

// AdminGiftHandler covers the couple's side of the registry: catalog
// management, forced releases and the receipt review queue.
type AdminGiftHandler struct {
	registry *service.Registry
	log      *logrus.Logger
}

// NewAdminGiftHandler wires the admin gift endpoints.
func NewAdminGiftHandler(registry *service.Registry, log *logrus.Logger) *AdminGiftHandler {
	return &AdminGiftHandler{registry: registry, log: log}
}

type giftRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	PriceCents  *uint32 `json:"price_cents"`
	Link        *string `json:"link"`
	ImageURL    *string `json:"image_url"`
	Category    *string `json:"category"`
	MostWanted  bool    `json:"most_wanted"`
}

func (req *giftRequest) toInput() service.GiftInput {
	return service.GiftInput{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Link:        req.Link,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		MostWanted:  req.MostWanted,
	}
}

// Create adds a catalog entry.
func (h *AdminGiftHandler) Create(c echo.Context) error {
	var req giftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	gift, err := h.registry.CreateGift(c.Request().Context(), req.toInput())
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusCreated, toGiftResponse(gift, true))
}

// Update replaces the attribute fields of a gift.  Reservation and
// receipt state are untouched; those move through their own endpoints.
func (h *AdminGiftHandler) Update(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	var req giftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	gift, err := h.registry.UpdateGift(c.Request().Context(), id, req.toInput())
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, true))
}

// Delete removes a gift regardless of state.
func (h *AdminGiftHandler) Delete(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	if err := h.registry.DeleteGift(c.Request().Context(), id); err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "gift deleted"})
}

// Release clears a reservation, returning the gift to available.  Used
// when a guest backs out or a hold has quietly expired.
func (h *AdminGiftHandler) Release(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	gift, err := h.registry.Release(c.Request().Context(), id)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, true))
}

// PendingReceipts lists gifts awaiting a receipt decision, oldest first.
func (h *AdminGiftHandler) PendingReceipts(c echo.Context) error {
	gifts, err := h.registry.PendingReceipts(c.Request().Context())
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"receipts": giftResponses(gifts, true)})
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

// DecideReceipt approves or rejects a pending receipt.  The body carries
// {"decision": "APPROVED"} or {"decision": "REJECTED"}.
func (h *AdminGiftHandler) DecideReceipt(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	var approved bool
	switch req.Decision {
	case model.ReceiptApproved:
		approved = true
	case model.ReceiptRejected:
		approved = false
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be APPROVED or REJECTED"})
	}
	gift, err := h.registry.DecideReceipt(c.Request().Context(), id, approved)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, true))
}
