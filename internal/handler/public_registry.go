package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/service"
)

// RegistryHandler exposes the guest-facing registry endpoints.  Guests are
// anonymous; the only identity they ever present is the free-text name on
// a reservation, and that same name authorizes the receipt upload.
type RegistryHandler struct {
	registry *service.Registry
	log      *logrus.Logger
}

// NewRegistryHandler wires the public registry endpoints.
func NewRegistryHandler(registry *service.Registry, log *logrus.Logger) *RegistryHandler {
	return &RegistryHandler{registry: registry, log: log}
}

// ListGifts returns the catalog.  Optional query parameters: state
// (available, reserved, receipt_pending, purchased), category and
// most_wanted (true/false).
func (h *RegistryHandler) ListGifts(c echo.Context) error {
	f := repository.GiftFilter{
		State:    c.QueryParam("state"),
		Category: c.QueryParam("category"),
	}
	if raw := c.QueryParam("most_wanted"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "most_wanted must be true or false"})
		}
		f.MostWanted = &b
	}
	gifts, err := h.registry.ListGifts(c.Request().Context(), f)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"gifts": giftResponses(gifts, false)})
}

// GetGift returns one gift by id.
func (h *RegistryHandler) GetGift(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	gift, err := h.registry.GetGift(c.Request().Context(), id)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, false))
}

type reserveRequest struct {
	Name string `json:"name"`
}

// Reserve claims a gift for the named guest.  A gift already reserved by
// someone else is simply re-reserved; the couple resolves clashes offline.
func (h *RegistryHandler) Reserve(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	gift, err := h.registry.Reserve(c.Request().Context(), id, req.Name)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, false))
}

// SubmitReceipt accepts a multipart upload with fields "name" (must match
// the reservation) and "receipt" (the file).  On success the gift moves to
// the receipt_pending state awaiting admin review.
func (h *RegistryHandler) SubmitReceipt(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid gift id"})
	}
	name := c.FormValue("name")

	fh, err := c.FormFile("receipt")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receipt file is required"})
	}
	if fh.Size > service.MaxReceiptBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "receipt file too large"})
	}
	src, err := fh.Open()
	if err != nil {
		h.log.WithError(err).Error("failed to open uploaded receipt")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	defer src.Close()

	gift, err := h.registry.SubmitReceipt(
		c.Request().Context(), id, name,
		fh.Filename, fh.Header.Get("Content-Type"), fh.Size, src)
	if err != nil {
		return writeGiftError(c, err)
	}
	return c.JSON(http.StatusOK, toGiftResponse(gift, false))
}
