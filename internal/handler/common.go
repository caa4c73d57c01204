package handler // handler defines http handlers

import (
	"errors" // errors provides sentinel comparisons used below
	"net/http"
	"strconv" // strconv converts strings to numeric types
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/service"
)

// getAdminID extracts the admin_id from echo.Context and converts it to
// uint64.  JWT numeric claims arrive as float64; older tokens may carry
// strings.
func getAdminID(c echo.Context) (uint64, error) {
	v := c.Get("admin_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid admin_id in context")
}

// parseID parses the :id path parameter as a positive integer.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// giftResponse is the JSON shape returned for gifts.  The flat stored
// columns are exposed together with the derived state string so clients
// need not re-derive it.
type giftResponse struct {
	ID                   uint64  `json:"id"`
	Name                 string  `json:"name"`
	Description          *string `json:"description,omitempty"`
	PriceCents           *uint32 `json:"price_cents,omitempty"`
	Link                 *string `json:"link,omitempty"`
	ImageURL             *string `json:"image_url,omitempty"`
	Category             *string `json:"category,omitempty"`
	MostWanted           bool    `json:"most_wanted"`
	State                string  `json:"state"`
	Reserved             bool    `json:"reserved"`
	ReservedBy           *string `json:"reserved_by,omitempty"`
	ReservedAt           *string `json:"reserved_at,omitempty"`
	ReservationExpiresAt *string `json:"reservation_expires_at,omitempty"`
	ReceiptURL           *string `json:"receipt_url,omitempty"`
	ReceiptStatus        *string `json:"receipt_status,omitempty"`
	Purchased            bool    `json:"purchased"`
	CreatedAt            string  `json:"created_at"`
}

// toGiftResponse flattens a gift for JSON output.  When admin is false the
// receipt reference is withheld; guests have no business downloading each
// other's receipts.
func toGiftResponse(g *model.Gift, admin bool) giftResponse {
	out := giftResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		PriceCents:    g.PriceCents,
		Link:          g.Link,
		ImageURL:      g.ImageURL,
		Category:      g.Category,
		MostWanted:    g.MostWanted,
		State:         g.State().String(),
		Reserved:      g.Reserved,
		ReservedBy:    g.ReservedBy,
		ReceiptStatus: g.ReceiptStatus,
		Purchased:     g.Purchased,
		CreatedAt:     g.CreatedAt.UTC().Format(time.RFC3339),
	}
	if g.ReservedAt != nil {
		iso := g.ReservedAt.UTC().Format(time.RFC3339)
		out.ReservedAt = &iso
	}
	if g.ReservationExpiresAt != nil {
		iso := g.ReservationExpiresAt.UTC().Format(time.RFC3339)
		out.ReservationExpiresAt = &iso
	}
	if admin {
		out.ReceiptURL = g.ReceiptURL
	}
	// The rejected status is transient: present on the returned value
	// after a rejection, never on a stored row.
	return out
}

// giftResponses maps a slice of gifts.
func giftResponses(gifts []model.Gift, admin bool) []giftResponse {
	out := make([]giftResponse, 0, len(gifts))
	for i := range gifts {
		out = append(out, toGiftResponse(&gifts[i], admin))
	}
	return out
}

// writeGiftError translates workflow errors into HTTP responses.  Unknown
// errors are reported as a generic 500 so guests get a retry-capable
// message without internals leaking.
func writeGiftError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrGiftNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "gift not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNoReceiptPending):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no receipt pending"})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrStorageFailure):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "file storage unavailable, please retry"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
