package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/wedding-gift-registry/internal/handler"
	"github.com/iliyamo/wedding-gift-registry/internal/middleware"
)

// RegisterAdmin registers the couple's management surface under
// /v1/admin.  Every route requires a valid access token with the ADMIN
// role; the group applies both middlewares once so individual routes stay
// clean.
func RegisterAdmin(e *echo.Echo, gifts *handler.AdminGiftHandler, rsvp *handler.RSVPHandler, gb *handler.GuestbookHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	// Catalog management.
	g.POST("/gifts", gifts.Create)
	g.PUT("/gifts/:id", gifts.Update)
	g.PATCH("/gifts/:id", gifts.Update)
	g.DELETE("/gifts/:id", gifts.Delete)
	g.POST("/gifts/:id/release", gifts.Release)

	// Receipt review queue.
	g.GET("/receipts/pending", gifts.PendingReceipts)
	g.POST("/gifts/:id/receipt/decision", gifts.DecideReceipt)

	// Replies and headcount.
	g.GET("/rsvps", rsvp.List)

	// Guestbook moderation.
	g.GET("/guestbook/pending", gb.ListPending)
	g.POST("/guestbook/photos/:id/decision", gb.DecidePhoto)
	g.POST("/guestbook/songs/:id/decision", gb.DecideSong)
}
