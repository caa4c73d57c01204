package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/wedding-gift-registry/internal/handler"    // the handlers that implement business logic
	"github.com/iliyamo/wedding-gift-registry/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers the operational endpoints that carry no
// business logic: the health probe and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the guest-facing endpoints.  cacheMW wraps the
// read endpoints whose responses are safe to share between guests; rateMW
// wraps the anonymous mutations so one enthusiastic guest cannot flood
// the site.  Either middleware may be a pass-through when Redis is down.
func RegisterPublic(e *echo.Echo, reg *handler.RegistryHandler, gb *handler.GuestbookHandler, rsvp *handler.RSVPHandler, cacheMW, rateMW echo.MiddlewareFunc) {
	g := e.Group("/v1")

	// Registry catalog.  Reads are cached, mutations are rate limited.
	g.GET("/gifts", reg.ListGifts, cacheMW)
	g.GET("/gifts/:id", reg.GetGift)
	g.POST("/gifts/:id/reserve", reg.Reserve, rateMW)
	g.POST("/gifts/:id/receipt", reg.SubmitReceipt, rateMW)

	// Invitation replies.
	g.POST("/rsvps", rsvp.Create, rateMW)

	// Guestbook: approved feeds are public, submissions go through
	// moderation.
	g.GET("/guestbook/photos", gb.ListPhotos, cacheMW)
	g.GET("/guestbook/songs", gb.ListSongs, cacheMW)
	g.POST("/guestbook/photos", gb.SubmitPhoto, rateMW)
	g.POST("/guestbook/songs", gb.SubmitSong, rateMW)
}

// RegisterAuth registers the admin session endpoints.  Unauthenticated
// operations live under /v1/auth; /v1/me and /v1/auth/logout require a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN"))
	auth.GET("/me", a.Me)
	auth.POST("/auth/logout", a.Logout)
}
