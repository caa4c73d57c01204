package model

import "time"

// GiftCategory enumerates the labels a gift may be filed under on the
// registry page.  Categories are stored as plain strings in the `gifts`
// table; unknown values are rejected at the handler layer.
type GiftCategory = string

const (
	CategoryKitchen    GiftCategory = "KITCHEN"
	CategoryHome       GiftCategory = "HOME"
	CategoryTravel     GiftCategory = "TRAVEL"
	CategoryExperience GiftCategory = "EXPERIENCE"
	CategoryOther      GiftCategory = "OTHER"
)

// ValidCategory reports whether s is one of the known gift categories.
func ValidCategory(s string) bool {
	switch s {
	case CategoryKitchen, CategoryHome, CategoryTravel, CategoryExperience, CategoryOther:
		return true
	}
	return false
}

// Receipt status values stored in gifts.receipt_status.  REJECTED is only
// ever reported in API responses: rejecting a receipt clears the row back
// to its available shape, so the value never persists.
const (
	ReceiptPending  = "PENDING"
	ReceiptApproved = "APPROVED"
	ReceiptRejected = "REJECTED"
)

// ReservationHold is how long a reservation is advertised to last.  The
// expiry is advisory: nothing sweeps expired reservations, the timestamp is
// surfaced so the couple can nudge a guest who went quiet.
const ReservationHold = 7 * 24 * time.Hour

// Gift represents one registry item as stored in the `gifts` table.  The
// reservation, receipt and purchase columns are kept flat to match the
// schema; business logic should reason about them through State() and the
// transition helpers below so the three field groups cannot drift apart.
//
// Fields:
//
//	ID                   – primary key identifier.
//	Name                 – display name (required).
//	Description          – optional free text.
//	PriceCents           – optional price in cents.
//	Link                 – optional external purchase URL.
//	ImageURL             – optional image reference.
//	Category             – optional category label (see GiftCategory).
//	MostWanted           – "most wanted" priority flag.
//	Reserved             – whether a guest has claimed the gift.
//	ReservedBy           – display name of the reserving guest (nullable).
//	ReservedAt           – when the reservation was made (nullable).
//	ReservationExpiresAt – advisory end of the 7-day hold (nullable).
//	ReceiptURL           – storage reference of the uploaded receipt (nullable).
//	ReceiptStatus        – PENDING or APPROVED while stored (nullable).
//	Purchased            – terminal success state.
//	CreatedAt            – creation timestamp.
//	UpdatedAt            – last update timestamp.
type Gift struct {
	ID                   uint64     // gifts.id
	Name                 string     // gifts.name
	Description          *string    // gifts.description (nullable)
	PriceCents           *uint32    // gifts.price_cents (nullable)
	Link                 *string    // gifts.link (nullable)
	ImageURL             *string    // gifts.image_url (nullable)
	Category             *string    // gifts.category (nullable)
	MostWanted           bool       // gifts.most_wanted
	Reserved             bool       // gifts.reserved
	ReservedBy           *string    // gifts.reserved_by (nullable)
	ReservedAt           *time.Time // gifts.reserved_at (nullable)
	ReservationExpiresAt *time.Time // gifts.reservation_expires_at (nullable)
	ReceiptURL           *string    // gifts.receipt_url (nullable)
	ReceiptStatus        *string    // gifts.receipt_status (nullable)
	Purchased            bool       // gifts.purchased
	CreatedAt            time.Time  // gifts.created_at
	UpdatedAt            time.Time  // gifts.updated_at
}

// GiftState is the tagged view of the flat reservation/receipt/purchase
// columns.  Exactly one state holds for a consistent row.
type GiftState int

const (
	StateAvailable GiftState = iota
	StateReserved
	StateReceiptPending
	StatePurchased
)

// String returns the lowercase name used in API filters and responses.
func (s GiftState) String() string {
	switch s {
	case StateReserved:
		return "reserved"
	case StateReceiptPending:
		return "receipt_pending"
	case StatePurchased:
		return "purchased"
	default:
		return "available"
	}
}

// State derives the tagged state from the stored columns.  Purchased wins
// over everything; a reserved gift with a receipt on file is pending review.
func (g *Gift) State() GiftState {
	if g.Purchased {
		return StatePurchased
	}
	if !g.Reserved {
		return StateAvailable
	}
	if g.ReceiptURL != nil {
		return StateReceiptPending
	}
	return StateReserved
}

// ApplyReservation marks the gift as reserved by the named guest and stamps
// the advisory 7-day hold.  It does not check the current state: an existing
// reservation is overwritten, matching the trust-level of the site (see
// DESIGN.md).
func (g *Gift) ApplyReservation(name string, now time.Time) {
	exp := now.Add(ReservationHold)
	g.Reserved = true
	g.ReservedBy = &name
	g.ReservedAt = &now
	g.ReservationExpiresAt = &exp
}

// ClearReservation returns the gift to its available shape: every
// reservation and receipt field is unset.  Safe to call repeatedly.
func (g *Gift) ClearReservation() {
	g.Reserved = false
	g.ReservedBy = nil
	g.ReservedAt = nil
	g.ReservationExpiresAt = nil
	g.ReceiptURL = nil
	g.ReceiptStatus = nil
}

// ApplyReceipt attaches an uploaded receipt reference and marks it pending
// review.  The reservation fields are untouched.
func (g *Gift) ApplyReceipt(ref string) {
	status := ReceiptPending
	g.ReceiptURL = &ref
	g.ReceiptStatus = &status
}

// ApproveReceipt finalises the gift: the receipt is approved and the gift
// enters the terminal purchased state.  ReservedBy is preserved so the site
// can show who bought the gift.
func (g *Gift) ApproveReceipt() {
	status := ReceiptApproved
	g.ReceiptStatus = &status
	g.Purchased = true
}

// Consistent reports whether the flat columns describe one of the four legal
// states: purchased implies an approved receipt on a reserved gift, a
// receipt implies a reservation, and an available gift carries no
// reservation or receipt residue.
func (g *Gift) Consistent() bool {
	if g.Purchased {
		return g.Reserved && g.ReceiptStatus != nil && *g.ReceiptStatus == ReceiptApproved
	}
	if g.ReceiptURL != nil && !g.Reserved {
		return false
	}
	if !g.Reserved {
		return g.ReservedBy == nil && g.ReservedAt == nil &&
			g.ReservationExpiresAt == nil && g.ReceiptURL == nil && g.ReceiptStatus == nil
	}
	return g.ReservedBy != nil
}
