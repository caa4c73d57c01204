// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// GiftReservedEvent is published when a guest reserves a registry gift.
// It carries enough information for downstream consumers to log or notify
// the couple without querying the primary database.
type GiftReservedEvent struct {
	GiftID     uint64  `json:"gift_id"`
	GiftName   string  `json:"gift_name"`
	ReservedBy string  `json:"reserved_by"`
	PriceCents *uint32 `json:"price_cents,omitempty"`
	ReservedAt string  `json:"reserved_at"`
	ExpiresAt  string  `json:"expires_at"`
}

// ReceiptDecidedEvent is published when an admin approves or rejects an
// uploaded receipt.  Decision is "APPROVED" or "REJECTED".
type ReceiptDecidedEvent struct {
	GiftID    uint64 `json:"gift_id"`
	GiftName  string `json:"gift_name"`
	GuestName string `json:"guest_name"`
	Decision  string `json:"decision"`
	DecidedAt string `json:"decided_at"`
}
