package model

import "time"

// Moderation status values shared by guestbook photos and songs.  Unlike
// gift receipts, a rejection here is durable: the row stays with status
// REJECTED so repeat submissions can be spotted.
const (
	ModerationPending  = "PENDING"
	ModerationApproved = "APPROVED"
	ModerationRejected = "REJECTED"
)

// ValidModeration reports whether s is a known moderation status.
func ValidModeration(s string) bool {
	return s == ModerationPending || s == ModerationApproved || s == ModerationRejected
}

// Photo is a guest-submitted photo awaiting (or past) moderation.  The file
// itself lives in blob storage; FileRef is the storage reference.
//
// Fields:
//
//	ID          – primary key identifier.
//	SubmittedBy – guest display name.
//	Caption     – optional caption.
//	FileRef     – blob storage reference of the image.
//	Status      – PENDING, APPROVED or REJECTED.
//	CreatedAt   – submission timestamp.
//	UpdatedAt   – last status change.
type Photo struct {
	ID          uint64    // guestbook_photos.id
	SubmittedBy string    // guestbook_photos.submitted_by
	Caption     *string   // guestbook_photos.caption (nullable)
	FileRef     string    // guestbook_photos.file_ref
	Status      string    // guestbook_photos.status
	CreatedAt   time.Time // guestbook_photos.created_at
	UpdatedAt   time.Time // guestbook_photos.updated_at
}

// Song is a guest-suggested track for the reception playlist, moderated the
// same way as photos.
//
// Fields:
//
//	ID          – primary key identifier.
//	SubmittedBy – guest display name.
//	Title       – song title (required).
//	Artist      – optional artist name.
//	Link        – optional streaming URL.
//	Status      – PENDING, APPROVED or REJECTED.
//	CreatedAt   – submission timestamp.
//	UpdatedAt   – last status change.
type Song struct {
	ID          uint64    // guestbook_songs.id
	SubmittedBy string    // guestbook_songs.submitted_by
	Title       string    // guestbook_songs.title
	Artist      *string   // guestbook_songs.artist (nullable)
	Link        *string   // guestbook_songs.link (nullable)
	Status      string    // guestbook_songs.status
	CreatedAt   time.Time // guestbook_songs.created_at
	UpdatedAt   time.Time // guestbook_songs.updated_at
}
