package service

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/metrics"
	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/queue"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/storage"
)

// GiftStore is the persistence contract the registry needs.  It is
// satisfied by repository.GiftRepo and by the in-memory fake used in
// tests.  Implementations must apply Update as one atomic single-row
// write and return repository.ErrGiftNotFound for unknown ids.
type GiftStore interface {
	Create(ctx context.Context, g *model.Gift) error
	GetByID(ctx context.Context, id uint64) (*model.Gift, error)
	Update(ctx context.Context, g *model.Gift) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, f repository.GiftFilter) ([]model.Gift, error)
	ListPendingReceipts(ctx context.Context) ([]model.Gift, error)
}

// EventSink receives domain events after a state change has been
// persisted.  Publishing is best-effort; errors are ignored by the
// registry (the publisher logs them itself).
type EventSink interface {
	GiftReserved(ctx context.Context, ev queue.GiftReservedEvent) error
	ReceiptDecided(ctx context.Context, ev queue.ReceiptDecidedEvent) error
}

// MaxReceiptBytes caps receipt uploads.  Receipts are photos or PDF
// exports of an order confirmation; 10 MiB is generous.
const MaxReceiptBytes = 10 << 20

// receiptContentTypes is the allow-list for receipt uploads.
var receiptContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// AllowedReceiptType reports whether a receipt upload content type is
// accepted.
func AllowedReceiptType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return receiptContentTypes[ct]
}

// Registry mediates every gift state transition.  All writes go through
// the GiftStore as full single-row updates computed from a freshly loaded
// gift, so within one call the field groups stay consistent.  There is no
// cross-request locking: two concurrent Reserve calls both succeed and
// the last writer wins, which is accepted for this site (see DESIGN.md).
type Registry struct {
	gifts  GiftStore
	blobs  storage.BlobStore
	events EventSink
	log    *logrus.Logger
}

// NewRegistry wires the registry with its collaborators.  events may be
// nil when no broker is configured; log must be non-nil.
func NewRegistry(gifts GiftStore, blobs storage.BlobStore, events EventSink, log *logrus.Logger) *Registry {
	if gifts == nil || blobs == nil || log == nil {
		panic("nil dependency passed to NewRegistry")
	}
	return &Registry{gifts: gifts, blobs: blobs, events: events, log: log}
}

// Reserve claims the gift for the named guest and stamps the 7-day
// advisory hold.  An existing reservation is overwritten without
// complaint: the site trusts its guests, and the couple can untangle a
// clash by hand.  Returns ErrInvalidInput for a blank name and
// repository.ErrGiftNotFound for an unknown id.
func (r *Registry) Reserve(ctx context.Context, giftID uint64, name string) (*model.Gift, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	gift, err := r.gifts.GetByID(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.Purchased {
		return nil, fmt.Errorf("%w: gift already purchased", ErrInvalidInput)
	}
	now := time.Now().UTC()
	gift.ApplyReservation(name, now)
	if err := r.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}
	metrics.GiftsReserved.Inc()
	r.publishReserved(ctx, gift)
	return gift, nil
}

// Release returns the gift to its available shape, clearing every
// reservation and receipt field.  Idempotent: releasing an already
// available gift is a no-op that still returns the gift.  A stored
// receipt file is deleted best-effort; an orphaned blob is preferable to
// a row that still references it.
func (r *Registry) Release(ctx context.Context, giftID uint64) (*model.Gift, error) {
	gift, err := r.gifts.GetByID(ctx, giftID)
	if err != nil {
		return nil, err
	}
	r.deleteBlob(ctx, gift.ReceiptURL)
	gift.ClearReservation()
	if err := r.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

// SubmitReceipt stores the proof-of-purchase file and marks the receipt
// pending review.  The caller's name must match the stored reservation
// exactly; that name is the only authorization token guests have.  The
// blob is written before the row is updated, so a storage failure leaves
// the gift untouched (no dangling receipt_url).
func (r *Registry) SubmitReceipt(ctx context.Context, giftID uint64, name, filename, contentType string, size int64, content io.Reader) (*model.Gift, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if content == nil || size <= 0 {
		return nil, fmt.Errorf("%w: receipt file is required", ErrInvalidInput)
	}
	if size > MaxReceiptBytes {
		return nil, fmt.Errorf("%w: receipt file exceeds %d bytes", ErrInvalidInput, MaxReceiptBytes)
	}
	if !AllowedReceiptType(contentType) {
		return nil, fmt.Errorf("%w: receipt must be an image or PDF", ErrInvalidInput)
	}
	gift, err := r.gifts.GetByID(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.Purchased {
		return nil, fmt.Errorf("%w: gift already purchased", ErrInvalidInput)
	}
	if !gift.Reserved || gift.ReservedBy == nil {
		return nil, repository.ErrForbidden
	}
	if *gift.ReservedBy != name {
		return nil, repository.ErrForbidden
	}
	// Key derived from gift id + timestamp so resubmissions never collide.
	key := fmt.Sprintf("receipts/%d-%d%s", gift.ID, time.Now().UTC().UnixNano(), safeExt(filename))
	ref, err := r.blobs.Store(ctx, key, io.LimitReader(content, MaxReceiptBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	// A resubmission replaces the previous upload.
	old := gift.ReceiptURL
	gift.ApplyReceipt(ref)
	if err := r.gifts.Update(ctx, gift); err != nil {
		// Roll the blob back so a failed update leaves no orphan.
		r.deleteBlob(ctx, &ref)
		return nil, err
	}
	r.deleteBlob(ctx, old)
	metrics.ReceiptsSubmitted.Inc()
	return gift, nil
}

// DecideReceipt finalises or undoes a reservation with a pending receipt.
// Approval marks the receipt approved and the gift purchased (terminal;
// reservedBy is preserved for display).  Rejection clears the row back to
// available and deletes the stored file; the REJECTED status appears only
// in the returned gift, not in the database, so a re-fetch shows a plain
// available gift.  That asymmetry is deliberate and recorded in DESIGN.md.
func (r *Registry) DecideReceipt(ctx context.Context, giftID uint64, approved bool) (*model.Gift, error) {
	gift, err := r.gifts.GetByID(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if gift.Purchased {
		return nil, fmt.Errorf("%w: gift already purchased", ErrNoReceiptPending)
	}
	if !gift.Reserved || gift.ReceiptURL == nil {
		return nil, ErrNoReceiptPending
	}
	guest := ""
	if gift.ReservedBy != nil {
		guest = *gift.ReservedBy
	}
	if approved {
		gift.ApproveReceipt()
		if err := r.gifts.Update(ctx, gift); err != nil {
			return nil, err
		}
		metrics.ReceiptsDecided.WithLabelValues(model.ReceiptApproved).Inc()
		r.publishDecided(ctx, gift, guest, model.ReceiptApproved)
		return gift, nil
	}
	ref := gift.ReceiptURL
	gift.ClearReservation()
	if err := r.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}
	r.deleteBlob(ctx, ref)
	metrics.ReceiptsDecided.WithLabelValues(model.ReceiptRejected).Inc()
	r.publishDecided(ctx, gift, guest, model.ReceiptRejected)
	// Report the rejection on the returned copy only; the persisted row is
	// fully cleared.
	out := *gift
	rejected := model.ReceiptRejected
	out.ReceiptStatus = &rejected
	return &out, nil
}

// GiftInput carries the admin-editable attribute fields of a gift.
type GiftInput struct {
	Name        string
	Description *string
	PriceCents  *uint32
	Link        *string
	ImageURL    *string
	Category    *string
	MostWanted  bool
}

// validate normalizes and checks the input, returning ErrInvalidInput on
// the first violation.
func (in *GiftInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Category != nil {
		c := strings.ToUpper(strings.TrimSpace(*in.Category))
		if !model.ValidCategory(c) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *in.Category)
		}
		in.Category = &c
	}
	for _, u := range []*string{in.Link, in.ImageURL} {
		if u == nil {
			continue
		}
		parsed, err := url.ParseRequestURI(*u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("%w: invalid URL %q", ErrInvalidInput, *u)
		}
	}
	return nil
}

// CreateGift adds a new catalog entry in the available state.
func (r *Registry) CreateGift(ctx context.Context, in GiftInput) (*model.Gift, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	gift := &model.Gift{
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Link:        in.Link,
		ImageURL:    in.ImageURL,
		Category:    in.Category,
		MostWanted:  in.MostWanted,
	}
	if err := r.gifts.Create(ctx, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

// UpdateGift replaces the attribute fields of a gift.  Reservation,
// receipt and purchase state are not editable here; they only move
// through Reserve/Release/SubmitReceipt/DecideReceipt.
func (r *Registry) UpdateGift(ctx context.Context, id uint64, in GiftInput) (*model.Gift, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	gift, err := r.gifts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	gift.Name = in.Name
	gift.Description = in.Description
	gift.PriceCents = in.PriceCents
	gift.Link = in.Link
	gift.ImageURL = in.ImageURL
	gift.Category = in.Category
	gift.MostWanted = in.MostWanted
	if err := r.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}
	return gift, nil
}

// DeleteGift removes a gift unconditionally, reserved or purchased alike,
// deleting any stored receipt file along the way.
func (r *Registry) DeleteGift(ctx context.Context, id uint64) error {
	gift, err := r.gifts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.gifts.Delete(ctx, id); err != nil {
		return err
	}
	r.deleteBlob(ctx, gift.ReceiptURL)
	return nil
}

// GetGift returns one gift by id.
func (r *Registry) GetGift(ctx context.Context, id uint64) (*model.Gift, error) {
	return r.gifts.GetByID(ctx, id)
}

// ListGifts returns gifts matching the filter in insertion order.  An
// unknown state filter is rejected rather than silently ignored.
func (r *Registry) ListGifts(ctx context.Context, f repository.GiftFilter) ([]model.Gift, error) {
	switch f.State {
	case "", "available", "reserved", "receipt_pending", "purchased":
	default:
		return nil, fmt.Errorf("%w: unknown state filter %q", ErrInvalidInput, f.State)
	}
	if f.Category != "" {
		c := strings.ToUpper(strings.TrimSpace(f.Category))
		if !model.ValidCategory(c) {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, f.Category)
		}
		f.Category = c
	}
	return r.gifts.List(ctx, f)
}

// PendingReceipts returns the gifts awaiting a receipt decision, oldest
// first.
func (r *Registry) PendingReceipts(ctx context.Context) ([]model.Gift, error) {
	return r.gifts.ListPendingReceipts(ctx)
}

// publishReserved emits a GiftReservedEvent; failures are already logged
// by the sink and deliberately ignored here.
func (r *Registry) publishReserved(ctx context.Context, g *model.Gift) {
	if r.events == nil {
		return
	}
	ev := queue.GiftReservedEvent{
		GiftID:     g.ID,
		GiftName:   g.Name,
		PriceCents: g.PriceCents,
	}
	if g.ReservedBy != nil {
		ev.ReservedBy = *g.ReservedBy
	}
	if g.ReservedAt != nil {
		ev.ReservedAt = g.ReservedAt.Format(time.RFC3339)
	}
	if g.ReservationExpiresAt != nil {
		ev.ExpiresAt = g.ReservationExpiresAt.Format(time.RFC3339)
	}
	_ = r.events.GiftReserved(ctx, ev)
}

// publishDecided emits a ReceiptDecidedEvent.
func (r *Registry) publishDecided(ctx context.Context, g *model.Gift, guest, decision string) {
	if r.events == nil {
		return
	}
	_ = r.events.ReceiptDecided(ctx, queue.ReceiptDecidedEvent{
		GiftID:    g.ID,
		GiftName:  g.Name,
		GuestName: guest,
		Decision:  decision,
		DecidedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// deleteBlob removes a stored file if ref is set, logging failures instead
// of propagating them: the database row is the source of truth and an
// orphaned file is harmless.
func (r *Registry) deleteBlob(ctx context.Context, ref *string) {
	if ref == nil {
		return
	}
	if err := r.blobs.Delete(ctx, *ref); err != nil {
		r.log.WithError(err).WithField("ref", *ref).Warn("failed to delete stored receipt")
	}
}

// safeExt returns a sanitized lowercase file extension (including the
// dot) for use in storage keys, or empty when the filename has none.
func safeExt(filename string) string {
	// Normalize Windows-style separators so path.Ext sees only the final
	// component.
	filename = strings.ReplaceAll(filename, "\\", "/")
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
