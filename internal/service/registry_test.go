package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/queue"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
)

// memStore is an in-memory GiftStore.  Update replaces the whole row, the
// same contract the SQL implementation honors.
type memStore struct {
	mu        sync.Mutex
	nextID    uint64
	gifts     map[uint64]model.Gift
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{gifts: make(map[uint64]model.Gift)}
}

func (s *memStore) Create(ctx context.Context, g *model.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g.ID = s.nextID
	s.gifts[g.ID] = *g
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gifts[id]
	if !ok {
		return nil, repository.ErrGiftNotFound
	}
	out := g
	return &out, nil
}

func (s *memStore) Update(ctx context.Context, g *model.Gift) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.gifts[g.ID]; !ok {
		return repository.ErrGiftNotFound
	}
	s.gifts[g.ID] = *g
	return nil
}

func (s *memStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gifts[id]; !ok {
		return repository.ErrGiftNotFound
	}
	delete(s.gifts, id)
	return nil
}

func (s *memStore) List(ctx context.Context, f repository.GiftFilter) ([]model.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Gift, 0, len(s.gifts))
	for id := uint64(1); id <= s.nextID; id++ {
		g, ok := s.gifts[id]
		if !ok {
			continue
		}
		if f.State != "" && g.State().String() != f.State {
			continue
		}
		if f.Category != "" && (g.Category == nil || *g.Category != f.Category) {
			continue
		}
		if f.MostWanted != nil && g.MostWanted != *f.MostWanted {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *memStore) ListPendingReceipts(ctx context.Context) ([]model.Gift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Gift, 0)
	for id := uint64(1); id <= s.nextID; id++ {
		g, ok := s.gifts[id]
		if !ok || g.Purchased {
			continue
		}
		if g.ReceiptStatus != nil && *g.ReceiptStatus == model.ReceiptPending {
			out = append(out, g)
		}
	}
	return out, nil
}

// memBlobs is an in-memory BlobStore recording stored and deleted refs.
type memBlobs struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	deleted  []string
	storeErr error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{blobs: make(map[string][]byte)}
}

func (b *memBlobs) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.storeErr != nil {
		return "", b.storeErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	ref := "mem://" + key
	b.blobs[ref] = data
	return ref, nil
}

func (b *memBlobs) Delete(ctx context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, ref)
	delete(b.blobs, ref)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// memSink records published events.
type memSink struct {
	mu       sync.Mutex
	reserved []queue.GiftReservedEvent
	decided  []queue.ReceiptDecidedEvent
}

func (s *memSink) GiftReserved(ctx context.Context, ev queue.GiftReservedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved = append(s.reserved, ev)
	return nil
}

func (s *memSink) ReceiptDecided(ctx context.Context, ev queue.ReceiptDecidedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decided = append(s.decided, ev)
	return nil
}

func testRegistry(t *testing.T) (*Registry, *memStore, *memBlobs, *memSink) {
	t.Helper()
	store := newMemStore()
	blobs := newMemBlobs()
	sink := &memSink{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRegistry(store, blobs, sink, log), store, blobs, sink
}

func addGift(t *testing.T, r *Registry, name string) *model.Gift {
	t.Helper()
	g, err := r.CreateGift(context.Background(), GiftInput{Name: name})
	require.NoError(t, err)
	return g
}

func submitReceipt(t *testing.T, r *Registry, id uint64, name string) *model.Gift {
	t.Helper()
	body := "receipt bytes"
	g, err := r.SubmitReceipt(context.Background(), id, name,
		"receipt.jpg", "image/jpeg", int64(len(body)), strings.NewReader(body))
	require.NoError(t, err)
	return g
}

func TestHappyPathReserveReceiptApprove(t *testing.T) {
	r, store, blobs, sink := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "dutch oven")

	g, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)
	assert.Equal(t, model.StateReserved, g.State())
	require.NotNil(t, g.ReservationExpiresAt)
	assert.Equal(t, g.ReservedAt.Add(model.ReservationHold), *g.ReservationExpiresAt)

	g = submitReceipt(t, r, g.ID, "Dana")
	assert.Equal(t, model.StateReceiptPending, g.State())
	require.NotNil(t, g.ReceiptStatus)
	assert.Equal(t, model.ReceiptPending, *g.ReceiptStatus)
	assert.Equal(t, 1, blobs.count())

	g, err = r.DecideReceipt(ctx, g.ID, true)
	require.NoError(t, err)
	assert.True(t, g.Purchased)
	assert.Equal(t, model.StatePurchased, g.State())
	require.NotNil(t, g.ReceiptStatus)
	assert.Equal(t, model.ReceiptApproved, *g.ReceiptStatus)
	require.NotNil(t, g.ReservedBy)
	assert.Equal(t, "Dana", *g.ReservedBy)

	// The stored row matches and stays consistent.
	stored, err := store.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, stored.Consistent())
	assert.True(t, stored.Purchased)

	require.Len(t, sink.reserved, 1)
	assert.Equal(t, "Dana", sink.reserved[0].ReservedBy)
	require.Len(t, sink.decided, 1)
	assert.Equal(t, model.ReceiptApproved, sink.decided[0].Decision)
}

func TestRejectionClearsTheRow(t *testing.T) {
	r, store, blobs, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "knife set")

	_, err := r.Reserve(ctx, g.ID, "Sam")
	require.NoError(t, err)
	submitReceipt(t, r, g.ID, "Sam")

	out, err := r.DecideReceipt(ctx, g.ID, false)
	require.NoError(t, err)

	// The response reports the rejection.
	require.NotNil(t, out.ReceiptStatus)
	assert.Equal(t, model.ReceiptRejected, *out.ReceiptStatus)
	assert.False(t, out.Reserved)
	assert.Nil(t, out.ReceiptURL)

	// The stored row is a plain available gift with no trace of it.
	stored, err := store.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateAvailable, stored.State())
	assert.Nil(t, stored.ReceiptStatus)
	assert.Nil(t, stored.ReservedBy)
	assert.True(t, stored.Consistent())

	// The uploaded file is gone.
	assert.Equal(t, 0, blobs.count())
}

func TestReserveOverwritesSilently(t *testing.T) {
	r, _, _, sink := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "record player")

	_, err := r.Reserve(ctx, g.ID, "Alice")
	require.NoError(t, err)
	g2, err := r.Reserve(ctx, g.ID, "Bob")
	require.NoError(t, err)

	require.NotNil(t, g2.ReservedBy)
	assert.Equal(t, "Bob", *g2.ReservedBy)
	assert.Len(t, sink.reserved, 2)
}

func TestReserveValidation(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "hammock")

	_, err := r.Reserve(ctx, g.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = r.Reserve(ctx, 999, "Dana")
	assert.ErrorIs(t, err, repository.ErrGiftNotFound)

	// A purchased gift cannot be re-reserved.
	_, err = r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)
	submitReceipt(t, r, g.ID, "Dana")
	_, err = r.DecideReceipt(ctx, g.ID, true)
	require.NoError(t, err)
	_, err = r.Reserve(ctx, g.ID, "Eve")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitReceiptAuthorization(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "tea set")

	body := strings.NewReader("x")

	// Not reserved yet.
	_, err := r.SubmitReceipt(ctx, g.ID, "Dana", "r.jpg", "image/jpeg", 1, body)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)

	// Name must match the reservation exactly.
	_, err = r.SubmitReceipt(ctx, g.ID, "dana", "r.jpg", "image/jpeg", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestSubmitReceiptValidation(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "vase")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)

	_, err = r.SubmitReceipt(ctx, g.ID, "Dana", "r.exe", "application/octet-stream", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = r.SubmitReceipt(ctx, g.ID, "Dana", "r.jpg", "image/jpeg", MaxReceiptBytes+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = r.SubmitReceipt(ctx, g.ID, "Dana", "r.jpg", "image/jpeg", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitReceiptStorageFailureLeavesGiftUntouched(t *testing.T) {
	r, store, blobs, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "camera")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)

	blobs.storeErr = errors.New("disk full")
	_, err = r.SubmitReceipt(ctx, g.ID, "Dana", "r.jpg", "image/jpeg", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageFailure)

	stored, err := store.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateReserved, stored.State())
	assert.Nil(t, stored.ReceiptURL)
	assert.True(t, stored.Consistent())
}

func TestResubmissionReplacesReceipt(t *testing.T) {
	r, _, blobs, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "toaster")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)

	first := submitReceipt(t, r, g.ID, "Dana")
	second := submitReceipt(t, r, g.ID, "Dana")

	assert.NotEqual(t, *first.ReceiptURL, *second.ReceiptURL)
	assert.Equal(t, 1, blobs.count())
	assert.Contains(t, blobs.deleted, *first.ReceiptURL)
}

func TestReleaseIsIdempotent(t *testing.T) {
	r, store, blobs, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "quilt")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)
	submitReceipt(t, r, g.ID, "Dana")

	g, err = r.Release(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateAvailable, g.State())
	assert.Equal(t, 0, blobs.count())

	// Releasing an already available gift is a no-op.
	g, err = r.Release(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateAvailable, g.State())

	stored, err := store.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, stored.Consistent())
}

func TestDecideReceiptRequiresPendingReceipt(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "board games")

	// No reservation at all.
	_, err := r.DecideReceipt(ctx, g.ID, true)
	assert.ErrorIs(t, err, ErrNoReceiptPending)

	// Reserved but no receipt.
	_, err = r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)
	_, err = r.DecideReceipt(ctx, g.ID, true)
	assert.ErrorIs(t, err, ErrNoReceiptPending)

	// Already purchased.
	submitReceipt(t, r, g.ID, "Dana")
	_, err = r.DecideReceipt(ctx, g.ID, true)
	require.NoError(t, err)
	_, err = r.DecideReceipt(ctx, g.ID, false)
	assert.ErrorIs(t, err, ErrNoReceiptPending)
}

func TestGiftInputValidation(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()

	_, err := r.CreateGift(ctx, GiftInput{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	bad := "not-a-url"
	_, err = r.CreateGift(ctx, GiftInput{Name: "x", Link: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	ftp := "ftp://example.com/file"
	_, err = r.CreateGift(ctx, GiftInput{Name: "x", ImageURL: &ftp})
	assert.ErrorIs(t, err, ErrInvalidInput)

	unknown := "GARDEN"
	_, err = r.CreateGift(ctx, GiftInput{Name: "x", Category: &unknown})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Categories are normalized to uppercase.
	lower := "kitchen"
	g, err := r.CreateGift(ctx, GiftInput{Name: "mixer", Category: &lower})
	require.NoError(t, err)
	require.NotNil(t, g.Category)
	assert.Equal(t, model.CategoryKitchen, *g.Category)
}

func TestUpdateGiftKeepsWorkflowState(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "old name")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)

	updated, err := r.UpdateGift(ctx, g.ID, GiftInput{Name: "new name", MostWanted: true})
	require.NoError(t, err)
	assert.Equal(t, "new name", updated.Name)
	assert.True(t, updated.MostWanted)
	assert.Equal(t, model.StateReserved, updated.State())
	require.NotNil(t, updated.ReservedBy)
	assert.Equal(t, "Dana", *updated.ReservedBy)
}

func TestDeleteGiftRemovesReceiptBlob(t *testing.T) {
	r, store, blobs, _ := testRegistry(t)
	ctx := context.Background()
	g := addGift(t, r, "lamp")
	_, err := r.Reserve(ctx, g.ID, "Dana")
	require.NoError(t, err)
	submitReceipt(t, r, g.ID, "Dana")

	require.NoError(t, r.DeleteGift(ctx, g.ID))
	assert.Equal(t, 0, blobs.count())
	_, err = store.GetByID(ctx, g.ID)
	assert.ErrorIs(t, err, repository.ErrGiftNotFound)

	err = r.DeleteGift(ctx, g.ID)
	assert.ErrorIs(t, err, repository.ErrGiftNotFound)
}

func TestListGiftsFilters(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		addGift(t, r, fmt.Sprintf("gift %d", i))
	}
	_, err := r.Reserve(ctx, 2, "Dana")
	require.NoError(t, err)

	all, err := r.ListGifts(ctx, repository.GiftFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := r.ListGifts(ctx, repository.GiftFilter{State: "available"})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	reserved, err := r.ListGifts(ctx, repository.GiftFilter{State: "reserved"})
	require.NoError(t, err)
	require.Len(t, reserved, 1)
	assert.Equal(t, uint64(2), reserved[0].ID)

	_, err = r.ListGifts(ctx, repository.GiftFilter{State: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPendingReceiptsQueue(t *testing.T) {
	r, _, _, _ := testRegistry(t)
	ctx := context.Background()

	a := addGift(t, r, "first")
	b := addGift(t, r, "second")
	for _, g := range []*model.Gift{a, b} {
		_, err := r.Reserve(ctx, g.ID, "Dana")
		require.NoError(t, err)
		submitReceipt(t, r, g.ID, "Dana")
	}

	pending, err := r.PendingReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// Approval removes the gift from the queue.
	_, err = r.DecideReceipt(ctx, a.ID, true)
	require.NoError(t, err)
	pending, err = r.PendingReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestAllowedReceiptType(t *testing.T) {
	assert.True(t, AllowedReceiptType("image/jpeg"))
	assert.True(t, AllowedReceiptType("IMAGE/PNG"))
	assert.True(t, AllowedReceiptType("application/pdf; charset=binary"))
	assert.False(t, AllowedReceiptType("text/html"))
	assert.False(t, AllowedReceiptType(""))
}

func TestSafeExt(t *testing.T) {
	assert.Equal(t, ".jpg", safeExt("receipt.JPG"))
	assert.Equal(t, ".pdf", safeExt(`C:\Users\me\order.pdf`))
	assert.Equal(t, "", safeExt("noext"))
	assert.Equal(t, "", safeExt("weird.j!g"))
	assert.Equal(t, "", safeExt("archive.reallylongext"))
}
