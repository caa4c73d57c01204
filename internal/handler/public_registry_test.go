package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/service"
)

// stubStore is a minimal in-memory GiftStore for handler tests.
type stubStore struct {
	nextID uint64
	gifts  map[uint64]model.Gift
}

func newStubStore() *stubStore { return &stubStore{gifts: make(map[uint64]model.Gift)} }

func (s *stubStore) Create(ctx context.Context, g *model.Gift) error {
	s.nextID++
	g.ID = s.nextID
	s.gifts[g.ID] = *g
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id uint64) (*model.Gift, error) {
	g, ok := s.gifts[id]
	if !ok {
		return nil, repository.ErrGiftNotFound
	}
	out := g
	return &out, nil
}

func (s *stubStore) Update(ctx context.Context, g *model.Gift) error {
	if _, ok := s.gifts[g.ID]; !ok {
		return repository.ErrGiftNotFound
	}
	s.gifts[g.ID] = *g
	return nil
}

func (s *stubStore) Delete(ctx context.Context, id uint64) error {
	if _, ok := s.gifts[id]; !ok {
		return repository.ErrGiftNotFound
	}
	delete(s.gifts, id)
	return nil
}

func (s *stubStore) List(ctx context.Context, f repository.GiftFilter) ([]model.Gift, error) {
	out := make([]model.Gift, 0, len(s.gifts))
	for id := uint64(1); id <= s.nextID; id++ {
		g, ok := s.gifts[id]
		if !ok {
			continue
		}
		if f.State != "" && g.State().String() != f.State {
			continue
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *stubStore) ListPendingReceipts(ctx context.Context) ([]model.Gift, error) {
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

// stubBlobs stores nothing but remembers keys.
type stubBlobs struct{ refs map[string]bool }

func newStubBlobs() *stubBlobs { return &stubBlobs{refs: make(map[string]bool)} }

func (b *stubBlobs) Store(ctx context.Context, key string, content io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	ref := "mem://" + key
	b.refs[ref] = true
	return ref, nil
}

func (b *stubBlobs) Delete(ctx context.Context, ref string) error {
	delete(b.refs, ref)
	return nil
}

func testHandlers(t *testing.T) (*RegistryHandler, *AdminGiftHandler, *stubStore) {
	t.Helper()
	store := newStubStore()
	log := logrus.New()
	log.SetOutput(io.Discard)
	registry := service.NewRegistry(store, newStubBlobs(), nil, log)
	return NewRegistryHandler(registry, log), NewAdminGiftHandler(registry, log), store
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	require.NoError(t, h(c))
	return rec
}

func seedGift(t *testing.T, admin *AdminGiftHandler, name string) uint64 {
	t.Helper()
	rec := doJSON(t, admin.Create, http.MethodPost, "/v1/admin/gifts", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.ID
}

func TestReserveEndpoint(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	id := seedGift(t, admin, "fondue set")

	rec := doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		State      string `json:"state"`
		ReservedBy string `json:"reserved_by"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "reserved", out.State)
	assert.Equal(t, "Dana", out.ReservedBy)
	_ = id
}

func TestReserveEndpointErrors(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	seedGift(t, admin, "candles")

	rec := doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":""}`, "id", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "42")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitReceiptEndpoint(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	seedGift(t, admin, "serving tray")
	rec := doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Dana"))
	fw, err := mw.CreateFormFile("receipt", "order.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/gifts/:id/receipt", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, pub.SubmitReceipt(c))
	require.Equal(t, http.StatusOK, res.Code)

	var out struct {
		State      string  `json:"state"`
		ReceiptURL *string `json:"receipt_url"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	assert.Equal(t, "receipt_pending", out.State)
	// Receipt references are not exposed to guests.
	assert.Nil(t, out.ReceiptURL)
}

func TestDecisionEndpoint(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	seedGift(t, admin, "mirror")
	doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "1")

	// No receipt yet.
	rec := doJSON(t, admin.DecideReceipt, http.MethodPost, "/v1/admin/gifts/:id/receipt/decision", `{"decision":"APPROVED"}`, "id", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, admin.DecideReceipt, http.MethodPost, "/v1/admin/gifts/:id/receipt/decision", `{"decision":"MAYBE"}`, "id", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListGiftsEndpoint(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	seedGift(t, admin, "one")
	seedGift(t, admin, "two")
	doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "1")

	rec := doJSON(t, pub.ListGifts, http.MethodGet, "/v1/gifts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Gifts []giftResponse `json:"gifts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Gifts, 2)
	assert.Equal(t, "reserved", out.Gifts[0].State)
	assert.Equal(t, "available", out.Gifts[1].State)

	// Filtered by state via query string.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/gifts?state=available", nil)
	res := httptest.NewRecorder()
	c := e.NewContext(req, res)
	require.NoError(t, pub.ListGifts(c))
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &out))
	require.Len(t, out.Gifts, 1)
	assert.Equal(t, "two", out.Gifts[0].Name)
}

func TestReleaseEndpoint(t *testing.T) {
	pub, admin, _ := testHandlers(t)
	seedGift(t, admin, "bookends")
	doJSON(t, pub.Reserve, http.MethodPost, "/v1/gifts/:id/reserve", `{"name":"Dana"}`, "id", "1")

	rec := doJSON(t, admin.Release, http.MethodPost, "/v1/admin/gifts/:id/release", "", "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "available", out.State)
}
