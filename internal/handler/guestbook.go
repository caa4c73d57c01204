package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
	"github.com/iliyamo/wedding-gift-registry/internal/repository"
	"github.com/iliyamo/wedding-gift-registry/internal/storage"
)

// MaxPhotoBytes caps guestbook photo uploads.
const MaxPhotoBytes = 10 << 20

// photoExtensions maps accepted image content types to a storage key
// extension.  Anything outside this map is rejected.
var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// GuestbookHandler manages guest-submitted photos and song suggestions.
// Every submission starts PENDING; only APPROVED entries appear on the
// public feeds.  Unlike receipt rejection, a rejected guestbook entry
// keeps its REJECTED row so the couple can see what was filtered out.
type GuestbookHandler struct {
	entries *repository.GuestbookRepo
	blobs   storage.BlobStore
	log     *logrus.Logger
}

// NewGuestbookHandler wires the guestbook endpoints.
func NewGuestbookHandler(entries *repository.GuestbookRepo, blobs storage.BlobStore, log *logrus.Logger) *GuestbookHandler {
	return &GuestbookHandler{entries: entries, blobs: blobs, log: log}
}

type photoResponse struct {
	ID          uint64  `json:"id"`
	SubmittedBy string  `json:"submitted_by"`
	Caption     *string `json:"caption,omitempty"`
	FileRef     string  `json:"file_ref,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

// toPhotoResponse maps a photo for JSON output.  The file reference is
// only exposed to admins; public feeds serve files through a separate
// static route.
func toPhotoResponse(p *model.Photo, admin bool) photoResponse {
	out := photoResponse{
		ID:          p.ID,
		SubmittedBy: p.SubmittedBy,
		Caption:     p.Caption,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if admin {
		out.FileRef = p.FileRef
	}
	return out
}

type songResponse struct {
	ID          uint64  `json:"id"`
	SubmittedBy string  `json:"submitted_by"`
	Title       string  `json:"title"`
	Artist      *string `json:"artist,omitempty"`
	Link        *string `json:"link,omitempty"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

func toSongResponse(s *model.Song) songResponse {
	return songResponse{
		ID:          s.ID,
		SubmittedBy: s.SubmittedBy,
		Title:       s.Title,
		Artist:      s.Artist,
		Link:        s.Link,
		Status:      s.Status,
		CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SubmitPhoto accepts a multipart upload with "submitted_by", optional
// "caption" and the "photo" file.  The blob is stored before the row is
// inserted, mirroring the receipt flow.
func (h *GuestbookHandler) SubmitPhoto(c echo.Context) error {
	name := strings.TrimSpace(c.FormValue("submitted_by"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "submitted_by is required"})
	}
	var caption *string
	if raw := strings.TrimSpace(c.FormValue("caption")); raw != "" {
		caption = &raw
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "photo file is required"})
	}
	if fh.Size <= 0 || fh.Size > MaxPhotoBytes {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "photo file too large"})
	}
	ct := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := photoExtensions[ct]
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "photo must be a JPEG, PNG, GIF or WebP image"})
	}

	src, err := fh.Open()
	if err != nil {
		h.log.WithError(err).Error("failed to open uploaded photo")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	defer src.Close()

	ctx := c.Request().Context()
	key := fmt.Sprintf("guestbook/%s%s", uuid.NewString(), ext)
	ref, err := h.blobs.Store(ctx, key, src)
	if err != nil {
		h.log.WithError(err).Error("failed to store guestbook photo")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "file storage unavailable, please retry"})
	}

	p := &model.Photo{SubmittedBy: name, Caption: caption, FileRef: ref}
	if err := h.entries.CreatePhoto(ctx, p); err != nil {
		if delErr := h.blobs.Delete(ctx, ref); delErr != nil {
			h.log.WithError(delErr).WithField("ref", ref).Warn("failed to delete orphaned photo")
		}
		h.log.WithError(err).Error("failed to store photo row")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, toPhotoResponse(p, false))
}

// ListPhotos returns the approved photo feed.
func (h *GuestbookHandler) ListPhotos(c echo.Context) error {
	photos, err := h.entries.ListPhotos(c.Request().Context(), model.ModerationApproved)
	if err != nil {
		h.log.WithError(err).Error("failed to list photos")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]photoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, toPhotoResponse(&photos[i], false))
	}
	return c.JSON(http.StatusOK, echo.Map{"photos": out})
}

type songRequest struct {
	SubmittedBy string  `json:"submitted_by"`
	Title       string  `json:"title"`
	Artist      *string `json:"artist"`
	Link        *string `json:"link"`
}

// SubmitSong records a song suggestion for the playlist.
func (h *GuestbookHandler) SubmitSong(c echo.Context) error {
	var req songRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.SubmittedBy = strings.TrimSpace(req.SubmittedBy)
	req.Title = strings.TrimSpace(req.Title)
	if req.SubmittedBy == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "submitted_by is required"})
	}
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}

	s := &model.Song{
		SubmittedBy: req.SubmittedBy,
		Title:       req.Title,
		Artist:      req.Artist,
		Link:        req.Link,
	}
	if err := h.entries.CreateSong(c.Request().Context(), s); err != nil {
		h.log.WithError(err).Error("failed to store song suggestion")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, toSongResponse(s))
}

// ListSongs returns the approved playlist suggestions.
func (h *GuestbookHandler) ListSongs(c echo.Context) error {
	songs, err := h.entries.ListSongs(c.Request().Context(), model.ModerationApproved)
	if err != nil {
		h.log.WithError(err).Error("failed to list songs")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]songResponse, 0, len(songs))
	for i := range songs {
		out = append(out, toSongResponse(&songs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"songs": out})
}

// ListPending returns everything awaiting moderation.  Admin only.
func (h *GuestbookHandler) ListPending(c echo.Context) error {
	ctx := c.Request().Context()
	photos, err := h.entries.ListPhotos(ctx, model.ModerationPending)
	if err != nil {
		h.log.WithError(err).Error("failed to list pending photos")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	songs, err := h.entries.ListSongs(ctx, model.ModerationPending)
	if err != nil {
		h.log.WithError(err).Error("failed to list pending songs")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	photoOut := make([]photoResponse, 0, len(photos))
	for i := range photos {
		photoOut = append(photoOut, toPhotoResponse(&photos[i], true))
	}
	songOut := make([]songResponse, 0, len(songs))
	for i := range songs {
		songOut = append(songOut, toSongResponse(&songs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"photos": photoOut, "songs": songOut})
}

// moderation parses and validates a decision body shared by the photo and
// song decision endpoints.
func moderation(c echo.Context) (string, bool) {
	var req decisionRequest
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	if req.Decision != model.ModerationApproved && req.Decision != model.ModerationRejected {
		return "", false
	}
	return req.Decision, true
}

// DecidePhoto approves or rejects a pending photo.  Rejection deletes the
// stored file but keeps the row for the record.
func (h *GuestbookHandler) DecidePhoto(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid photo id"})
	}
	decision, ok := moderation(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be APPROVED or REJECTED"})
	}

	ctx := c.Request().Context()
	photo, err := h.entries.GetPhoto(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "photo not found"})
		}
		h.log.WithError(err).Error("failed to load photo")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.entries.SetPhotoStatus(ctx, id, decision); err != nil {
		h.log.WithError(err).Error("failed to update photo status")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if decision == model.ModerationRejected {
		if err := h.blobs.Delete(ctx, photo.FileRef); err != nil {
			h.log.WithError(err).WithField("ref", photo.FileRef).Warn("failed to delete rejected photo")
		}
	}
	photo.Status = decision
	return c.JSON(http.StatusOK, toPhotoResponse(photo, true))
}

// DecideSong approves or rejects a pending song suggestion.
func (h *GuestbookHandler) DecideSong(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid song id"})
	}
	decision, ok := moderation(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "decision must be APPROVED or REJECTED"})
	}

	ctx := c.Request().Context()
	song, err := h.entries.GetSong(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSongNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "song not found"})
		}
		h.log.WithError(err).Error("failed to load song")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.entries.SetSongStatus(ctx, id, decision); err != nil {
		h.log.WithError(err).Error("failed to update song status")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	song.Status = decision
	return c.JSON(http.StatusOK, toSongResponse(song))
}
