package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
)

// GuestbookRepo persists guest-submitted photos and song suggestions along
// with their moderation status.  Status changes are single-row UPDATEs, the
// same discipline used for gifts.
type GuestbookRepo struct {
	db *sql.DB
}

// NewGuestbookRepo returns a new GuestbookRepo bound to the given database.
func NewGuestbookRepo(db *sql.DB) *GuestbookRepo { return &GuestbookRepo{db: db} }

// CreatePhoto inserts a pending photo row and populates id and timestamps.
func (r *GuestbookRepo) CreatePhoto(ctx context.Context, p *model.Photo) error {
	const q = `INSERT INTO guestbook_photos (submitted_by, caption, file_ref, status)
        VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.SubmittedBy, p.Caption, p.FileRef, model.ModerationPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Status = model.ModerationPending
	const sel = `SELECT created_at, updated_at FROM guestbook_photos WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// GetPhoto returns one photo or ErrPhotoNotFound.
func (r *GuestbookRepo) GetPhoto(ctx context.Context, id uint64) (*model.Photo, error) {
	const q = `SELECT id, submitted_by, caption, file_ref, status, created_at, updated_at
        FROM guestbook_photos WHERE id = ?`
	var p model.Photo
	var caption sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.SubmittedBy, &caption, &p.FileRef, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPhotoNotFound
	}
	if err != nil {
		return nil, err
	}
	if caption.Valid {
		c := caption.String
		p.Caption = &c
	}
	return &p, nil
}

// ListPhotos returns photos with the given status in insertion order.  An
// empty status returns everything.
func (r *GuestbookRepo) ListPhotos(ctx context.Context, status string) ([]model.Photo, error) {
	q := `SELECT id, submitted_by, caption, file_ref, status, created_at, updated_at
        FROM guestbook_photos`
	var args []interface{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	photos := make([]model.Photo, 0)
	for rows.Next() {
		var p model.Photo
		var caption sql.NullString
		if err := rows.Scan(&p.ID, &p.SubmittedBy, &caption, &p.FileRef, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if caption.Valid {
			c := caption.String
			p.Caption = &c
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

// SetPhotoStatus updates the moderation status of one photo.  Returns
// ErrPhotoNotFound when the id does not resolve.
func (r *GuestbookRepo) SetPhotoStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE guestbook_photos SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetPhoto(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// CreateSong inserts a pending song suggestion.
func (r *GuestbookRepo) CreateSong(ctx context.Context, s *model.Song) error {
	const q = `INSERT INTO guestbook_songs (submitted_by, title, artist, link, status)
        VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.SubmittedBy, s.Title, s.Artist, s.Link, model.ModerationPending)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	s.Status = model.ModerationPending
	const sel = `SELECT created_at, updated_at FROM guestbook_songs WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// GetSong returns one song suggestion or ErrSongNotFound.
func (r *GuestbookRepo) GetSong(ctx context.Context, id uint64) (*model.Song, error) {
	const q = `SELECT id, submitted_by, title, artist, link, status, created_at, updated_at
        FROM guestbook_songs WHERE id = ?`
	var s model.Song
	var artist, link sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.SubmittedBy, &s.Title, &artist, &link, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	if artist.Valid {
		a := artist.String
		s.Artist = &a
	}
	if link.Valid {
		l := link.String
		s.Link = &l
	}
	return &s, nil
}

// ListSongs returns song suggestions with the given status in insertion
// order.  An empty status returns everything.
func (r *GuestbookRepo) ListSongs(ctx context.Context, status string) ([]model.Song, error) {
	q := `SELECT id, submitted_by, title, artist, link, status, created_at, updated_at
        FROM guestbook_songs`
	var args []interface{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	songs := make([]model.Song, 0)
	for rows.Next() {
		var s model.Song
		var artist, link sql.NullString
		if err := rows.Scan(&s.ID, &s.SubmittedBy, &s.Title, &artist, &link, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if artist.Valid {
			a := artist.String
			s.Artist = &a
		}
		if link.Valid {
			l := link.String
			s.Link = &l
		}
		songs = append(songs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return songs, nil
}

// SetSongStatus updates the moderation status of one song suggestion.
func (r *GuestbookRepo) SetSongStatus(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE guestbook_songs SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := r.GetSong(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}
