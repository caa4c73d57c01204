package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
)

// RSVPRepo persists invitation replies.  Replies are append-mostly: guests
// create them, the couple reads them, nothing else mutates them.
type RSVPRepo struct {
	db *sql.DB
}

// NewRSVPRepo returns a new RSVPRepo bound to the given database.
func NewRSVPRepo(db *sql.DB) *RSVPRepo { return &RSVPRepo{db: db} }

// Create inserts a reply and populates the generated id and timestamp.
func (r *RSVPRepo) Create(ctx context.Context, v *model.RSVP) error {
	const q = `INSERT INTO rsvps (name, attending, party_size, note) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, v.Name, v.Attending, v.PartySize, v.Note)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	const sel = `SELECT created_at FROM rsvps WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, v.ID).Scan(&v.CreatedAt)
}

// List returns replies in insertion order.  When attending is non-nil the
// result is restricted to that answer.
func (r *RSVPRepo) List(ctx context.Context, attending *bool) ([]model.RSVP, error) {
	q := `SELECT id, name, attending, party_size, note, created_at FROM rsvps`
	var args []interface{}
	if attending != nil {
		q += ` WHERE attending = ?`
		args = append(args, *attending)
	}
	q += ` ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	replies := make([]model.RSVP, 0)
	for rows.Next() {
		var v model.RSVP
		var note sql.NullString
		if err := rows.Scan(&v.ID, &v.Name, &v.Attending, &v.PartySize, &note, &v.CreatedAt); err != nil {
			return nil, err
		}
		if note.Valid {
			n := note.String
			v.Note = &n
		}
		replies = append(replies, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return replies, nil
}

// Headcount returns the total number of attending people across all
// affirmative replies.
func (r *RSVPRepo) Headcount(ctx context.Context) (uint32, error) {
	const q = `SELECT COALESCE(SUM(party_size), 0) FROM rsvps WHERE attending = TRUE`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
