package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/wedding-gift-registry/internal/model"
)

// GiftRepo provides CRUD operations over the `gifts` table.  Every state
// transition (reserve, receipt, decision, release) is written as one
// single-row UPDATE so the reservation, receipt and purchase columns can
// never be half-applied.  There is deliberately no compare-and-swap on
// reserve: two guests reserving concurrently both succeed and the last
// writer wins, which is acceptable for a household event site.  All
// timestamp fields are stored in UTC.
type GiftRepo struct {
	db *sql.DB
}

// NewGiftRepo returns a new GiftRepo bound to the given database.
func NewGiftRepo(db *sql.DB) *GiftRepo { return &GiftRepo{db: db} }

// DB exposes the underlying handle for callers that need transactions.
func (r *GiftRepo) DB() *sql.DB { return r.db }

const giftColumns = `id, name, description, price_cents, link, image_url, category,
    most_wanted, reserved, reserved_by, reserved_at, reservation_expires_at,
    receipt_url, receipt_status, purchased, created_at, updated_at`

// scanGift reads one row of giftColumns into a model.Gift, converting
// sql.Null* wrappers into pointers.
func scanGift(row interface{ Scan(...interface{}) error }) (*model.Gift, error) {
	var g model.Gift
	var (
		desc, link, imageURL, category, reservedBy, receiptURL, receiptStatus sql.NullString
		priceCents                                                            sql.NullInt64
		reservedAt, expiresAt                                                 sql.NullTime
	)
	if err := row.Scan(
		&g.ID, &g.Name, &desc, &priceCents, &link, &imageURL, &category,
		&g.MostWanted, &g.Reserved, &reservedBy, &reservedAt, &expiresAt,
		&receiptURL, &receiptStatus, &g.Purchased, &g.CreatedAt, &g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if desc.Valid {
		v := desc.String
		g.Description = &v
	}
	if priceCents.Valid {
		v := uint32(priceCents.Int64)
		g.PriceCents = &v
	}
	if link.Valid {
		v := link.String
		g.Link = &v
	}
	if imageURL.Valid {
		v := imageURL.String
		g.ImageURL = &v
	}
	if category.Valid {
		v := category.String
		g.Category = &v
	}
	if reservedBy.Valid {
		v := reservedBy.String
		g.ReservedBy = &v
	}
	if reservedAt.Valid {
		v := reservedAt.Time.UTC()
		g.ReservedAt = &v
	}
	if expiresAt.Valid {
		v := expiresAt.Time.UTC()
		g.ReservationExpiresAt = &v
	}
	if receiptURL.Valid {
		v := receiptURL.String
		g.ReceiptURL = &v
	}
	if receiptStatus.Valid {
		v := receiptStatus.String
		g.ReceiptStatus = &v
	}
	return &g, nil
}

// Create inserts a new gift and reads the full row back so generated id and
// timestamps are populated on the passed struct.
func (r *GiftRepo) Create(ctx context.Context, g *model.Gift) error {
	const q = `INSERT INTO gifts
        (name, description, price_cents, link, image_url, category, most_wanted)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		g.Name, g.Description, g.PriceCents, g.Link, g.ImageURL, g.Category, g.MostWanted)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*g = *created
	return nil
}

// GetByID returns the gift with the given id or ErrGiftNotFound.
func (r *GiftRepo) GetByID(ctx context.Context, id uint64) (*model.Gift, error) {
	const q = `SELECT ` + giftColumns + ` FROM gifts WHERE id = ?`
	g, err := scanGift(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrGiftNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Update writes every mutable column of the gift in one statement.  Because
// all transitions funnel through this single-row UPDATE, a reservation or
// receipt change is applied atomically or not at all.  Returns
// ErrGiftNotFound when the id no longer resolves.
func (r *GiftRepo) Update(ctx context.Context, g *model.Gift) error {
	const q = `UPDATE gifts SET
        name = ?, description = ?, price_cents = ?, link = ?, image_url = ?,
        category = ?, most_wanted = ?, reserved = ?, reserved_by = ?,
        reserved_at = ?, reservation_expires_at = ?, receipt_url = ?,
        receipt_status = ?, purchased = ?
        WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		g.Name, g.Description, g.PriceCents, g.Link, g.ImageURL,
		g.Category, g.MostWanted, g.Reserved, g.ReservedBy,
		nullableUTC(g.ReservedAt), nullableUTC(g.ReservationExpiresAt), g.ReceiptURL,
		g.ReceiptStatus, g.Purchased, g.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL also reports 0 when the row exists but nothing changed, so
		// distinguish by probing for the row.
		if _, getErr := r.GetByID(ctx, g.ID); getErr != nil {
			return getErr
		}
	}
	updated, err := r.GetByID(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *updated
	return nil
}

// Delete removes the gift unconditionally; reserved and purchased gifts may
// be deleted as well.  Returns ErrGiftNotFound when the id does not exist.
func (r *GiftRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM gifts WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrGiftNotFound
	}
	return nil
}

// GiftFilter narrows List results.  Zero values mean "no constraint".
// State accepts the lowercase names produced by model.GiftState.String.
type GiftFilter struct {
	State      string // "available", "reserved", "receipt_pending", "purchased"
	Category   string
	MostWanted *bool
}

// List returns gifts matching the filter in insertion order (id ascending).
func (r *GiftRepo) List(ctx context.Context, f GiftFilter) ([]model.Gift, error) {
	q := `SELECT ` + giftColumns + ` FROM gifts`
	var conds []string
	var args []interface{}
	switch f.State {
	case "available":
		conds = append(conds, "reserved = FALSE AND purchased = FALSE")
	case "reserved":
		conds = append(conds, "reserved = TRUE AND purchased = FALSE AND receipt_url IS NULL")
	case "receipt_pending":
		conds = append(conds, "purchased = FALSE AND receipt_url IS NOT NULL")
	case "purchased":
		conds = append(conds, "purchased = TRUE")
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.MostWanted != nil {
		conds = append(conds, "most_wanted = ?")
		args = append(args, *f.MostWanted)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id ASC"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	gifts := make([]model.Gift, 0)
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		gifts = append(gifts, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gifts, nil
}

// ListPendingReceipts returns all gifts with a receipt awaiting review,
// oldest submission first.
func (r *GiftRepo) ListPendingReceipts(ctx context.Context) ([]model.Gift, error) {
	const q = `SELECT ` + giftColumns + ` FROM gifts
        WHERE receipt_status = 'PENDING' AND purchased = FALSE
        ORDER BY updated_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	gifts := make([]model.Gift, 0)
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		gifts = append(gifts, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gifts, nil
}

// nullableUTC converts an optional time into a driver-friendly value in UTC.
func nullableUTC(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
