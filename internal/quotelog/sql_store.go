package quotelog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

const dateLayout = "2006-01-02"

// SQLStore keeps logged quotes in the application database.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// NextQuoteNumber returns the number following the highest generated one,
// starting at Q-1001.
func (s *SQLStore) NextQuoteNumber(ctx context.Context) (string, error) {
	var maxSeq sql.NullInt64
	if err := s.db.GetContext(ctx, &maxSeq, `SELECT MAX(seq) FROM quotes`); err != nil {
		return "", fmt.Errorf("read highest quote number: %w", err)
	}
	next := int64(firstNumber)
	if maxSeq.Valid && maxSeq.Int64 >= next {
		next = maxSeq.Int64 + 1
	}
	return FormatNumber(next), nil
}

// Write stores q, replacing the items of an earlier pricing run of the same
// quote number.
func (s *SQLStore) Write(ctx context.Context, q Quote) error {
	_, err := s.SaveQuote(ctx, q)
	return err
}

// SaveQuote upserts the quote header and rewrites its line records. Use it
// only for a number the caller already owns; CreateQuote refuses to touch an
// existing quote.
func (s *SQLStore) SaveQuote(ctx context.Context, q Quote) (int64, error) {
	return s.save(ctx, q, true)
}

// CreateQuote stores q under a number that must not be taken yet. A taken
// number is a CodeConflict.
func (s *SQLStore) CreateQuote(ctx context.Context, q Quote) (int64, error) {
	return s.save(ctx, q, false)
}

// Exists reports whether a quote with number is stored.
func (s *SQLStore) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM quotes WHERE number = ? LIMIT 1)`, strings.TrimSpace(number)); err != nil {
		return false, fmt.Errorf("check quote %s: %w", number, err)
	}
	return exists, nil
}

func (s *SQLStore) save(ctx context.Context, q Quote, replace bool) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin quote transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq sql.NullInt64
	if n, ok := ParseNumber(q.Number); ok {
		seq = sql.NullInt64{Int64: n, Valid: true}
	}

	onConflict := `DO NOTHING`
	if replace {
		onConflict = `DO UPDATE SET
			quote_date = excluded.quote_date,
			customer = excluded.customer,
			country = excluded.country,
			loyalty = excluded.loyalty,
			new_customer = excluded.new_customer,
			model = excluded.model,
			item_count = excluded.item_count,
			total = excluded.total`
	}

	var id int64
	err = tx.GetContext(ctx, &id, `
		INSERT INTO quotes (number, seq, quote_date, customer, country, loyalty, new_customer, model, item_count, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (number) `+onConflict+`
		RETURNING id
	`, q.Number, seq, q.QuoteDate.Format(dateLayout), q.Customer, q.Country, q.Loyalty,
		q.NewCustomer, q.Model, len(q.Items), q.Total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, pkgerrors.Newf(pkgerrors.CodeConflict, "quote %s already exists", q.Number).
			WithDetails(map[string]string{"quote_number": q.Number})
	}
	if err != nil {
		return 0, fmt.Errorf("upsert quote %s: %w", q.Number, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quote_log WHERE quote_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear quote log %s: %w", q.Number, err)
	}

	for _, rec := range q.Items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quote_log (
				quote_id, position, item_id, quantity, shape, material_family, grade,
				diameter_mm, length_mm, weight_kg, unit_price, line_total
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, rec.Position, rec.ItemID, rec.Quantity, rec.Shape, rec.Family, rec.Grade,
			rec.DiameterMM, rec.LengthMM, rec.WeightKg, rec.UnitPrice, rec.LineTotal); err != nil {
			return 0, fmt.Errorf("insert quote log %s item %s: %w", q.Number, rec.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit quote %s: %w", q.Number, err)
	}
	return id, nil
}

// Summary is one row of the quote history.
type Summary struct {
	Number    string  `db:"number" json:"number"`
	QuoteDate string  `db:"quote_date" json:"quote_date"`
	Customer  string  `db:"customer" json:"customer"`
	Country   string  `db:"country" json:"country"`
	ItemCount int     `db:"item_count" json:"item_count"`
	Total     float64 `db:"total" json:"total"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// ListQuotes returns logged quotes newest first, filtered by quote number
// or customer when query is not empty.
func (s *SQLStore) ListQuotes(ctx context.Context, query string) ([]Summary, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"

	quotes := make([]Summary, 0)
	if err := s.db.SelectContext(ctx, &quotes, `
		SELECT number, quote_date, customer, country, item_count, total, created_at
		FROM quotes
		WHERE (? = '' OR number LIKE ? OR customer LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search); err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

type quoteRow struct {
	ID          int64   `db:"id"`
	Number      string  `db:"number"`
	QuoteDate   string  `db:"quote_date"`
	Customer    string  `db:"customer"`
	Country     string  `db:"country"`
	Loyalty     float64 `db:"loyalty"`
	NewCustomer bool    `db:"new_customer"`
	Model       string  `db:"model"`
	Total       float64 `db:"total"`
}

// GetQuote loads one logged quote with its items in cart order.
func (s *SQLStore) GetQuote(ctx context.Context, number string) (Quote, error) {
	var row quoteRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, number, quote_date, customer, country, loyalty, new_customer, model, total
		FROM quotes
		WHERE number = ?
	`, strings.TrimSpace(number))
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "quote %s not found", number)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote %s: %w", number, err)
	}

	date, err := time.Parse(dateLayout, row.QuoteDate)
	if err != nil {
		return Quote{}, fmt.Errorf("parse quote date %q: %w", row.QuoteDate, err)
	}

	q := Quote{Header: Header{
		Number:      row.Number,
		QuoteDate:   date,
		Customer:    row.Customer,
		Country:     row.Country,
		Loyalty:     row.Loyalty,
		NewCustomer: row.NewCustomer,
		Model:       row.Model,
		Total:       row.Total,
	}}
	if err := s.db.SelectContext(ctx, &q.Items, `
		SELECT position, item_id, quantity, shape, material_family, grade,
			diameter_mm, length_mm, weight_kg, unit_price, line_total
		FROM quote_log
		WHERE quote_id = ?
		ORDER BY position
	`, row.ID); err != nil {
		return Quote{}, fmt.Errorf("load quote log %s: %w", number, err)
	}
	return q, nil
}
