// Package store persists the domain records: the stock portfolio
// (stocks, holdings, alarms, recommendations), the bookmark directory and
// saved mailbox sweep configs. Backed by a single sqlite file.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the sqlite handle.
type Store struct {
	DB *sql.DB
}

// Open opens or creates the database at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

// ErrNotFound is returned by lookups and updates that match no row.
var ErrNotFound = sql.ErrNoRows

// Stock is one listed security, keyed by ISIN.
type Stock struct {
	ISIN     string  `json:"isin"`
	WKN      *string `json:"wkn,omitempty"`
	Symbol   *string `json:"symbol,omitempty"`
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Exchange *string `json:"exchange,omitempty"`
	Created  int64   `json:"created_at"`
	Updated  int64   `json:"updated_at"`
}

// Holding is the owned position in one stock. One row per stock.
type Holding struct {
	ID       int64    `json:"id"`
	ISIN     string   `json:"isin"`
	Quantity float64  `json:"quantity"`
	AvgPrice *float64 `json:"avg_price,omitempty"`
	Category int      `json:"category"`
	Notes    *string  `json:"notes,omitempty"`
	Created  int64    `json:"created_at"`
	Updated  int64    `json:"updated_at"`
}

// Alarm is a price threshold watch on a stock.
type Alarm struct {
	ID            int64    `json:"id"`
	ISIN          string   `json:"isin"`
	ThresholdHigh *float64 `json:"threshold_high,omitempty"`
	ThresholdLow  *float64 `json:"threshold_low,omitempty"`
	IsActive      bool     `json:"is_active"`
	Notes         *string  `json:"notes,omitempty"`
	Created       int64    `json:"created_at"`
	Updated       int64    `json:"updated_at"`
}

// Recommendation is an analyst/source call on a stock.
type Recommendation struct {
	ID              int64    `json:"id"`
	ISIN            string   `json:"isin"`
	Action          string   `json:"action"`
	Source          string   `json:"source"`
	TargetPrice     *float64 `json:"target_price,omitempty"`
	Confidence      int      `json:"confidence"`
	Strategy        int      `json:"strategy"`
	Reasoning       *string  `json:"reasoning,omitempty"`
	PublicationDate *string  `json:"publication_date,omitempty"`
	URL             *string  `json:"url,omitempty"`
	IsValid         bool     `json:"is_valid"`
	Created         int64    `json:"created_at"`
	Updated         int64    `json:"updated_at"`
}

// Stats is the portfolio dashboard aggregate.
type Stats struct {
	TotalStocks          int     `json:"total_stocks"`
	TotalAlarms          int     `json:"total_alarms"`
	TotalRecommendations int     `json:"total_recommendations"`
	TotalHoldingsValue   float64 `json:"total_holdings_value"`
}

// --- stocks ---

func (s *Store) CreateStock(ctx context.Context, st *Stock) error {
	now := time.Now().Unix()
	st.Created, st.Updated = now, now
	if st.Currency == "" {
		st.Currency = "EUR"
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO stocks (isin, wkn, symbol, name, currency, exchange, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ISIN, st.WKN, st.Symbol, st.Name, st.Currency, st.Exchange, st.Created, st.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert stock: %w", err)
	}
	return nil
}

func (s *Store) GetStock(ctx context.Context, isin string) (*Stock, error) {
	var st Stock
	err := s.DB.QueryRowContext(ctx, `
		SELECT isin, wkn, symbol, name, currency, exchange, created_at, updated_at
		FROM stocks WHERE isin = ?
	`, isin).Scan(&st.ISIN, &st.WKN, &st.Symbol, &st.Name, &st.Currency, &st.Exchange, &st.Created, &st.Updated)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStocks(ctx context.Context) ([]Stock, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT isin, wkn, symbol, name, currency, exchange, created_at, updated_at
		FROM stocks ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var out []Stock
	for rows.Next() {
		var st Stock
		if err := rows.Scan(&st.ISIN, &st.WKN, &st.Symbol, &st.Name, &st.Currency, &st.Exchange, &st.Created, &st.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) UpdateStock(ctx context.Context, st *Stock) error {
	st.Updated = time.Now().Unix()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE stocks SET wkn = ?, symbol = ?, name = ?, currency = ?, exchange = ?, updated_at = ?
		WHERE isin = ?
	`, st.WKN, st.Symbol, st.Name, st.Currency, st.Exchange, st.Updated, st.ISIN)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteStock(ctx context.Context, isin string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM stocks WHERE isin = ?`, isin)
	if err != nil {
		return fmt.Errorf("failed to delete stock: %w", err)
	}
	return requireRow(res)
}

// --- holdings ---

func (s *Store) CreateHolding(ctx context.Context, h *Holding) error {
	now := time.Now().Unix()
	h.Created, h.Updated = now, now
	if h.Category == 0 {
		h.Category = 99
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO holdings (isin, quantity, avg_price, category, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, h.ISIN, h.Quantity, h.AvgPrice, h.Category, h.Notes, h.Created, h.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	h.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListHoldings(ctx context.Context) ([]Holding, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, isin, quantity, avg_price, category, notes, created_at, updated_at
		FROM holdings ORDER BY quantity DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var out []Holding
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.ID, &h.ISIN, &h.Quantity, &h.AvgPrice, &h.Category, &h.Notes, &h.Created, &h.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) UpdateHolding(ctx context.Context, h *Holding) error {
	h.Updated = time.Now().Unix()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE holdings SET quantity = ?, avg_price = ?, category = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, h.Quantity, h.AvgPrice, h.Category, h.Notes, h.Updated, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteHolding(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return requireRow(res)
}

// --- alarms ---

func (s *Store) CreateAlarm(ctx context.Context, a *Alarm) error {
	now := time.Now().Unix()
	a.Created, a.Updated = now, now
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO alarms (isin, threshold_high, threshold_low, is_active, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ISIN, a.ThresholdHigh, a.ThresholdLow, a.IsActive, a.Notes, a.Created, a.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert alarm: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListAlarms(ctx context.Context) ([]Alarm, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, isin, threshold_high, threshold_low, is_active, notes, created_at, updated_at
		FROM alarms ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var out []Alarm
	for rows.Next() {
		var a Alarm
		if err := rows.Scan(&a.ID, &a.ISIN, &a.ThresholdHigh, &a.ThresholdLow, &a.IsActive, &a.Notes, &a.Created, &a.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) UpdateAlarm(ctx context.Context, a *Alarm) error {
	a.Updated = time.Now().Unix()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE alarms SET threshold_high = ?, threshold_low = ?, is_active = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`, a.ThresholdHigh, a.ThresholdLow, a.IsActive, a.Notes, a.Updated, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteAlarm(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}
	return requireRow(res)
}

// --- recommendations ---

func (s *Store) CreateRecommendation(ctx context.Context, r *Recommendation) error {
	now := time.Now().Unix()
	r.Created, r.Updated = now, now
	if r.Action == "" {
		r.Action = "hold"
	}
	if r.Confidence == 0 {
		r.Confidence = 3
	}
	if r.Strategy == 0 {
		r.Strategy = 99
	}
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO recommendations
		(isin, action, source, target_price, confidence, strategy, reasoning, publication_date, url, is_valid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ISIN, r.Action, r.Source, r.TargetPrice, r.Confidence, r.Strategy, r.Reasoning, r.PublicationDate, r.URL, r.IsValid, r.Created, r.Updated)
	if err != nil {
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListRecommendations(ctx context.Context) ([]Recommendation, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, isin, action, source, target_price, confidence, strategy, reasoning, publication_date, url, is_valid, created_at, updated_at
		FROM recommendations ORDER BY publication_date DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		var r Recommendation
		if err := rows.Scan(&r.ID, &r.ISIN, &r.Action, &r.Source, &r.TargetPrice, &r.Confidence, &r.Strategy,
			&r.Reasoning, &r.PublicationDate, &r.URL, &r.IsValid, &r.Created, &r.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRecommendation(ctx context.Context, r *Recommendation) error {
	r.Updated = time.Now().Unix()
	res, err := s.DB.ExecContext(ctx, `
		UPDATE recommendations
		SET action = ?, source = ?, target_price = ?, confidence = ?, strategy = ?,
		    reasoning = ?, publication_date = ?, url = ?, is_valid = ?, updated_at = ?
		WHERE id = ?
	`, r.Action, r.Source, r.TargetPrice, r.Confidence, r.Strategy, r.Reasoning, r.PublicationDate, r.URL, r.IsValid, r.Updated, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update recommendation: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteRecommendation(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM recommendations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}
	return requireRow(res)
}

// GetStats aggregates the dashboard numbers. Holdings value is
// quantity * average purchase price over priced positions.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM stocks),
			(SELECT COUNT(*) FROM alarms WHERE is_active = 1),
			(SELECT COUNT(*) FROM recommendations),
			(SELECT COALESCE(SUM(quantity * avg_price), 0) FROM holdings WHERE avg_price IS NOT NULL)
	`).Scan(&st.TotalStocks, &st.TotalAlarms, &st.TotalRecommendations, &st.TotalHoldingsValue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return &st, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
