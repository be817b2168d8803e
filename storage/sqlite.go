package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"holidaydeals/models"
)

// ErrNotFound is returned by delete operations when the row does not
// exist, regardless of backend.
var ErrNotFound = errors.New("not found")

// SQLiteStore is the default backing store: deals, hotels, providers,
// scrape runs and logs in one file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS providers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		base_url TEXT NOT NULL,
		logo_url TEXT,
		departure_airport TEXT,
		active BOOLEAN DEFAULT TRUE,
		last_scraped_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS hotels (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		destination TEXT NOT NULL,
		country TEXT,
		resort TEXT,
		rating REAL,
		description TEXT,
		image_url TEXT,
		amenities JSON,
		address TEXT,
		latitude REAL,
		longitude REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_id INTEGER REFERENCES providers(id),
		status TEXT NOT NULL DEFAULT 'pending',
		deals_found INTEGER DEFAULT 0,
		deals_new INTEGER DEFAULT 0,
		deals_updated INTEGER DEFAULT 0,
		started_at DATETIME,
		completed_at DATETIME,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS deals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider_id INTEGER REFERENCES providers(id),
		title TEXT NOT NULL,
		destination TEXT NOT NULL,
		country TEXT,
		resort TEXT,
		price REAL NOT NULL,
		price_per_person REAL,
		original_price REAL,
		currency TEXT DEFAULT 'GBP',
		departure_airport TEXT,
		departure_date TEXT,
		return_date TEXT,
		duration INTEGER,
		hotel_id INTEGER REFERENCES hotels(id),
		hotel_name TEXT,
		hotel_rating REAL,
		board_basis TEXT,
		image_url TEXT,
		images JSON,
		url TEXT NOT NULL UNIQUE,
		description TEXT,
		amenities JSON,
		review_score REAL,
		review_count INTEGER,
		reviews JSON,
		raw_data JSON,
		scrape_run_id INTEGER REFERENCES scrape_runs(id),
		created_at DATETIME,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		url TEXT
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_deals_url ON deals(url);
	CREATE INDEX IF NOT EXISTS idx_deals_destination ON deals(destination);
	CREATE INDEX IF NOT EXISTS idx_deals_price ON deals(price);
	CREATE INDEX IF NOT EXISTS idx_runs_provider ON scrape_runs(provider_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Providers
// =============================================================================

// EnsureProvider returns the provider id for a slug, creating the row
// on first use.
func (s *SQLiteStore) EnsureProvider(ctx context.Context, name, slug, baseURL, departureAirport string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM providers WHERE slug = ?`, slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO providers (name, slug, base_url, departure_airport, active)
		VALUES (?, ?, ?, ?, TRUE)`,
		name, slug, baseURL, departureAirport)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) TouchProvider(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE providers SET last_scraped_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// =============================================================================
// Deals
// =============================================================================

const dealColumns = `id, provider_id, title, destination, country, resort, price, price_per_person,
	original_price, currency, departure_airport, departure_date, return_date, duration,
	hotel_id, hotel_name, hotel_rating, board_basis, image_url, images, url, description,
	amenities, review_score, review_count, reviews, raw_data, scrape_run_id, created_at, updated_at`

func (s *SQLiteStore) FindDealByURL(ctx context.Context, url string) (*models.Deal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE url = ?`, url)
	return scanDeal(row)
}

func (s *SQLiteStore) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
	return scanDeal(row)
}

func (s *SQLiteStore) InsertDeal(ctx context.Context, c *models.DealCandidate, providerID, runID int64) (*models.Deal, error) {
	c.Normalize()
	now := time.Now()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO deals (provider_id, title, destination, country, resort, price, price_per_person,
			original_price, currency, departure_airport, departure_date, return_date, duration,
			hotel_name, hotel_rating, board_basis, image_url, images, url, description,
			amenities, review_score, review_count, reviews, raw_data, scrape_run_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		providerID, c.Title, c.Destination, c.Country, c.Resort, c.Price, c.PricePerPerson,
		c.OriginalPrice, c.Currency, c.DepartureAirport, c.DepartureDate, c.ReturnDate, c.Duration,
		c.HotelName, c.HotelRating, c.BoardBasis, c.ImageURL, marshalJSON(c.Images), c.URL, c.Description,
		marshalJSON(c.Amenities), c.ReviewScore, c.ReviewCount, marshalJSON(c.Reviews), nullableRaw(c.RawData),
		nullableID(runID), now, now)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetDeal(ctx, id)
}

// UpdateDeal overwrites every mutable field with the candidate's
// values. Identity, created_at and the original scrape_run_id stay put.
func (s *SQLiteStore) UpdateDeal(ctx context.Context, id int64, c *models.DealCandidate) (*models.Deal, error) {
	c.Normalize()

	_, err := s.db.ExecContext(ctx, `
		UPDATE deals SET title = ?, destination = ?, country = ?, resort = ?, price = ?,
			price_per_person = ?, original_price = ?, currency = ?, departure_airport = ?,
			departure_date = ?, return_date = ?, duration = ?, hotel_name = ?, hotel_rating = ?,
			board_basis = ?, image_url = ?, images = ?, description = ?, amenities = ?,
			review_score = ?, review_count = ?, reviews = ?, raw_data = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Destination, c.Country, c.Resort, c.Price,
		c.PricePerPerson, c.OriginalPrice, c.Currency, c.DepartureAirport,
		c.DepartureDate, c.ReturnDate, c.Duration, c.HotelName, c.HotelRating,
		c.BoardBasis, c.ImageURL, marshalJSON(c.Images), c.Description, marshalJSON(c.Amenities),
		c.ReviewScore, c.ReviewCount, marshalJSON(c.Reviews), nullableRaw(c.RawData), time.Now(),
		id)
	if err != nil {
		return nil, err
	}
	return s.GetDeal(ctx, id)
}

func (s *SQLiteStore) DeleteDeal(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleDealURLs returns deal URLs for a provider ordered by least
// recently updated, for the scheduler's refresh pass.
func (s *SQLiteStore) ListStaleDealURLs(ctx context.Context, providerID int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT url FROM deals WHERE provider_id = ?
		ORDER BY updated_at ASC LIMIT ?`, providerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) ListDeals(ctx context.Context, f models.DealFilter) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE 1=1`
	var args []any

	if f.Destination != "" {
		query += ` AND destination LIKE ?`
		args = append(args, "%"+f.Destination+"%")
	}
	if f.Country != "" {
		query += ` AND country = ?`
		args = append(args, f.Country)
	}
	if f.BoardBasis != "" {
		query += ` AND board_basis = ?`
		args = append(args, f.BoardBasis)
	}
	if f.DepartureAirport != "" {
		query += ` AND departure_airport = ?`
		args = append(args, f.DepartureAirport)
	}
	if f.MaxPrice != nil {
		query += ` AND price <= ?`
		args = append(args, *f.MaxPrice)
	}
	if f.MinRating != nil {
		query += ` AND hotel_rating >= ?`
		args = append(args, *f.MinRating)
	}

	switch f.Sort {
	case "price_asc":
		query += ` ORDER BY price ASC`
	case "price_desc":
		query += ` ORDER BY price DESC`
	default:
		query += ` ORDER BY created_at DESC`
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanDealRows(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

// =============================================================================
// Scrape runs
// =============================================================================

func (s *SQLiteStore) CreateRun(ctx context.Context, providerID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_runs (provider_id, status) VALUES (?, 'pending')`, providerID)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scrape_runs SET status = ?, deals_found = ?, deals_new = ?, deals_updated = ?,
			started_at = ?, completed_at = ?, error_message = ?
		WHERE id = ?`,
		run.Status, run.DealsFound, run.DealsNew, run.DealsUpdated,
		run.StartedAt, run.CompletedAt, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, provider_id, status, deals_found, deals_new, deals_updated,
			started_at, completed_at, COALESCE(error_message, ''), created_at
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	err := row.Scan(&run.ID, &run.ProviderID, &run.Status, &run.DealsFound, &run.DealsNew,
		&run.DealsUpdated, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, status, deals_found, deals_new, deals_updated,
			started_at, completed_at, COALESCE(error_message, ''), created_at
		FROM scrape_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var run models.ScrapeRun
		if err := rows.Scan(&run.ID, &run.ProviderID, &run.Status, &run.DealsFound, &run.DealsNew,
			&run.DealsUpdated, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message, url string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrape_logs (run_id, timestamp, level, message, url)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, url)
	return err
}

// =============================================================================
// Hotels
// =============================================================================

const hotelColumns = `id, name, destination, country, resort, rating, description, image_url,
	amenities, address, latitude, longitude, created_at, updated_at`

func (s *SQLiteStore) CreateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error) {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO hotels (name, destination, country, resort, rating, description, image_url,
			amenities, address, latitude, longitude, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Name, h.Destination, h.Country, h.Resort, h.Rating, h.Description, h.ImageURL,
		marshalJSON(h.Amenities), h.Address, h.Latitude, h.Longitude, now, now)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetHotel(ctx, id)
}

func (s *SQLiteStore) GetHotel(ctx context.Context, id int64) (*models.Hotel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+hotelColumns+` FROM hotels WHERE id = ?`, id)

	var h models.Hotel
	var amenities sql.NullString
	err := row.Scan(&h.ID, &h.Name, &h.Destination, &h.Country, &h.Resort, &h.Rating,
		&h.Description, &h.ImageURL, &amenities, &h.Address, &h.Latitude, &h.Longitude,
		&h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h.Amenities = unmarshalStrings(amenities)
	return &h, nil
}

func (s *SQLiteStore) ListHotels(ctx context.Context, destination string) ([]models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels`
	var args []any
	if destination != "" {
		query += ` WHERE destination LIKE ?`
		args = append(args, "%"+destination+"%")
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hotels []models.Hotel
	for rows.Next() {
		var h models.Hotel
		var amenities sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &h.Destination, &h.Country, &h.Resort, &h.Rating,
			&h.Description, &h.ImageURL, &amenities, &h.Address, &h.Latitude, &h.Longitude,
			&h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Amenities = unmarshalStrings(amenities)
		hotels = append(hotels, h)
	}
	return hotels, rows.Err()
}

func (s *SQLiteStore) UpdateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hotels SET name = ?, destination = ?, country = ?, resort = ?, rating = ?,
			description = ?, image_url = ?, amenities = ?, address = ?, latitude = ?,
			longitude = ?, updated_at = ?
		WHERE id = ?`,
		h.Name, h.Destination, h.Country, h.Resort, h.Rating,
		h.Description, h.ImageURL, marshalJSON(h.Amenities), h.Address, h.Latitude,
		h.Longitude, time.Now(), h.ID)
	if err != nil {
		return nil, err
	}
	return s.GetHotel(ctx, h.ID)
}

func (s *SQLiteStore) DeleteHotel(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM hotels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Scan helpers
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row *sql.Row) (*models.Deal, error) {
	deal, err := scanDealFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return deal, err
}

func scanDealRows(rows *sql.Rows) (*models.Deal, error) {
	return scanDealFrom(rows)
}

func scanDealFrom(row rowScanner) (*models.Deal, error) {
	var d models.Deal
	var images, amenities, reviews, rawData sql.NullString

	err := row.Scan(&d.ID, &d.ProviderID, &d.Title, &d.Destination, &d.Country, &d.Resort,
		&d.Price, &d.PricePerPerson, &d.OriginalPrice, &d.Currency, &d.DepartureAirport,
		&d.DepartureDate, &d.ReturnDate, &d.Duration, &d.HotelID, &d.HotelName, &d.HotelRating,
		&d.BoardBasis, &d.ImageURL, &images, &d.URL, &d.Description, &amenities,
		&d.ReviewScore, &d.ReviewCount, &reviews, &rawData, &d.ScrapeRunID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.Images = unmarshalStrings(images)
	d.Amenities = unmarshalStrings(amenities)
	if reviews.Valid && reviews.String != "" {
		if err := json.Unmarshal([]byte(reviews.String), &d.Reviews); err != nil {
			d.Reviews = nil
		}
	}
	if rawData.Valid {
		d.RawData = json.RawMessage(rawData.String)
	}
	return &d, nil
}

// marshalJSON renders a list column. Empty lists become NULL so the
// column stays queryable with IS NULL.
func marshalJSON(v any) any {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return nil
		}
	case []models.ReviewSnippet:
		if len(val) == 0 {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

// nullableID keeps scrape_run_id NULL for deals created outside a run.
func nullableID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}

func nullableRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func unmarshalStrings(col sql.NullString) []string {
	if !col.Valid || strings.TrimSpace(col.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(col.String), &out); err != nil {
		return nil
	}
	return out
}

// ResetAllData clears every table; used by tests and the reset CLI flag.
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{"scrape_logs", "deals", "scrape_runs", "hotels", "providers"}
	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
