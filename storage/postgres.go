package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"holidaydeals/models"
)

// PostgresStore implements the same store contract as SQLiteStore for
// hosted deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

const pgDealColumns = `id, provider_id, title, destination, country, resort, price, price_per_person,
	original_price, currency, departure_airport, departure_date, return_date, duration,
	hotel_id, hotel_name, hotel_rating, board_basis, image_url, images, url, description,
	amenities, review_score, review_count, reviews, raw_data, scrape_run_id, created_at, updated_at`

func (s *PostgresStore) EnsureProvider(ctx context.Context, name, slug, baseURL, departureAirport string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO providers (name, slug, base_url, departure_airport, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		name, slug, baseURL, departureAirport).Scan(&id)
	return id, err
}

func (s *PostgresStore) TouchProvider(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE providers SET last_scraped_at = NOW() WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) FindDealByURL(ctx context.Context, url string) (*models.Deal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgDealColumns+` FROM deals WHERE url = $1`, url)
	return scanPgDeal(row)
}

func (s *PostgresStore) GetDeal(ctx context.Context, id int64) (*models.Deal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgDealColumns+` FROM deals WHERE id = $1`, id)
	return scanPgDeal(row)
}

func (s *PostgresStore) InsertDeal(ctx context.Context, c *models.DealCandidate, providerID, runID int64) (*models.Deal, error) {
	c.Normalize()
	now := time.Now()

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO deals (provider_id, title, destination, country, resort, price, price_per_person,
			original_price, currency, departure_airport, departure_date, return_date, duration,
			hotel_name, hotel_rating, board_basis, image_url, images, url, description,
			amenities, review_score, review_count, reviews, raw_data, scrape_run_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		RETURNING id`,
		providerID, c.Title, c.Destination, c.Country, c.Resort, c.Price, c.PricePerPerson,
		c.OriginalPrice, c.Currency, c.DepartureAirport, c.DepartureDate, c.ReturnDate, c.Duration,
		c.HotelName, c.HotelRating, c.BoardBasis, c.ImageURL, marshalJSON(c.Images), c.URL, c.Description,
		marshalJSON(c.Amenities), c.ReviewScore, c.ReviewCount, marshalJSON(c.Reviews), nullableRaw(c.RawData),
		nullableID(runID), now, now).Scan(&id)
	if err != nil {
		return nil, err
	}
	return s.GetDeal(ctx, id)
}

func (s *PostgresStore) UpdateDeal(ctx context.Context, id int64, c *models.DealCandidate) (*models.Deal, error) {
	c.Normalize()

	_, err := s.pool.Exec(ctx, `
		UPDATE deals SET title = $1, destination = $2, country = $3, resort = $4, price = $5,
			price_per_person = $6, original_price = $7, currency = $8, departure_airport = $9,
			departure_date = $10, return_date = $11, duration = $12, hotel_name = $13,
			hotel_rating = $14, board_basis = $15, image_url = $16, images = $17,
			description = $18, amenities = $19, review_score = $20, review_count = $21,
			reviews = $22, raw_data = $23, updated_at = NOW()
		WHERE id = $24`,
		c.Title, c.Destination, c.Country, c.Resort, c.Price,
		c.PricePerPerson, c.OriginalPrice, c.Currency, c.DepartureAirport,
		c.DepartureDate, c.ReturnDate, c.Duration, c.HotelName,
		c.HotelRating, c.BoardBasis, c.ImageURL, marshalJSON(c.Images),
		c.Description, marshalJSON(c.Amenities), c.ReviewScore, c.ReviewCount,
		marshalJSON(c.Reviews), nullableRaw(c.RawData), id)
	if err != nil {
		return nil, err
	}
	return s.GetDeal(ctx, id)
}

func (s *PostgresStore) DeleteDeal(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, f models.DealFilter) ([]models.Deal, error) {
	query := `SELECT ` + pgDealColumns + ` FROM deals WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Destination != "" {
		query += ` AND destination ILIKE ` + arg("%"+f.Destination+"%")
	}
	if f.Country != "" {
		query += ` AND country = ` + arg(f.Country)
	}
	if f.BoardBasis != "" {
		query += ` AND board_basis = ` + arg(f.BoardBasis)
	}
	if f.DepartureAirport != "" {
		query += ` AND departure_airport = ` + arg(f.DepartureAirport)
	}
	if f.MaxPrice != nil {
		query += ` AND price <= ` + arg(*f.MaxPrice)
	}
	if f.MinRating != nil {
		query += ` AND hotel_rating >= ` + arg(*f.MinRating)
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
	query += ` LIMIT ` + arg(limit) + ` OFFSET ` + arg(f.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		deal, err := scanPgDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *deal)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) ListStaleDealURLs(ctx context.Context, providerID int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT url FROM deals WHERE provider_id = $1
		ORDER BY updated_at ASC LIMIT $2`, providerID, limit)
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

func (s *PostgresStore) CreateRun(ctx context.Context, providerID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO scrape_runs (provider_id, status, created_at)
		VALUES ($1, 'pending', NOW())
		RETURNING id`, providerID).Scan(&id)
	return id, err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scrape_runs SET status = $1, deals_found = $2, deals_new = $3, deals_updated = $4,
			started_at = $5, completed_at = $6, error_message = $7
		WHERE id = $8`,
		run.Status, run.DealsFound, run.DealsNew, run.DealsUpdated,
		run.StartedAt, run.CompletedAt, run.ErrorMessage, run.ID)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id int64) (*models.ScrapeRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, provider_id, status, deals_found, deals_new, deals_updated,
			started_at, completed_at, COALESCE(error_message, ''), created_at
		FROM scrape_runs WHERE id = $1`, id)

	var run models.ScrapeRun
	err := row.Scan(&run.ID, &run.ProviderID, &run.Status, &run.DealsFound, &run.DealsNew,
		&run.DealsUpdated, &run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &run.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]models.ScrapeRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, provider_id, status, deals_found, deals_new, deals_updated,
			started_at, completed_at, COALESCE(error_message, ''), created_at
		FROM scrape_runs ORDER BY created_at DESC LIMIT $1`, limit)
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

func (s *PostgresStore) Log(ctx context.Context, runID *int64, level models.LogLevel, message, url string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_logs (run_id, timestamp, level, message, url)
		VALUES ($1, NOW(), $2, $3, $4)`,
		runID, level, message, url)
	return err
}

const pgHotelColumns = `id, name, destination, country, resort, rating, description, image_url,
	amenities, address, latitude, longitude, created_at, updated_at`

func (s *PostgresStore) CreateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO hotels (name, destination, country, resort, rating, description, image_url,
			amenities, address, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id`,
		h.Name, h.Destination, h.Country, h.Resort, h.Rating, h.Description, h.ImageURL,
		marshalJSON(h.Amenities), h.Address, h.Latitude, h.Longitude).Scan(&id)
	if err != nil {
		return nil, err
	}
	return s.GetHotel(ctx, id)
}

func (s *PostgresStore) GetHotel(ctx context.Context, id int64) (*models.Hotel, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgHotelColumns+` FROM hotels WHERE id = $1`, id)
	return scanPgHotel(row)
}

func (s *PostgresStore) ListHotels(ctx context.Context, destination string) ([]models.Hotel, error) {
	query := `SELECT ` + pgHotelColumns + ` FROM hotels`
	var args []any
	if destination != "" {
		query += ` WHERE destination ILIKE $1`
		args = append(args, "%"+destination+"%")
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hotels []models.Hotel
	for rows.Next() {
		h, err := scanPgHotel(rows)
		if err != nil {
			return nil, err
		}
		hotels = append(hotels, *h)
	}
	return hotels, rows.Err()
}

func (s *PostgresStore) UpdateHotel(ctx context.Context, h *models.Hotel) (*models.Hotel, error) {
	_, err := s.pool.Exec(ctx, `
		UPDATE hotels SET name = $1, destination = $2, country = $3, resort = $4, rating = $5,
			description = $6, image_url = $7, amenities = $8, address = $9, latitude = $10,
			longitude = $11, updated_at = NOW()
		WHERE id = $12`,
		h.Name, h.Destination, h.Country, h.Resort, h.Rating,
		h.Description, h.ImageURL, marshalJSON(h.Amenities), h.Address, h.Latitude,
		h.Longitude, h.ID)
	if err != nil {
		return nil, err
	}
	return s.GetHotel(ctx, h.ID)
}

func (s *PostgresStore) DeleteHotel(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM hotels WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgHotel(row pgx.Row) (*models.Hotel, error) {
	var h models.Hotel
	var amenities *string
	err := row.Scan(&h.ID, &h.Name, &h.Destination, &h.Country, &h.Resort, &h.Rating,
		&h.Description, &h.ImageURL, &amenities, &h.Address, &h.Latitude, &h.Longitude,
		&h.CreatedAt, &h.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if amenities != nil && strings.TrimSpace(*amenities) != "" {
		json.Unmarshal([]byte(*amenities), &h.Amenities)
	}
	return &h, nil
}

func scanPgDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	var images, amenities, reviews, rawData *string

	err := row.Scan(&d.ID, &d.ProviderID, &d.Title, &d.Destination, &d.Country, &d.Resort,
		&d.Price, &d.PricePerPerson, &d.OriginalPrice, &d.Currency, &d.DepartureAirport,
		&d.DepartureDate, &d.ReturnDate, &d.Duration, &d.HotelID, &d.HotelName, &d.HotelRating,
		&d.BoardBasis, &d.ImageURL, &images, &d.URL, &d.Description, &amenities,
		&d.ReviewScore, &d.ReviewCount, &reviews, &rawData, &d.ScrapeRunID, &d.CreatedAt, &d.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if images != nil {
		json.Unmarshal([]byte(*images), &d.Images)
	}
	if amenities != nil {
		json.Unmarshal([]byte(*amenities), &d.Amenities)
	}
	if reviews != nil {
		json.Unmarshal([]byte(*reviews), &d.Reviews)
	}
	if rawData != nil {
		d.RawData = json.RawMessage(*rawData)
	}
	return &d, nil
}

// Migrate creates the Postgres schema. Mirrors the SQLite migration.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS providers (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		base_url TEXT NOT NULL,
		logo_url TEXT,
		departure_airport TEXT,
		active BOOLEAN DEFAULT TRUE,
		last_scraped_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS hotels (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		destination TEXT NOT NULL,
		country TEXT,
		resort TEXT,
		rating DOUBLE PRECISION,
		description TEXT,
		image_url TEXT,
		amenities JSONB,
		address TEXT,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id BIGSERIAL PRIMARY KEY,
		provider_id BIGINT REFERENCES providers(id),
		status TEXT NOT NULL DEFAULT 'pending',
		deals_found INT DEFAULT 0,
		deals_new INT DEFAULT 0,
		deals_updated INT DEFAULT 0,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		error_message TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS deals (
		id BIGSERIAL PRIMARY KEY,
		provider_id BIGINT REFERENCES providers(id),
		title TEXT NOT NULL,
		destination TEXT NOT NULL,
		country TEXT,
		resort TEXT,
		price DOUBLE PRECISION NOT NULL,
		price_per_person DOUBLE PRECISION,
		original_price DOUBLE PRECISION,
		currency TEXT DEFAULT 'GBP',
		departure_airport TEXT,
		departure_date TEXT,
		return_date TEXT,
		duration INT,
		hotel_id BIGINT,
		hotel_name TEXT,
		hotel_rating DOUBLE PRECISION,
		board_basis TEXT,
		image_url TEXT,
		images JSONB,
		url TEXT NOT NULL UNIQUE,
		description TEXT,
		amenities JSONB,
		review_score DOUBLE PRECISION,
		review_count INT,
		reviews JSONB,
		raw_data JSONB,
		scrape_run_id BIGINT REFERENCES scrape_runs(id),
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id BIGSERIAL PRIMARY KEY,
		run_id BIGINT,
		timestamp TIMESTAMPTZ,
		level TEXT,
		message TEXT,
		url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_deals_destination ON deals(destination);
	CREATE INDEX IF NOT EXISTS idx_deals_price ON deals(price);
	CREATE INDEX IF NOT EXISTS idx_runs_provider ON scrape_runs(provider_id, created_at);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}
