package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/santia053/cafe-suroeste/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetPublishedProducts retrieves products visible in the storefront catalog
func (s *Store) GetPublishedProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_published = TRUE ORDER BY created_at DESC")
	return products, err
}

// GetAllProducts retrieves every product, paused ones included (admin view)
func (s *Store) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at DESC")
	return products, err
}

// CreateProduct inserts a full product row
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (
			id, name, origin_farm, origin_municipality, origin_altitude,
			variety, process, roast_level, tasting_notes, description,
			price, stock, gramaje, status, is_published, image_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		RETURNING created_at, updated_at`

	return s.db.QueryRowxContext(ctx, query,
		p.ID, p.Name, p.OriginFarm, p.OriginMunicipality, p.OriginAltitude,
		p.Variety, p.Process, p.RoastLevel, p.TastingNotes, p.Description,
		p.Price, p.Stock, p.Gramaje, p.Status, p.IsPublished, p.ImageURL,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

// UpdateProduct overwrites the full product row (admin save)
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET
			name = $1, origin_farm = $2, origin_municipality = $3,
			origin_altitude = $4, variety = $5, process = $6, roast_level = $7,
			tasting_notes = $8, description = $9, price = $10, stock = $11,
			gramaje = $12, status = $13, is_published = $14, image_url = $15,
			updated_at = NOW()
		WHERE id = $16`,
		p.Name, p.OriginFarm, p.OriginMunicipality, p.OriginAltitude,
		p.Variety, p.Process, p.RoastLevel, p.TastingNotes, p.Description,
		p.Price, p.Stock, p.Gramaje, p.Status, p.IsPublished, p.ImageURL, p.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product not found: %s", p.ID)
	}
	return nil
}

// DeleteProduct removes a product (explicit admin action only)
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product not found: %s", id)
	}
	return nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
