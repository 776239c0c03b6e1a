package repository

import (
	"context"
	"fmt"

	"tourism-booking/internal/data/entity"
	"tourism-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// CatalogRepository resolves bookable services to their owning vendor.
type CatalogRepository interface {
	FindServiceByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	FindVendorByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error)
}

type catalogRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewCatalogRepository(db database.PgxIface, log *zap.Logger) CatalogRepository {
	return &catalogRepository{
		db:  db,
		log: log.With(zap.String("repository", "catalog")),
	}
}

func (r *catalogRepository) FindServiceByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	query := `
		SELECT id, vendor_id, category, name, is_active, created_at, updated_at, deleted_at
		FROM services
		WHERE id = $1 AND deleted_at IS NULL
	`

	var service entity.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.VendorID,
		&service.Category,
		&service.Name,
		&service.IsActive,
		&service.CreatedAt,
		&service.UpdatedAt,
		&service.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service by ID %s: %w", id.String(), err)
	}

	return &service, nil
}

func (r *catalogRepository) FindVendorByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error) {
	query := `
		SELECT id, name, email, is_active, created_at, updated_at, deleted_at
		FROM vendors
		WHERE id = $1 AND deleted_at IS NULL
	`

	var vendor entity.Vendor
	err := r.db.QueryRow(ctx, query, id).Scan(
		&vendor.ID,
		&vendor.Name,
		&vendor.Email,
		&vendor.IsActive,
		&vendor.CreatedAt,
		&vendor.UpdatedAt,
		&vendor.DeletedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find vendor by ID",
			zap.Error(err),
			zap.String("vendor_id", id.String()),
		)
		return nil, fmt.Errorf("find vendor by ID %s: %w", id.String(), err)
	}

	return &vendor, nil
}
