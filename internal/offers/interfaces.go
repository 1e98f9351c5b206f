package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
)

// Repository defines persistence operations for the offers table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)

	// Claim performs the atomic accept: the update applies only while the
	// stored row is still open and unassigned. Returns false when the
	// condition no longer holds.
	Claim(ctx context.Context, offer *models.Offer, riderID uuid.UUID, updates map[string]any) (bool, error)

	// ApplyTransition conditionally updates the row while its status still
	// equals from. Returns false when a concurrent writer got there first.
	ApplyTransition(ctx context.Context, offerID uuid.UUID, from enums.OfferStatus, updates map[string]any) (bool, error)

	ListByBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters BusinessOfferFilters) (*OfferList, error)
	ListActiveByRider(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error)
	ListOpen(ctx context.Context, query OpenOfferQuery) ([]models.Offer, error)
}
