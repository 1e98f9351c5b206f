package offers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
	"github.com/parceldrop/parceldrop-backend/pkg/pagination"
	"github.com/parceldrop/parceldrop-backend/pkg/types"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an offers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) (*models.Offer, error) {
	if err := r.db.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// marshalHistory renders the audit trail for a raw column update. Struct
// writes go through the gorm serializer; map-based updates do not.
func marshalHistory(history types.StatusHistory) (string, error) {
	raw, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("marshal status history: %w", err)
	}
	return string(raw), nil
}

func (r *repository) Claim(ctx context.Context, offer *models.Offer, riderID uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status = ? AND accepted_by IS NULL", offer.ID, enums.OfferStatusOpen).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ApplyTransition(ctx context.Context, offerID uuid.UUID, from enums.OfferStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status = ?", offerID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID, params pagination.Params, filters BusinessOfferFilters) (*OfferList, error) {
	params = params.Normalize()

	query := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("business_id = ?", businessID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var offers []models.Offer
	err := query.
		Order("created_at DESC, id ASC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&offers).Error
	if err != nil {
		return nil, err
	}

	return &OfferList{
		Offers:     offers,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.TotalPages(total, params.Limit),
	}, nil
}

func (r *repository) ListActiveByRider(ctx context.Context, riderID uuid.UUID) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("accepted_by = ? AND status IN ?", riderID, []enums.OfferStatus{
			enums.OfferStatusAccepted,
			enums.OfferStatusPickedUp,
			enums.OfferStatusInTransit,
			enums.OfferStatusDelivered,
		}).
		Order("accepted_at ASC, id ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) ListOpen(ctx context.Context, q OpenOfferQuery) ([]models.Offer, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.OfferStatusOpen).
		Where("pickup_lng BETWEEN ? AND ?", q.MinLng, q.MaxLng).
		Where("pickup_lat BETWEEN ? AND ?", q.MinLat, q.MaxLat)

	if q.MinAmount != nil {
		query = query.Where("payment_amount >= ?", *q.MinAmount)
	}
	if q.MaxAmount != nil {
		query = query.Where("payment_amount <= ?", *q.MaxAmount)
	}
	if q.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *q.PaymentMethod)
	}
	if q.Fragile != nil {
		query = query.Where("fragile = ?", *q.Fragile)
	}
	if q.MaxWeightKg != nil {
		query = query.Where("weight_kg <= ?", *q.MaxWeightKg)
	}
	if q.MaxLengthCm != nil {
		query = query.Where("length_cm <= ?", *q.MaxLengthCm)
	}
	if q.MaxWidthCm != nil {
		query = query.Where("width_cm <= ?", *q.MaxWidthCm)
	}
	if q.MaxHeightCm != nil {
		query = query.Where("height_cm <= ?", *q.MaxHeightCm)
	}
	if q.BusinessID != nil {
		query = query.Where("business_id = ?", *q.BusinessID)
	}
	if q.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *q.CreatedFrom)
	}
	if q.CreatedTo != nil {
		query = query.Where("created_at <= ?", *q.CreatedTo)
	}
	if q.PickupWindowOpenAt != nil {
		query = query.Where("pickup_window_end IS NULL OR pickup_window_end >= ?", *q.PickupWindowOpenAt)
	}
	if q.DeliveryWindowOpenAt != nil {
		query = query.Where("delivery_window_end IS NULL OR delivery_window_end >= ?", *q.DeliveryWindowOpenAt)
	}
	if q.FetchCap > 0 {
		query = query.Limit(q.FetchCap)
	}

	var offers []models.Offer
	if err := query.Order("id ASC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}
