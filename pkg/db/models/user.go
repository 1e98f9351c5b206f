package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/pkg/enums"
)

// User represents the canonical identity entity for both parties.
type User struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string             `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string             `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  string             `gorm:"column:display_name;not null" json:"display_name"`
	Phone        *string            `gorm:"column:phone" json:"phone,omitempty"`
	Role         enums.ActorRole    `gorm:"column:role;type:text;not null" json:"role"`
	Verified     bool               `gorm:"column:verified;not null;default:false" json:"verified"`
	VehicleType  *enums.VehicleType `gorm:"column:vehicle_type;type:text" json:"vehicle_type,omitempty"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time         `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
