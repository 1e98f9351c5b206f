package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/pkg/db/models"
	"github.com/parceldrop/parceldrop-backend/pkg/enums"
)

// LoginRequest carries the credentials presented at the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	// ClientIP is populated by the transport layer, never by the caller.
	ClientIP string `json:"-"`
}

// LoginResponse is the payload returned on successful authentication.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	User        UserView `json:"user"`
}

// UserView is the public projection of a user record.
type UserView struct {
	ID          uuid.UUID          `json:"id"`
	Email       string             `json:"email"`
	DisplayName string             `json:"display_name"`
	Role        enums.ActorRole    `json:"role"`
	Verified    bool               `json:"verified"`
	VehicleType *enums.VehicleType `json:"vehicle_type,omitempty"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
}

// FromModel projects a user model into its public view.
func FromModel(user *models.User) UserView {
	return UserView{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Verified:    user.Verified,
		VehicleType: user.VehicleType,
		LastLoginAt: user.LastLoginAt,
	}
}
