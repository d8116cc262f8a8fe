package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT issued by the external identity
// provider. The backend only verifies and reads it.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email,omitempty"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
