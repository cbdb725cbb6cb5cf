package auth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

// AccessTokenPayload is the identity a token is minted for. An empty JTI gets
// a random one.
type AccessTokenPayload struct {
	UserID int64
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the JWT body shared with the marketplace auth service.
type AccessTokenClaims struct {
	UserID int64          `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var _ jwt.ClaimsValidator = (*AccessTokenClaims)(nil)

// Validate runs after the registered claims checked out. A subject, when
// present, has to name the same user as user_id.
func (c *AccessTokenClaims) Validate() error {
	switch {
	case c.UserID <= 0:
		return errors.New("token carries no user id")
	case !c.Role.IsValid():
		return fmt.Errorf("token carries unknown role %q", c.Role)
	case c.Subject != "" && c.Subject != strconv.FormatInt(c.UserID, 10):
		return ErrInvalidSubject
	}
	return nil
}
