package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "artmarket",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: 3, Role: enums.UserRoleDeliveryPartner})
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, enums.UserRoleDeliveryPartner, claims.Role)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.Equal(t, "3", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 1, Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	cfg.Secret = "other"
	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{UserID: 1, Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseAccessTokenRejectsUnknownRole(t *testing.T) {
	cfg := testJWTConfig()
	claims := AccessTokenClaims{
		UserID: 1,
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, signed)
	require.Error(t, err)
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 0, Role: enums.UserRoleAdmin})
	assert.Error(t, err)
	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 1, Role: "owner"})
	assert.Error(t, err)

	cfg.Secret = ""
	_, err = MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 1, Role: enums.UserRoleAdmin})
	assert.Error(t, err)
}

func signClaims(t *testing.T, cfg config.JWTConfig, claims AccessTokenClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return signed
}

func TestParseAccessTokenRejectsSubjectMismatch(t *testing.T) {
	cfg := testJWTConfig()
	token := signClaims(t, cfg, AccessTokenClaims{
		UserID: 5,
		Role:   enums.UserRoleArtist,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "6",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, ErrInvalidSubject)
}

func TestParseAccessTokenRequiresExpiry(t *testing.T) {
	cfg := testJWTConfig()
	token := signClaims(t, cfg, AccessTokenClaims{
		UserID:           5,
		Role:             enums.UserRoleArtist,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer},
	})

	_, err := ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)
}

func TestParseAccessTokenToleratesSmallSkew(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ExpirationMinutes = 1
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Minute-10*time.Second), AccessTokenPayload{UserID: 2, Role: enums.UserRoleBuyer})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.NoError(t, err)
}

func TestParseAccessTokenWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: 2, Role: enums.UserRoleBuyer})
	require.NoError(t, err)

	cfg.Issuer = "someone-else"
	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	cfg.Secret = ""
	_, err = ParseAccessToken(cfg, token)
	require.ErrorIs(t, err, ErrSecretRequired)
}
