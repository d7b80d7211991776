package util

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		Email: "cook@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateJWT_HS256(t *testing.T) {
	token := signHS256(t, "secret", validClaims())

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "cook@example.com", claims.Email)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWT_RejectsExpiredAndSubjectless(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err := ValidateJWT(signHS256(t, "secret", expired), "secret")
	assert.Error(t, err)

	noSub := validClaims()
	noSub.Subject = ""
	_, err = ValidateJWT(signHS256(t, "secret", noSub), "secret")
	assert.Error(t, err)
}

func TestValidateJWT_ES256(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, validClaims()).SignedString(key)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, pemKey)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = ValidateJWT(token, "not a pem")
	assert.Error(t, err)
}

func TestValidateJWT_RejectsHMACSignedWithPublicKey(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	forged := validClaims()
	forged.Subject = "victim-user"
	claims, err := ValidateJWT(signHS256(t, pemKey, forged), pemKey)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateJWT_RejectsAsymmetricTokenForSharedSecret(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, validClaims()).SignedString(key)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	assert.Error(t, err)

	_, err = ValidateJWT(signHS256(t, "secret", validClaims()), "")
	assert.Error(t, err)
}
