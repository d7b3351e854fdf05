package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsignedToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + "."
}

func TestValidateToken_VerificationDisabled(t *testing.T) {
	client, err := NewJWKSClient(&JWKSConfig{EnableVerification: false})
	require.NoError(t, err)
	defer client.Close()

	claims, err := client.ValidateToken(unsignedToken(`{"sub":"operator-1","tid":"tenant-a"}`))
	require.NoError(t, err)

	assert.Equal(t, "operator-1", claims.Subject)
	assert.Equal(t, "tenant-a", claims.TenantID)
}

func TestValidateToken_VerificationDisabledMalformed(t *testing.T) {
	client, err := NewJWKSClient(&JWKSConfig{EnableVerification: false})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
