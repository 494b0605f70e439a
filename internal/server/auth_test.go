package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/itemmanager/internal/config"
)

const testIssuer = "login.test"

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testKey generates a signing key and returns it with its PEM public key.
func testKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func writeKey(t *testing.T, pub []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, pub, 0o600))
	return path
}

func testConfig(t *testing.T, keyPath string) *config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	cfg.JWT.Issuer = testIssuer
	cfg.JWT.PublicKeyFile = keyPath
	return cfg
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, mutate func(*Claims)) string {
	t.Helper()
	claims := Claims{
		UserID:      42,
		Email:       "alice@example.com",
		Username:    "alice",
		UserType:    "player",
		AuthMethod:  "password",
		Permissions: 0,
		Activated:   1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(&claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newTestValidator(t *testing.T, cfg *config.Config, client *redis.Client) *JWTValidator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	v, err := NewJWTValidator(ctx, cfg, client, discardLogger())
	require.NoError(t, err)
	return v
}

func TestValidateToken(t *testing.T) {
	client, mr := setupTestRedis(t)
	key, pub := testKey(t)
	cfg := testConfig(t, writeKey(t, pub))
	v := newTestValidator(t, cfg, client)
	ctx := context.Background()

	player, err := v.ValidateToken(ctx, signToken(t, key, nil))
	require.NoError(t, err)
	assert.Equal(t, "42", player.ID)
	assert.Equal(t, "alice", player.Username)
	assert.False(t, player.CanGrantItems())

	admin, err := v.ValidateToken(ctx, signToken(t, key, func(c *Claims) { c.Permissions = 2 }))
	require.NoError(t, err)
	assert.True(t, admin.CanGrantItems())

	_, err = v.ValidateToken(ctx, signToken(t, key, func(c *Claims) { c.Activated = 0 }))
	assert.ErrorIs(t, err, ErrUserInactive)

	_, err = v.ValidateToken(ctx, signToken(t, key, func(c *Claims) { c.Activated = -1 }))
	assert.ErrorIs(t, err, ErrUserBanned)

	_, err = v.ValidateToken(ctx, signToken(t, key, func(c *Claims) { c.Activated = -5 }))
	assert.ErrorIs(t, err, ErrUserInactive, "negative activation other than a ban is not active")

	_, err = v.ValidateToken(ctx, signToken(t, key, func(c *Claims) { c.Issuer = "elsewhere" }))
	assert.Error(t, err)

	_, err = v.ValidateToken(ctx, signToken(t, key, func(c *Claims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	}))
	assert.Error(t, err)

	other, _ := testKey(t)
	_, err = v.ValidateToken(ctx, signToken(t, other, nil))
	assert.Error(t, err)

	require.NoError(t, mr.Set(cfg.Redis.BlacklistPrefix+"42", "1"))
	_, err = v.ValidateToken(ctx, signToken(t, key, nil))
	assert.ErrorIs(t, err, ErrTokenBlacklisted)
}

func TestValidatorFetchesPublicKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	key, pub := testKey(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pub)
	}))
	defer ts.Close()

	cfg := testConfig(t, "")
	cfg.JWT.PublicKeyURL = ts.URL
	v := newTestValidator(t, cfg, client)

	_, err := v.ValidateToken(context.Background(), signToken(t, key, nil))
	assert.NoError(t, err)
}

func TestValidatorRejectsBadKey(t *testing.T) {
	client, _ := setupTestRedis(t)
	cfg := testConfig(t, writeKey(t, []byte("not a key")))

	_, err := NewJWTValidator(context.Background(), cfg, client, discardLogger())
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		query  string
		want   string
	}{
		{"protocol", http.Header{"Sec-Websocket-Protocol": {"access_token, abc"}}, "", "abc"},
		{"bearer", http.Header{"Authorization": {"Bearer abc"}}, "", "abc"},
		{"query", http.Header{}, "?token=abc", "abc"},
		{"missing", http.Header{}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws"+tt.query, nil)
			r.Header = tt.header
			assert.Equal(t, tt.want, extractTokenFromHeader(r))
		})
	}
}
