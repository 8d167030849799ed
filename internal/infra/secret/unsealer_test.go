package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/LouYuanbo1/socialagent/internal/config"
	"github.com/LouYuanbo1/socialagent/internal/faults"
)

func seal(t *testing.T, key []byte, creds *Credentials) string {
	t.Helper()
	aead, err := chacha20poly1305.New(key)
	require.NoError(t, err)
	nonce := make([]byte, aead.NonceSize())
	_, err = rand.Read(nonce)
	require.NoError(t, err)
	plain, err := json.Marshal(creds)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(aead.Seal(nonce, nonce, plain, nil))
}

func testKeyConfig(t *testing.T) (*config.Config, []byte) {
	t.Helper()
	key := make([]byte, chacha20poly1305.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.Secret.KeyHex = hex.EncodeToString(key)
	return cfg, key
}

func TestUnsealRoundTrip(t *testing.T) {
	cfg, key := testKeyConfig(t)
	unsealer, err := InitUnsealer(cfg)
	require.NoError(t, err)

	ciphertext := seal(t, key, &Credentials{Username: "jane@example.com", Password: "s3cret"})
	creds, err := unsealer.Unseal(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
}

func TestUnsealRejectsTamperedCiphertext(t *testing.T) {
	cfg, key := testKeyConfig(t)
	unsealer, err := InitUnsealer(cfg)
	require.NoError(t, err)

	ciphertext := seal(t, key, &Credentials{Username: "jane", Password: "pw"})
	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0xff
	_, err = unsealer.Unseal(base64.StdEncoding.EncodeToString(raw))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Auth))
}

func TestUnsealRejectsWrongKey(t *testing.T) {
	cfg, _ := testKeyConfig(t)
	unsealer, err := InitUnsealer(cfg)
	require.NoError(t, err)

	otherKey := make([]byte, chacha20poly1305.KeySize)
	ciphertext := seal(t, otherKey, &Credentials{Username: "jane", Password: "pw"})
	_, err = unsealer.Unseal(ciphertext)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Auth))
}

func TestUnsealRejectsIncompleteCredentials(t *testing.T) {
	cfg, key := testKeyConfig(t)
	unsealer, err := InitUnsealer(cfg)
	require.NoError(t, err)

	ciphertext := seal(t, key, &Credentials{Username: "jane"})
	_, err = unsealer.Unseal(ciphertext)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.Auth))
}

func TestInitUnsealerRejectsBadKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.Secret.KeyHex = "abcd"
	_, err := InitUnsealer(cfg)
	require.Error(t, err)

	cfg.Secret.KeyHex = "zz"
	_, err = InitUnsealer(cfg)
	require.Error(t, err)
}
