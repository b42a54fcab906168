package daemon

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func generateKey(t *testing.T) gossh.PublicKey {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sshPub, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return sshPub
}

func TestNewRequiresAuth(t *testing.T) {
	_, err := New(Config{Addr: "127.0.0.1:0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no auth configured")
}

func TestNewPasswordOnly(t *testing.T) {
	srv, err := New(Config{Addr: "127.0.0.1:0", Password: "orbit"})
	require.NoError(t, err)
	require.NotNil(t, srv)
}

func TestKeyAuthorized(t *testing.T) {
	authorized := generateKey(t)
	other := generateKey(t)

	path := filepath.Join(t.TempDir(), "authorized_keys")
	require.NoError(t, os.WriteFile(path, gossh.MarshalAuthorizedKey(authorized), 0o600))

	assert.True(t, keyAuthorized(path, authorized))
	assert.False(t, keyAuthorized(path, other))
}

func TestKeyAuthorizedMultipleEntries(t *testing.T) {
	first := generateKey(t)
	second := generateKey(t)

	data := append(gossh.MarshalAuthorizedKey(first), gossh.MarshalAuthorizedKey(second)...)
	path := filepath.Join(t.TempDir(), "authorized_keys")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	assert.True(t, keyAuthorized(path, second))
}

func TestKeyAuthorizedMissingFile(t *testing.T) {
	key := generateKey(t)
	assert.False(t, keyAuthorized(filepath.Join(t.TempDir(), "nope"), key))
}
