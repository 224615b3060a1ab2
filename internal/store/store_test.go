package store

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := DeriveKey(bytes.Repeat([]byte{7}, KeySize), "device-1")
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptAESGCM(t *testing.T) {
	key := testKey(t)
	plain := []byte("this is some test data")

	blob, err := EncryptAESGCM(key, plain)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "test data")

	got, err := DecryptAESGCM(key, blob)
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	blob[len(blob)-1] ^= 0xff
	_, err = DecryptAESGCM(key, blob)
	assert.Error(t, err)

	_, err = DecryptAESGCM(key, []byte{1, 2})
	assert.Error(t, err)
}

func TestDeriveKey_BoundToDevice(t *testing.T) {
	master := bytes.Repeat([]byte{1}, KeySize)

	a, err := DeriveKey(master, "device-a")
	require.NoError(t, err)
	b, err := DeriveKey(master, "device-b")
	require.NoError(t, err)
	again, err := DeriveKey(master, "device-a")
	require.NoError(t, err)

	assert.Len(t, a, KeySize)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, again)

	_, err = DeriveKey([]byte("short"), "device-a")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestReadMasterKey(t *testing.T) {
	hexKey, err := GenerateMasterKey()
	require.NoError(t, err)

	t.Run("env", func(t *testing.T) {
		t.Setenv(MasterKeyEnv, hexKey)
		key, err := ReadMasterKey("")
		require.NoError(t, err)
		assert.Len(t, key, KeySize)
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv(MasterKeyEnv, "")
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte(hexKey+"\n"), 0600))
		key, err := ReadMasterKey(path)
		require.NoError(t, err)
		assert.Len(t, key, KeySize)
	})

	t.Run("missing", func(t *testing.T) {
		t.Setenv(MasterKeyEnv, "")
		_, err := ReadMasterKey(filepath.Join(t.TempDir(), "absent.key"))
		assert.ErrorIs(t, err, ErrNoMasterKey)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv(MasterKeyEnv, strings.Repeat("ab", 8))
		_, err := ReadMasterKey("")
		assert.ErrorIs(t, err, ErrInvalidKeyLength)
	})
}

func TestSessionStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSessionStore(dir, testKey(t))
	require.NoError(t, err)

	sess := NewSession("http://127.0.0.1:5000", "alice", []*http.Cookie{{Name: "session", Value: "abc", Path: "/", HttpOnly: true}})
	path, err := s.Save(sess)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "abc")

	loaded, err := s.Load("http://127.0.0.1:5000")
	require.NoError(t, err)
	assert.Equal(t, "alice", loaded.Username)
	cookies := loaded.HTTPCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	require.NoError(t, s.Delete("http://127.0.0.1:5000"))
	_, err = s.Load("http://127.0.0.1:5000")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.NoError(t, s.Delete("http://127.0.0.1:5000"))
}

func TestSessionStore_WrongKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSessionStore(dir, testKey(t))
	require.NoError(t, err)
	_, err = s.Save(NewSession("http://a", "", nil))
	require.NoError(t, err)

	other, err := DeriveKey(bytes.Repeat([]byte{9}, KeySize), "device-1")
	require.NoError(t, err)
	s2, err := NewSessionStore(dir, other)
	require.NoError(t, err)

	_, err = s2.Load("http://a")
	assert.Error(t, err)
}

func TestDeviceFingerprint_NotEmpty(t *testing.T) {
	assert.NotEmpty(t, DeviceFingerprint())
}
