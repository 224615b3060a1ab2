// Package store keeps the server session cookie between CLI runs, encrypted
// at rest with a key derived from the master key.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrNoSession = errors.New("no saved session")

// Cookie is the persisted subset of an http.Cookie.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

// Session is what gets written per server.
type Session struct {
	Server   string    `json:"server"`
	Username string    `json:"username,omitempty"`
	Cookies  []Cookie  `json:"cookies"`
	SavedAt  time.Time `json:"saved_at"`
}

// HTTPCookies converts the saved cookies back for a cookie jar.
func (s *Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out
}

// NewSession captures cookies for server.
func NewSession(server, username string, cookies []*http.Cookie) *Session {
	s := &Session{Server: server, Username: username, SavedAt: time.Now().UTC()}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return s
}

// SessionStore writes one encrypted file per server under dir.
type SessionStore struct {
	dir string
	key []byte
	mu  sync.Mutex
}

// NewSessionStore uses key as-is; see DeriveKey.
func NewSessionStore(dir string, key []byte) (*SessionStore, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}
	return &SessionStore{dir: dir, key: key}, nil
}

// Open reads the master key, derives the device-bound store key and opens
// the store at dir.
func Open(dir, masterKeyPath string) (*SessionStore, error) {
	master, err := ReadMasterKey(masterKeyPath)
	if err != nil {
		return nil, err
	}
	key, err := DeriveKey(master, DeviceFingerprint())
	if err != nil {
		return nil, err
	}
	return NewSessionStore(dir, key)
}

func (s *SessionStore) path(server string) string {
	sum := sha256.Sum256([]byte(server))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:8])+".session.enc")
}

func (s *SessionStore) Save(sess *Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plain, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", err
	}
	enc, err := EncryptAESGCM(s.key, plain)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return "", err
	}
	filename := s.path(sess.Server)
	if err := os.WriteFile(filename, enc, 0600); err != nil {
		return "", err
	}
	return filename, nil
}

func (s *SessionStore) Load(server string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path(server))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	plain, err := DecryptAESGCM(s.key, blob)
	if err != nil {
		return nil, fmt.Errorf("decrypt session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(plain, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the saved session; a missing file is not an error.
func (s *SessionStore) Delete(server string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(server)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
