// Package certs loads extra trusted CA certificates for talking to a
// biometric server behind a private CA.
package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrNoCertificates = errors.New("no usable certificates found")

// Manager reads the certificate files in a directory.
type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// LoadCertificates parses every .crt and .pem file under the directory.
// A file may hold several PEM blocks; non-certificate blocks are skipped.
func (m *Manager) LoadCertificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".crt") && !strings.HasSuffix(d.Name(), ".pem") {
			return nil
		}
		loaded, err := loadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		certs = append(certs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return certs, nil
}

// Pool builds a pool from the system roots plus every unexpired
// certificate in the directory.
func (m *Manager) Pool() (*x509.CertPool, error) {
	certs, err := m.LoadCertificates()
	if err != nil {
		return nil, err
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	added := 0
	for _, c := range certs {
		if IsExpired(c) {
			continue
		}
		pool.AddCert(c)
		added++
	}
	if added == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCertificates, m.dir)
	}
	return pool, nil
}

func loadFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path) //nolint:gosec // configured CA directory
	if err != nil {
		return nil, err
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, errors.New("failed to parse certificate PEM")
	}
	return certs, nil
}

// IsExpired reports whether cert is past its NotAfter.
func IsExpired(cert *x509.Certificate) bool {
	return cert.NotAfter.Before(time.Now())
}
