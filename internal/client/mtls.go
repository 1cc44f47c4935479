package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Files written by Register inside its output directory.
const (
	CertFile = "client.crt"
	KeyFile  = "client.key"
)

func loadCAPool(caPath string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	return caPool, nil
}

// Register asks the server at baseURL to register login and stores the
// issued certificate and key in dir.
func Register(ctx context.Context, baseURL, login, caPath, dir string) error {
	caPool, err := loadCAPool(caPath)
	if err != nil {
		return err
	}
	c := New(baseURL, &http.Client{
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: caPool, MinVersion: tls.VersionTLS12}},
		Timeout:   10 * time.Second,
	})

	b, err := json.Marshal(map[string]string{"login": login})
	if err != nil {
		return err
	}
	var certData map[string]string
	if err := c.do(ctx, http.MethodPost, "/api/register", "application/json", bytes.NewReader(b), &certData); err != nil {
		return fmt.Errorf("register failed: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, CertFile), []byte(certData["cert"]), 0600); err != nil {
		return fmt.Errorf("failed to save %s: %w", CertFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, KeyFile), []byte(certData["key"]), 0600); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeyFile, err)
	}
	return nil
}

// LoadClientCertificate builds an HTTP client that presents the given
// certificate and trusts only the given CA.
func LoadClientCertificate(certFile, keyFile, caFile string) (*http.Client, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client cert/key: %w", err)
	}
	caPool, err := loadCAPool(caFile)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			RootCAs:      caPool,
			MinVersion:   tls.VersionTLS12,
		},
	}
	return &http.Client{Transport: transport, Timeout: 30 * time.Second}, nil
}
