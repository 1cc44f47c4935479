// Package certgen manages the certificate authority of the vault service:
// it creates the CA and server bundle, loads the CA back from disk and
// issues owner client certificates whose Common Name is the owner identifier.
package certgen

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// File names of the bundle inside a certificate directory.
const (
	CACertFile     = "ca.crt"
	CAKeyFile      = "ca.key"
	ServerCertFile = "server.crt"
	ServerKeyFile  = "server.key"
)

// CAName is the Common Name of generated authorities.
const CAName = "vaultkeeper CA"

// LoadCACredentials loads a CA certificate and its private key from PEM files.
// It returns the parsed *x509.Certificate, the private key (either *ecdsa.PrivateKey or *rsa.PrivateKey),
// or an error if reading or parsing fails.
func LoadCACredentials(certPath, keyPath string) (*x509.Certificate, any, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read ca cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read ca key: %w", err)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return nil, nil, errors.New("invalid CA cert PEM")
	}
	caCert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse ca cert: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, nil, errors.New("invalid CA key PEM")
	}
	var caKey any
	switch keyBlock.Type {
	case "EC PRIVATE KEY":
		caKey, err = x509.ParseECPrivateKey(keyBlock.Bytes)
	case "RSA PRIVATE KEY":
		caKey, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	default:
		return nil, nil, fmt.Errorf("unsupported key type: %s", keyBlock.Type)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse ca key: %w", err)
	}

	return caCert, caKey, nil
}

// LoadCA loads the authority stored in dir.
func LoadCA(dir string) (*x509.Certificate, any, error) {
	return LoadCACredentials(filepath.Join(dir, CACertFile), filepath.Join(dir, CAKeyFile))
}

// GenerateCA creates a self-signed ECDSA P-256 authority valid for ten years.
// It returns the parsed certificate and PEM encodings of the certificate and key.
func GenerateCA() (*x509.Certificate, *ecdsa.PrivateKey, []byte, []byte, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("gen ca key: %w", err)
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: CAName},
		NotBefore:             time.Now().Add(-1 * time.Minute),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("create ca cert: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("parse ca cert: %w", err)
	}
	certPEM, keyPEM, err := encode(der, priv)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cert, priv, certPEM, keyPEM, nil
}

// IssueClientCertificate generates an ECDSA P-256 client certificate for
// commonName, signed by the provided CA certificate and key.
// It returns the PEM-encoded certificate and private key, or an error.
func IssueClientCertificate(commonName string, caCert *x509.Certificate, caKey any) ([]byte, []byte, error) {
	return issue(commonName, nil, []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}, caCert, caKey)
}

// IssueServerCertificate generates a server certificate covering hosts.
// Entries that parse as IP addresses become IP SANs, the rest DNS SANs.
func IssueServerCertificate(hosts []string, caCert *x509.Certificate, caKey any) ([]byte, []byte, error) {
	if len(hosts) == 0 {
		return nil, nil, errors.New("issue server cert: no hosts")
	}
	return issue(hosts[0], hosts, []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}, caCert, caKey)
}

// EnsureBundle makes sure dir holds a CA and a server certificate for
// hosts. Existing files are kept. It reports whether anything was created.
func EnsureBundle(dir string, hosts []string) (bool, error) {
	if exists(filepath.Join(dir, CACertFile)) && exists(filepath.Join(dir, CAKeyFile)) &&
		exists(filepath.Join(dir, ServerCertFile)) && exists(filepath.Join(dir, ServerKeyFile)) {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, fmt.Errorf("create cert dir: %w", err)
	}

	var (
		caCert *x509.Certificate
		caKey  any
		err    error
	)
	if exists(filepath.Join(dir, CACertFile)) && exists(filepath.Join(dir, CAKeyFile)) {
		caCert, caKey, err = LoadCA(dir)
		if err != nil {
			return false, err
		}
	} else {
		var certPEM, keyPEM []byte
		caCert, caKey, certPEM, keyPEM, err = GenerateCA()
		if err != nil {
			return false, err
		}
		if err := WritePair(dir, CACertFile, CAKeyFile, certPEM, keyPEM); err != nil {
			return false, err
		}
	}

	certPEM, keyPEM, err := IssueServerCertificate(hosts, caCert, caKey)
	if err != nil {
		return false, err
	}
	if err := WritePair(dir, ServerCertFile, ServerKeyFile, certPEM, keyPEM); err != nil {
		return false, err
	}
	return true, nil
}

// ServerTLSConfig loads the server certificate from dir and verifies
// client certificates against the CA there. Clients without a
// certificate are let through so that they can register.
func ServerTLSConfig(dir string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(filepath.Join(dir, ServerCertFile), filepath.Join(dir, ServerKeyFile))
	if err != nil {
		return nil, fmt.Errorf("load server cert: %w", err)
	}
	caPEM, err := os.ReadFile(filepath.Join(dir, CACertFile))
	if err != nil {
		return nil, fmt.Errorf("read ca cert: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("invalid CA cert PEM")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.VerifyClientCertIfGiven,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// WritePair writes a PEM certificate and key into dir. The key is only
// readable by the current user.
func WritePair(dir, certName, keyName string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(filepath.Join(dir, certName), certPEM, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", certName, err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyName), keyPEM, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", keyName, err)
	}
	return nil
}

func issue(commonName string, hosts []string, usage []x509.ExtKeyUsage,
	caCert *x509.Certificate, caKey any) ([]byte, []byte, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("gen key: %w", err)
	}
	serial, err := serialNumber()
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: commonName,
		},
		NotBefore:   time.Now().Add(-1 * time.Minute),
		NotAfter:    time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: usage,
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, caCert, &priv.PublicKey, caKey)
	if err != nil {
		return nil, nil, fmt.Errorf("create cert: %w", err)
	}
	return encode(certDER, priv)
}

func encode(certDER []byte, priv *ecdsa.PrivateKey) ([]byte, []byte, error) {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal priv key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

func serialNumber() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, fmt.Errorf("serial number: %w", err)
	}
	return serial, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
