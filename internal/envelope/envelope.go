// Package envelope implements the hybrid encryption scheme used to deliver
// security event bundles: the payload is gzip-compressed and sealed with
// AES-256-GCM, and the symmetric key is wrapped with the receiver's RSA
// public key (OAEP, SHA-256).
package envelope

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"time"

	"github.com/veridian-identity/setpoll/internal/timebucket"
)

const (
	keyLen   = 32
	nonceLen = 12
)

// Envelope is the encrypted bundle handed to a polling client. Key and IV
// are raw bytes here; they are base64-encoded when placed in headers.
type Envelope struct {
	Data     []byte
	Key      []byte
	IV       []byte
	Filename string
}

// Filename names the archive object for a bucket. The same name is used for
// on-demand envelopes and materialized archives so the two delivery paths
// are indistinguishable to the receiver.
func Filename(bucket time.Time) string {
	return fmt.Sprintf("%s_poll_events.gz", timebucket.Key(bucket))
}

// Encrypt compresses and seals a plaintext bundle for the given bucket.
func Encrypt(plaintext []byte, bucket time.Time, pub *rsa.PublicKey) (*Envelope, error) {
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(plaintext); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}

	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	iv := make([]byte, nonceLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	wrappedKey, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrap key: %w", err)
	}

	return &Envelope{
		Data:     gcm.Seal(nil, iv, compressed.Bytes(), nil),
		Key:      wrappedKey,
		IV:       iv,
		Filename: Filename(bucket),
	}, nil
}

// Decrypt unwraps the symmetric key with the receiver's private key, opens
// the payload, and decompresses it back to the original bundle.
func Decrypt(data, wrappedKey, iv []byte, priv *rsa.PrivateKey) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrappedKey, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrap key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	compressed, err := gcm.Open(nil, iv, data, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress bundle: %w", err)
	}
	defer gz.Close()

	plaintext, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress bundle: %w", err)
	}
	return plaintext, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key (PKIX or PKCS#1).
func ParsePublicKey(pemData []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}

	if pub, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA")
		}
		return rsaPub, nil
	}

	rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return rsaPub, nil
}

// ParsePrivateKey parses a PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in private key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA")
		}
		return rsaKey, nil
	}

	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// EncodePublicKey renders an RSA public key as PKIX PEM.
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// EncodePrivateKey renders an RSA private key as PKCS#8 PEM.
func EncodePrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
