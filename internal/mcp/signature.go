package mcp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strconv"
	"time"
)

// signatureHeader carries the request signature for integrations that sign requests.
const signatureHeader = "x-cf-signature"

// Signature encrypts "<clientID>.<unix seconds>" with the RSA public key
// (OAEP, SHA-1) and returns it base64 encoded.
func Signature(clientID, publicKeyPEM string, now time.Time) (string, error) {
	if publicKeyPEM == "" {
		return "", fmt.Errorf("%w: no public key configured", ErrSignature)
	}
	key, err := parsePublicKey([]byte(publicKeyPEM))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignature, err)
	}
	payload := clientID + "." + strconv.FormatInt(now.Unix(), 10)
	encrypted, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, key, []byte(payload), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSignature, err)
	}
	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// parsePublicKey accepts PKIX "PUBLIC KEY" and PKCS#1 "RSA PUBLIC KEY" PEM blocks.
func parsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not RSA", parsed)
		}
		return key, nil
	}
}
