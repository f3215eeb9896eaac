package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// rsaKeyBits: JWT imzalama için 2048-bit RSA yeterlidir (RS256).
const rsaKeyBits = 2048

// EnsureRSAKeyPair, private key dosyası yoksa yeni bir RSA anahtar çifti
// üretir ve her iki PEM dosyasını da diske yazar.
//
// Dönen değer: (true, nil) yeni anahtar üretildiyse, (false, nil) mevcut
// anahtar bulunduysa.
//
// Private key PKCS#8, public key PKIX formatında yazılır — openssl ve
// diğer araçlarla uyumlu standart formatlar.
func EnsureRSAKeyPair(privatePath, publicPath string) (bool, error) {
	if _, err := os.Stat(privatePath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking private key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(privatePath), 0o700); err != nil {
		return false, fmt.Errorf("creating key directory: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return false, fmt.Errorf("generating RSA key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return false, fmt.Errorf("marshaling private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return false, fmt.Errorf("marshaling public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	// Private key sadece sahibi tarafından okunabilir olmalı.
	if err := os.WriteFile(privatePath, privPEM, 0o600); err != nil {
		return false, fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(publicPath, pubPEM, 0o644); err != nil {
		return false, fmt.Errorf("writing public key: %w", err)
	}

	return true, nil
}
