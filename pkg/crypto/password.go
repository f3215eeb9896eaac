// Package crypto — şifre hash'leme ve RSA anahtar üretimi.
//
// Argon2id nedir?
// Memory-hard bir password hashing algoritmasıdır: GPU/ASIC ile brute-force
// maliyetini bellek kullanımıyla artırır. bcrypt'e göre daha yeni ve
// OWASP'ın önerdiği algoritmadır.
//
// PHC string formatı:
// Hash, salt ve parametreler tek bir string'de saklanır:
//
//	$argon2id$v=19$m=19456,t=2,p=1$<base64 salt>$<base64 hash>
//
// Bu sayede parametreler ileride değişse bile eski hash'ler doğrulanabilir —
// her hash kendi parametrelerini taşır.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parametreleri (OWASP önerisi: m=19 MiB, t=2, p=1).
const (
	argonMemory  uint32 = 19 * 1024 // KiB cinsinden
	argonTime    uint32 = 2
	argonThreads uint8  = 1
	argonSaltLen        = 16
	argonKeyLen  uint32 = 32
)

// ErrInvalidHash, PHC string'i parse edilemediğinde döner.
var ErrInvalidHash = errors.New("invalid password hash format")

// HashPassword, şifreyi Argon2id ile hash'ler ve PHC string döner.
// Her çağrıda rastgele 16-byte salt üretilir — aynı şifre bile her
// seferinde farklı hash verir.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	// PHC formatında base64 padding kullanılmaz (RawStdEncoding).
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword, şifreyi PHC string'deki hash ile karşılaştırır.
//
// Parametreler hash'in içinden okunur, sabitlerden değil — eski
// parametrelerle üretilmiş hash'ler de doğrulanır.
// Karşılaştırma constant-time yapılır (timing attack koruması).
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrInvalidHash
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: unsupported argon2 version %d", ErrInvalidHash, version)
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrInvalidHash
	}

	key := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(key, expected) == 1, nil
}
