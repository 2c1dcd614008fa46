package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

// HashPassword will generate a salted argon2id hash. The salt and the
// cost parameters are embedded in the returned blob, no side storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate salt")
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	blob := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return blob, nil
}

// ComparePasswordAndHash will validate the given cleartext password
// against a stored blob. A mismatch returns
// ErrMismatchedHashAndPassword; only a malformed blob is an error of a
// different kind.
func ComparePasswordAndHash(password, hash string) error {
	salt, key, memory, timeCost, threads, err := decodeHash(hash)
	if err != nil {
		return err
	}

	candidate := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(key)))

	if subtle.ConstantTimeCompare(key, candidate) != 1 {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// RandomPasswordHash is a placeholder credential for accounts created
// from a federated assertion, which carry no local password.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

func decodeHash(hash string) (salt, key []byte, memory, timeCost uint32, threads uint8, err error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}
	if version != argon2.Version {
		return nil, nil, 0, 0, 0, errors.New("incompatible argon2 version", errors.CategoryValidation).
			WithTextCode(TextCodeMalformedHash).
			WithCode(errors.CodeBadRequest)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, ErrMalformedHash
	}

	return salt, key, memory, timeCost, threads, nil
}

// Hasher adapts the package-level functions to PasswordAuthenticator.
type Hasher struct{}

func (Hasher) HashPassword(password string) (string, error) {
	return HashPassword(password)
}

func (Hasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

var _ PasswordAuthenticator = Hasher{}
