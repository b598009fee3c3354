package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LegacyHash is the pre-migration scheme: hex(sha256(password)).
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func checkLegacy(hash, password string) bool {
	return subtle.ConstantTimeCompare([]byte(LegacyHash(password)), []byte(hash)) == 1
}

// Verify tries the bcrypt hash first and only then the legacy scheme.
// The second return value reports that the legacy path matched, so callers
// can log it for migration tracking.
func Verify(hash, password string) (ok, legacy bool) {
	if CheckPassword(hash, password) {
		return true, false
	}
	if checkLegacy(hash, password) {
		return true, true
	}
	return false, false
}
