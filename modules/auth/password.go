package auth

import (
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// defaultHashCost is the bcrypt work factor used when BCRYPT_COST is unset.
const defaultHashCost = 12

// PasswordHasher derives and checks the stored credentials in the usuario
// table. The work factor is fixed at construction so every row hashes with
// the same cost.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt work factor.
// Values outside bcrypt's supported range fall back to the default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultHashCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash derives the stored credential for a plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether the password matches the stored credential.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// loadHashCost reads the bcrypt work factor from BCRYPT_COST.
func loadHashCost() int {
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil {
			return cost
		}
	}
	return defaultHashCost
}
