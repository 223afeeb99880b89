package auth

import "golang.org/x/crypto/bcrypt"

// Hasher hashes and checks passwords.
type Hasher interface {
	HashPassword(plain string) (string, error)
	ComparePassword(plain, hash string) bool
}

// BcryptHasher hashes with bcrypt at Cost.
type BcryptHasher struct {
	Cost int
}

// HashPassword returns a bcrypt hash of plain.
func (h BcryptHasher) HashPassword(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePassword reports whether plain matches hash. A malformed hash never
// matches.
func (h BcryptHasher) ComparePassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
