package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns the bcrypt hash stored for accounts and the bootstrap
// admin. Tests pass bcrypt.MinCost to keep registration fast.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword returns bcrypt.ErrMismatchedHashAndPassword when plain does
// not match. Callers treat any error as a mismatch.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
