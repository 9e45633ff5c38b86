package hash

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor used for stored passwords.
const Cost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// dummyHash is compared against when no stored hash exists so that a
// missing account costs the same as a wrong password.
var dummyHash = mustHash("roadblock-dummy-password")

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnCompare runs one comparison that always fails.
func BurnCompare(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func mustHash(password string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		panic(err)
	}
	return h
}
