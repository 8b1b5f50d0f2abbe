package utils

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// GenerateBookingRef creates a human readable booking reference.
// Format: BUS-YYYYMMDD-HHMMSS-NNNN
func GenerateBookingRef() string {
	now := time.Now()
	return fmt.Sprintf("BUS-%s-%s-%04d", now.Format("20060102"), now.Format("150405"), rand.Intn(10000))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
