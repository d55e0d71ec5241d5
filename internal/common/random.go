package common

import (
	"crypto/rand"
	"math/big"
)

// RandomDigits returns n decimal digits drawn uniformly from crypto/rand.
func RandomDigits(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		out[i] = byte('0' + v.Int64())
	}
	return string(out), nil
}
