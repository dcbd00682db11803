package randcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

const maxNumericLength = 18

// GenerateNumericCode returns a uniformly distributed decimal string of the
// given length, zero padded on the left.
func GenerateNumericCode(length int) (string, error) {
	return generateNumericCode(rand.Reader, length)
}

func generateNumericCode(r io.Reader, length int) (string, error) {
	if length <= 0 || length > maxNumericLength {
		return "", errors.New("numeric code length must be between 1 and 18")
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(r, upper)
	if err != nil {
		return "", fmt.Errorf("failed to read random number: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}
