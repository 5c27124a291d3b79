package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Charset is the alphabet a one-time token is drawn from.
type Charset string

const (
	CharsetNumeric      Charset = "numeric"
	CharsetAlpha        Charset = "alpha"
	CharsetAlphanumeric Charset = "alphanumeric"
	CharsetHex          Charset = "hex"
)

var alphabets = map[Charset]string{
	CharsetNumeric:      "0123456789",
	CharsetAlpha:        "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz",
	CharsetAlphanumeric: "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789",
	CharsetHex:          "0123456789abcdef",
}

func (c Charset) Valid() bool {
	_, ok := alphabets[c]
	return ok
}

// RandomString returns length characters drawn uniformly from charset.
func RandomString(charset Charset, length int) (string, error) {
	alphabet, ok := alphabets[charset]
	if !ok {
		return "", fmt.Errorf("unknown charset %q", charset)
	}
	if length <= 0 {
		return "", fmt.Errorf("invalid token length %d", length)
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

func NewRandomHex(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 бит по умолчанию
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
