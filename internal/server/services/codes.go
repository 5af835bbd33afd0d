package services

import (
	"strings"

	"github.com/bloomlabs/bloom/internal/cryptox"
)

const verificationCodeLength = 8

// newVerificationCode generates a one-time numeric code and its at-rest
// argon2id hash. Only the hash is stored.
func newVerificationCode() (code string, hash string, err error) {
	code, err = cryptox.RandDigits(verificationCodeLength)
	if err != nil {
		return "", "", err
	}
	hash, err = cryptox.HashCode(code)
	if err != nil {
		return "", "", err
	}
	return code, hash, nil
}

// FormatCode renders a code for humans: "12345678" -> "1234-5678".
func FormatCode(code string) string {
	if len(code) != verificationCodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}

// normalizeCode undoes the human formatting and stray whitespace so users can
// paste codes with or without the hyphen.
func normalizeCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

// verifyPendingCode checks a user-supplied code against the stored hash.
func verifyPendingCode(code, hash string) (bool, error) {
	return cryptox.VerifyCode(normalizeCode(code), hash)
}
