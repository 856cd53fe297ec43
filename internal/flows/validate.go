package flows

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms such as "Nova <nova@x.com>".
	return addr.Address == email && strings.Contains(email, "@")
}

func validUsername(username string, maxLen int) bool {
	if username == "" || strings.Contains(username, "@") {
		return false
	}
	if maxLen > 0 && utf8.RuneCountInString(username) > maxLen {
		return false
	}
	for _, r := range username {
		if r < 0x21 || r == 0x7f {
			return false
		}
	}
	return true
}

func validPassword(password string, minLen, maxBytes int) bool {
	if password == "" {
		return false
	}
	if minLen > 0 && utf8.RuneCountInString(password) < minLen {
		return false
	}
	if maxBytes > 0 && len(password) > maxBytes {
		return false
	}
	return true
}
