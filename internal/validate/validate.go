package validate

import (
	"strconv"
	"strings"
)

// Entity normalizes an entity kind to the API path segment it is served
// under: "listings" or "users".
func Entity(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "listing", "listings":
		return "listings", true
	case "user", "users":
		return "users", true
	}
	return "", false
}

// Policy validates an error policy name.
func Policy(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, s == "continue" || s == "abort"
}

// ID parses a non-negative source id.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
