package api

import (
	"errors"
	"strings"
)

var (
	errMissingAuthorization = errors.New("missing authorization header")
	errBadAuthorization     = errors.New("bad auth header")
)

const bearerPrefix = "Bearer "

// bearerValue returns the credential following the "Bearer " scheme.
func bearerValue(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errMissingAuthorization
	}
	if !strings.HasPrefix(trimmed, bearerPrefix) {
		return "", errBadAuthorization
	}
	value := strings.TrimSpace(trimmed[len(bearerPrefix):])
	if value == "" {
		return "", errBadAuthorization
	}
	return value, nil
}

// bearerToken returns the bearer credential if it is shaped like a compact JWS.
func bearerToken(raw string) (string, error) {
	token, err := bearerValue(raw)
	if err != nil {
		return "", err
	}
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}
