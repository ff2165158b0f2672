package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	keychainService = "favmark"
	tokenAccount    = "api_token"
	tokenEnvVar     = "FAVMARK_API_TOKEN"
)

// GetAPIToken returns the bearer token shared by the server and the CLI.
// Resolution order: FAVMARK_API_TOKEN, then the platform secret store.
// When neither has one, a random token is generated and stored so later
// invocations agree on it.
func GetAPIToken() (string, error) {
	if tok := os.Getenv(tokenEnvVar); tok != "" {
		return tok, nil
	}

	if out, err := keychainGet(keychainService, tokenAccount); err == nil {
		if tok := strings.TrimSpace(string(out)); tok != "" {
			return tok, nil
		}
	}

	tok, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	if err := keychainSet(keychainService, tokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing api token: %w", err)
	}
	return tok, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
