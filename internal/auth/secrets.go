package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadOrGenerateSecret loads or generates the HMAC signing secret for
// scoped tokens. The secret is stored in <dataPath>/signing.key as a
// hex-encoded string. If the file doesn't exist, a new secret is generated
// and saved. Returns the decoded 32-byte secret ready for use.
func LoadOrGenerateSecret(dataPath string) ([]byte, error) {
	keyPath := filepath.Join(dataPath, "signing.key")

	// Try to load existing secret.
	//#nosec G304 -- Key path is derived from validated data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		return DecodeSecret(strings.TrimSpace(string(keyBytes)))
	}

	// Generate a new 256-bit secret.
	secret := make([]byte, secretBytesSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}

	// Ensure data directory exists.
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Save hex-encoded with restricted permissions.
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(secret)), 0o600); err != nil {
		return nil, fmt.Errorf("failed to save signing secret: %w", err)
	}

	return secret, nil
}

// DecodeSecret decodes a hex-encoded 256-bit signing secret.
// Used for the current secret on disk and the optional previous secret
// supplied during a rotation window.
func DecodeSecret(secretHex string) ([]byte, error) {
	if len(secretHex) != secretHexSize {
		return nil, fmt.Errorf("invalid signing secret length: expected %d hex chars, got %d", secretHexSize, len(secretHex))
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signing secret format: not valid hex: %w", err)
	}

	return secret, nil
}
