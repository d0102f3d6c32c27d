package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/dirkeeper/internal/cryptoutil"
)

// CreatePayloadCodec builds the AES-GCM codec for the encrypted request envelope.
// An empty key returns nil: credential bodies are then accepted as plain JSON.
// A key that is set but unusable is an error rather than a silent downgrade.
//
//nolint:ireturn // a nil Codec disables the envelope in the HTTP layer.
func CreatePayloadCodec(key string, logger *slog.Logger) (cryptoutil.Codec, error) {
	if key == "" {
		if logger != nil {
			logger.Warn("payload encryption key is empty, credential bodies accepted as plain JSON")
		}
		return nil, nil
	}

	keyBytes, err := cryptoutil.KeyFromString(key)
	if err != nil {
		return nil, fmt.Errorf("payload encryption key: %w", err)
	}
	codec, err := cryptoutil.NewAESGCM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("payload codec: %w", err)
	}
	return codec, nil
}
