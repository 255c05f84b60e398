package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/idp/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager with the configured algorithm.
//
// With IDP_SIGNING_KEY_FILE set the key is loaded from PEM and the kid stays
// stable across restarts, so issued tokens survive. Without it an ephemeral
// key is generated and every outstanding token dies with the process.
//
// Supported algorithms: RS256, ES256, EdDSA.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	var pemKey []byte
	if cfg.SigningKeyFile != "" {
		var err error
		pemKey, err = os.ReadFile(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key file: %w", err)
		}
		logger.Info("signing key loaded",
			"algorithm", cfg.Algorithm,
			"file", cfg.SigningKeyFile,
		)
	} else {
		logger.Warn("no signing key configured, generating an ephemeral key",
			"algorithm", cfg.Algorithm,
		)
		logger.Warn("all previously issued tokens are now invalid")
	}

	keyManager, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm:     cfg.Algorithm,
		PrivateKeyPEM: pemKey,
		Issuer:        cfg.Issuer,
		Audience:      nil, // Tokens carry dynamic audiences; verified per endpoint
		RSABits:       cfg.RSABits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}

	return keyManager, nil
}
