package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations that could not run a sale: unparseable
// operator addresses, missing symbols, or a token that collides with the
// payment denomination.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	token := strings.ToUpper(strings.TrimSpace(cfg.TokenSymbol))
	denom := strings.ToUpper(strings.TrimSpace(cfg.PaymentSymbol))
	if token == "" {
		return fmt.Errorf("config: TokenSymbol must not be empty")
	}
	if denom == "" {
		return fmt.Errorf("config: PaymentSymbol must not be empty")
	}
	if token == denom {
		return fmt.Errorf("config: TokenSymbol and PaymentSymbol must differ")
	}
	if _, err := cfg.Owner(); err != nil {
		return fmt.Errorf("config: invalid OwnerAddress: %w", err)
	}
	if _, err := cfg.Collection(); err != nil {
		return fmt.Errorf("config: invalid CollectionAddress: %w", err)
	}
	return nil
}
