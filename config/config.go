package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tokensale/crypto"
)

// Config describes one allocated sale: the token being issued, the payment
// denomination collected, and the operator identities.
type Config struct {
	DataDir string `toml:"DataDir"`

	TokenSymbol   string `toml:"TokenSymbol"`
	TokenName     string `toml:"TokenName"`
	TokenDecimals uint8  `toml:"TokenDecimals"`

	PaymentSymbol   string `toml:"PaymentSymbol"`
	PaymentName     string `toml:"PaymentName"`
	PaymentDecimals uint8  `toml:"PaymentDecimals"`

	// OwnerAddress is the only identity allowed to configure allocations.
	OwnerAddress string `toml:"OwnerAddress"`
	// CollectionAddress receives all forwarded purchase value.
	CollectionAddress string `toml:"CollectionAddress"`

	// Paused switches the sale module off for all state-changing calls.
	Paused bool `toml:"Paused"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./sale-data"
	}
	if strings.TrimSpace(cfg.TokenSymbol) == "" {
		cfg.TokenSymbol = "SALE"
	}
	if strings.TrimSpace(cfg.TokenName) == "" {
		cfg.TokenName = "Sale Token"
	}
	if cfg.TokenDecimals == 0 {
		cfg.TokenDecimals = 18
	}
	if strings.TrimSpace(cfg.PaymentSymbol) == "" {
		cfg.PaymentSymbol = "PAY"
	}
	if strings.TrimSpace(cfg.PaymentName) == "" {
		cfg.PaymentName = "Payment Denom"
	}
	if cfg.PaymentDecimals == 0 {
		cfg.PaymentDecimals = 18
	}
}

// Owner returns the parsed owner address.
func (c *Config) Owner() ([20]byte, error) {
	return parseAddress(c.OwnerAddress)
}

// Collection returns the parsed collection account address.
func (c *Config) Collection() ([20]byte, error) {
	return parseAddress(c.CollectionAddress)
}

func parseAddress(encoded string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(encoded))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

// createDefault creates and saves a default configuration file. The generated
// owner identity is a fresh key so a default file never grants control to a
// well-known address.
func createDefault(path string) (*Config, error) {
	ownerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	collectionKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           "./sale-data",
		OwnerAddress:      ownerKey.PubKey().Address().String(),
		CollectionAddress: collectionKey.PubKey().Address().String(),
	}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
