package config

import (
	"os"
	"path/filepath"
	"testing"

	"tokensale/crypto"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sale.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sale.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if cfg.TokenSymbol != "SALE" || cfg.PaymentSymbol != "PAY" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := cfg.Owner(); err != nil {
		t.Fatalf("generated owner address must parse: %v", err)
	}
	if _, err := cfg.Collection(); err != nil {
		t.Fatalf("generated collection address must parse: %v", err)
	}

	// A second load reads the persisted file back.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.OwnerAddress != cfg.OwnerAddress {
		t.Fatalf("reload changed the owner address")
	}
}

func TestLoadValidatesAddresses(t *testing.T) {
	path := writeConfig(t, `
DataDir = "./sale-data"
OwnerAddress = "not-an-address"
CollectionAddress = "also-bad"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid address rejection")
	}
}

func TestValidateRejectsSymbolCollision(t *testing.T) {
	cfg := &Config{
		DataDir:           "./sale-data",
		TokenSymbol:       "SALE",
		PaymentSymbol:     "sale",
		OwnerAddress:      testAddress(t),
		CollectionAddress: testAddress(t),
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected symbol collision rejection")
	}
	cfg.PaymentSymbol = "PAY"
	if err := Validate(cfg); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestLoadAppliesDefaultsToSparseFile(t *testing.T) {
	owner := testAddress(t)
	collection := testAddress(t)
	path := writeConfig(t, `
OwnerAddress = "`+owner+`"
CollectionAddress = "`+collection+`"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != "./sale-data" || cfg.TokenDecimals != 18 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Paused {
		t.Fatalf("sales default to running")
	}
}
