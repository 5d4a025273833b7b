package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"tokensale/config"
	"tokensale/core/events"
	salestate "tokensale/core/state"
	"tokensale/crypto"
	"tokensale/native/common"
	"tokensale/native/sale"
	"tokensale/observability"
	"tokensale/observability/logging"
	"tokensale/storage"
)

const envEnv = "SALE_ENV"

func main() {
	logger := logging.Setup("salectl", os.Getenv(envEnv))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = runInit(logger, args)
	case "set-allocations":
		err = runSetAllocations(logger, args)
	case "purchase":
		err = runPurchase(logger, args)
	case "status":
		err = runStatus(args)
	case "gen-address":
		err = runGenAddress()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: salectl <command> [flags]

commands:
  init             initialise the ledger from the configuration file
  set-allocations  apply an allocation batch file (owner only)
  purchase         settle a purchase against a configured allocation
  status           show a participant allocation and sale totals
  gen-address      generate a fresh keypair and print its address`)
}

type ledger struct {
	cfg     *config.Config
	db      storage.Database
	manager *salestate.Manager
	engine  *sale.Engine
	owner   [20]byte
}

func (l *ledger) close() { l.db.Close() }

// slogEmitter logs structured sale events as they are emitted.
type slogEmitter struct {
	logger *slog.Logger
}

func (s slogEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	s.logger.Info("sale event", "type", evt.EventType())
}

func openLedger(logger *slog.Logger, configPath string) (*ledger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	owner, err := cfg.Owner()
	if err != nil {
		return nil, err
	}
	collection, err := cfg.Collection()
	if err != nil {
		return nil, err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	manager := salestate.NewManager(db)

	engine := sale.NewEngine()
	engine.SetState(manager)
	engine.SetMinter(salestate.NewTokenMinter(manager, cfg.TokenSymbol))
	engine.SetCollector(salestate.NewValueCollector(manager, collection, cfg.PaymentSymbol))
	engine.SetAuthorizer(salestate.NewRoleAuthorizer(manager, salestate.RoleSaleOwner))
	engine.SetPauses(manager)
	engine.SetEmitter(observability.NewMetricsEmitter(slogEmitter{logger: logger}))

	return &ledger{cfg: cfg, db: db, manager: manager, engine: engine, owner: owner}, nil
}

func runInit(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "./sale.toml", "Path to the configuration file")
	fs.Parse(args)

	l, err := openLedger(logger, *configPath)
	if err != nil {
		return err
	}
	defer l.close()

	if meta, err := l.manager.Token(l.cfg.TokenSymbol); err != nil {
		return err
	} else if meta != nil {
		return fmt.Errorf("ledger already initialised in %s", l.cfg.DataDir)
	}

	if err := l.manager.RegisterToken(l.cfg.TokenSymbol, l.cfg.TokenName, l.cfg.TokenDecimals); err != nil {
		return err
	}
	if err := l.manager.RegisterToken(l.cfg.PaymentSymbol, l.cfg.PaymentName, l.cfg.PaymentDecimals); err != nil {
		return err
	}
	if err := l.manager.SetRole(salestate.RoleSaleOwner, l.owner[:]); err != nil {
		return err
	}
	if err := l.manager.SetPaused(sale.ModuleName, l.cfg.Paused); err != nil {
		return err
	}
	if err := l.manager.Commit(); err != nil {
		return err
	}
	logger.Info("ledger initialised",
		"dataDir", l.cfg.DataDir,
		"token", l.cfg.TokenSymbol,
		"denom", l.cfg.PaymentSymbol,
		"owner", l.cfg.OwnerAddress)
	return nil
}

// allocationBatch is the on-disk shape of an allocation batch file.
type allocationBatch struct {
	Payment []batchEntry `toml:"payment"`
	Asset   []batchEntry `toml:"asset"`
}

type batchEntry struct {
	Participant string `toml:"participant"`
	Amount      string `toml:"amount"`
}

func parseEntries(raw []batchEntry) ([]sale.Entry, error) {
	entries := make([]sale.Entry, 0, len(raw))
	for _, item := range raw {
		participant, err := parseAddress(item.Participant)
		if err != nil {
			return nil, fmt.Errorf("participant %q: %w", item.Participant, err)
		}
		amount, err := parseAmount(item.Amount)
		if err != nil {
			return nil, fmt.Errorf("participant %q: %w", item.Participant, err)
		}
		entries = append(entries, sale.Entry{Participant: participant, Amount: amount})
	}
	return entries, nil
}

func runSetAllocations(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("set-allocations", flag.ExitOnError)
	configPath := fs.String("config", "./sale.toml", "Path to the configuration file")
	filePath := fs.String("file", "", "Path to the allocation batch file")
	fs.Parse(args)
	if *filePath == "" {
		return fmt.Errorf("missing -file")
	}

	batch := &allocationBatch{}
	if _, err := toml.DecodeFile(*filePath, batch); err != nil {
		return err
	}
	payment, err := parseEntries(batch.Payment)
	if err != nil {
		return err
	}
	asset, err := parseEntries(batch.Asset)
	if err != nil {
		return err
	}
	if len(payment) == 0 && len(asset) == 0 {
		return fmt.Errorf("batch file %s holds no entries", *filePath)
	}

	l, err := openLedger(logger, *configPath)
	if err != nil {
		return err
	}
	defer l.close()

	if len(payment) > 0 {
		if err := l.engine.SetPaymentDue(l.owner, payment); err != nil {
			l.manager.Reset()
			return err
		}
	}
	if len(asset) > 0 {
		if err := l.engine.SetAssetDue(l.owner, asset); err != nil {
			l.manager.Reset()
			return err
		}
	}
	if err := l.manager.Commit(); err != nil {
		return err
	}
	logger.Info("allocations updated", "paymentEntries", len(payment), "assetEntries", len(asset))
	return nil
}

func runPurchase(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("purchase", flag.ExitOnError)
	configPath := fs.String("config", "./sale.toml", "Path to the configuration file")
	purchaserFlag := fs.String("purchaser", "", "Purchaser address")
	beneficiaryFlag := fs.String("beneficiary", "", "Beneficiary address (defaults to the purchaser)")
	valueFlag := fs.String("value", "", "Submitted value")
	fs.Parse(args)

	purchaser, err := parseAddress(*purchaserFlag)
	if err != nil {
		return fmt.Errorf("purchaser: %w", err)
	}
	beneficiary := purchaser
	if strings.TrimSpace(*beneficiaryFlag) != "" {
		if beneficiary, err = parseAddress(*beneficiaryFlag); err != nil {
			return fmt.Errorf("beneficiary: %w", err)
		}
	}
	value, err := parseAmount(*valueFlag)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}

	l, err := openLedger(logger, *configPath)
	if err != nil {
		return err
	}
	defer l.close()

	receipt, err := l.engine.SettlePurchase(purchaser, beneficiary, value)
	if err != nil {
		l.manager.Reset()
		observability.SaleMetrics().RecordRejectedPurchase(rejectionReason(err))
		return err
	}
	if err := l.manager.Commit(); err != nil {
		return err
	}
	logger.Info("purchase settled",
		"purchaser", crypto.MustNewAddress(crypto.SalePrefix, receipt.Purchaser[:]).String(),
		"beneficiary", crypto.MustNewAddress(crypto.SalePrefix, receipt.Beneficiary[:]).String(),
		"value", receipt.Value.String(),
		"tokens", receipt.Tokens.String())
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "./sale.toml", "Path to the configuration file")
	participantFlag := fs.String("participant", "", "Participant address")
	fs.Parse(args)

	logger := slog.Default()
	l, err := openLedger(logger, *configPath)
	if err != nil {
		return err
	}
	defer l.close()

	total, err := l.engine.TotalReceived()
	if err != nil {
		return err
	}
	supply, err := l.manager.TokenSupply(l.cfg.TokenSymbol)
	if err != nil {
		return err
	}
	fmt.Printf("total received: %s\n", total)
	fmt.Printf("token supply:   %s %s\n", supply, strings.ToUpper(l.cfg.TokenSymbol))
	fmt.Printf("paused:         %v\n", l.manager.IsPaused(sale.ModuleName))

	if strings.TrimSpace(*participantFlag) != "" {
		participant, err := parseAddress(*participantFlag)
		if err != nil {
			return fmt.Errorf("participant: %w", err)
		}
		alloc, err := l.engine.Allocation(participant)
		if err != nil {
			return err
		}
		balance, err := l.manager.Balance(participant[:], l.cfg.TokenSymbol)
		if err != nil {
			return err
		}
		fmt.Printf("participant:    %s\n", *participantFlag)
		fmt.Printf("  configured:   %v\n", alloc.Configured())
		fmt.Printf("  payment due:  %s\n", alloc.PaymentDue)
		fmt.Printf("  asset due:    %s\n", alloc.AssetDue)
		fmt.Printf("  token balance: %s\n", balance)
	}
	return nil
}

func runGenAddress() error {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	fmt.Printf("address:     %s\n", key.PubKey().Address().String())
	fmt.Printf("private key: %x\n", key.Bytes())
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, sale.ErrInvalidBeneficiary):
		return "invalid_beneficiary"
	case errors.Is(err, sale.ErrInvalidPurchase):
		return "invalid_purchase"
	case errors.Is(err, sale.ErrMintFailed):
		return "mint_failed"
	case errors.Is(err, sale.ErrForwardFailed):
		return "forward_failed"
	case errors.Is(err, common.ErrModulePaused):
		return "paused"
	default:
		return "unknown"
	}
}

func parseAddress(encoded string) ([20]byte, error) {
	var out [20]byte
	trimmed := strings.TrimSpace(encoded)
	if trimmed == "" {
		return out, fmt.Errorf("address required")
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return value, nil
}
