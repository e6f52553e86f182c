// Command bridge-admin is the operational bring-up and escape-hatch surface
// of the bridge security core: one-time store initialization, state
// inspection, coordinator allow-list management and manual wallet unlock.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/JSanchezFDZ/tbtc-v2/bridge"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/coordinator"
	"github.com/JSanchezFDZ/tbtc-v2/bridge/store"
	"github.com/JSanchezFDZ/tbtc-v2/common/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bridge-admin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: bridge-admin <init|params|update-params|show-wallet|unlock-wallet|add-coordinator|remove-coordinator> [args]")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	ctx := logging.Inject(context.Background(), logger)

	cfg, err := bridge.LoadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	switch args[0] {
	case "init":
		params, err := cfg.Parameters()
		if err != nil {
			return err
		}
		if err := db.Initialize(params); err != nil {
			return err
		}
		logger.Info("store initialized", zap.String("path", cfg.DatabasePath))
		return nil

	case "params":
		return db.View(func(txn *store.Txn) error {
			params, err := txn.Parameters()
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", params)
			return nil
		})

	case "update-params":
		params, err := cfg.Parameters()
		if err != nil {
			return err
		}
		engine, admin, err := adminEngine(cfg, db)
		if err != nil {
			return err
		}
		return engine.UpdateParameters(ctx, admin, params)

	case "show-wallet":
		pubKeyHash, err := parseHash20(args[1:])
		if err != nil {
			return err
		}
		return db.View(func(txn *store.Txn) error {
			wallet, err := txn.Wallet(pubKeyHash)
			if err != nil {
				return err
			}
			lock, err := txn.Lock(pubKeyHash)
			if err != nil {
				return err
			}
			fmt.Printf("wallet %x\n  state: %s\n  external id: %x\n  created at: %d\n  lock: %s until %d\n",
				pubKeyHash, wallet.State, wallet.ExternalWalletID, wallet.CreatedAt, lock.Cause, lock.ExpiresAt)
			return nil
		})

	case "unlock-wallet":
		pubKeyHash, err := parseHash20(args[1:])
		if err != nil {
			return err
		}
		engine, admin, err := adminEngine(cfg, db)
		if err != nil {
			return err
		}
		return engine.UnlockWallet(ctx, admin, pubKeyHash)

	case "add-coordinator":
		address, err := parseHash20(args[1:])
		if err != nil {
			return err
		}
		engine, admin, err := adminEngine(cfg, db)
		if err != nil {
			return err
		}
		return engine.AddCoordinator(ctx, admin, bridge.Address(address))

	case "remove-coordinator":
		address, err := parseHash20(args[1:])
		if err != nil {
			return err
		}
		engine, admin, err := adminEngine(cfg, db)
		if err != nil {
			return err
		}
		return engine.RemoveCoordinator(ctx, admin, bridge.Address(address))

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func adminEngine(cfg bridge.Config, db *store.Store) (*coordinator.Engine, bridge.Address, error) {
	admin, err := cfg.Admin()
	if err != nil {
		return nil, bridge.Address{}, err
	}
	if admin.IsZero() {
		return nil, bridge.Address{}, fmt.Errorf("BRIDGE_ADMIN_ADDRESS must be set for admin commands")
	}
	engine, err := coordinator.New(coordinator.Config{
		Store:    db,
		Admin:    admin,
		Recorder: bridge.LogRecorder{},
	})
	if err != nil {
		return nil, bridge.Address{}, err
	}
	return engine, admin, nil
}

func parseHash20(args []string) ([20]byte, error) {
	var out [20]byte
	if len(args) != 1 {
		return out, fmt.Errorf("expected exactly one hex-encoded 20-byte argument")
	}
	raw, err := hex.DecodeString(args[0])
	if err != nil {
		return out, fmt.Errorf("failed to decode argument: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected 20 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
