package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ahorro/internal/custody"
	"ahorro/internal/platform/config"
	id "ahorro/pkg/domain"
	"ahorro/pkg/platform/sentinel"
)

// accountSeeder is the issuer side of a token ledger.
type accountSeeder interface {
	Open(ctx context.Context, account custody.Account) error
	Mint(ctx context.Context, address id.Address, amount uint64) error
}

// devAddress is the wallet address given to a seeded owner for one asset.
func devAddress(owner id.Principal, asset id.AssetID) id.Address {
	return id.Address(owner.String() + "-" + asset.String())
}

// seedAccounts opens and funds the configured development wallets. A wallet
// that already exists is left untouched, so restarting against Postgres does
// not mint twice.
func seedAccounts(ctx context.Context, ledger accountSeeder, accounts []config.DevAccount, log *slog.Logger) error {
	for _, a := range accounts {
		owner, err := id.ParsePrincipal(a.Owner)
		if err != nil {
			return fmt.Errorf("dev account %q: %w", a.Owner, err)
		}
		asset, err := id.ParseAssetID(a.Asset)
		if err != nil {
			return fmt.Errorf("dev account %q: %w", a.Owner, err)
		}
		addr := devAddress(owner, asset)

		err = ledger.Open(ctx, custody.Account{Address: addr, Owner: owner, Asset: asset})
		if errors.Is(err, sentinel.ErrConflict) {
			log.Info("dev account already open", "address", addr.String())
			continue
		}
		if err != nil {
			return fmt.Errorf("open dev account %s: %w", addr, err)
		}
		if a.Balance > 0 {
			if err := ledger.Mint(ctx, addr, a.Balance); err != nil {
				return fmt.Errorf("fund dev account %s: %w", addr, err)
			}
		}
		log.Info("dev account seeded", "address", addr.String(), "owner", owner.String(), "balance", a.Balance)
	}
	return nil
}
