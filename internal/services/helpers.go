package services

import (
	"context"
	"errors"
	"time"

	"starkpay/internal/apperr"
	"starkpay/internal/models"
	"starkpay/internal/store"
	"starkpay/internal/validator"
)

var errUnbalancedEntries = errors.New("ledger entries are not balanced")

func ensureBalanced(entries []store.LedgerEntryInput) error {
	var sum int64
	for _, entry := range entries {
		sum += entry.Amount
	}
	if sum != 0 {
		return errUnbalancedEntries
	}
	return nil
}

func lockTwoWallets(ctx context.Context, tx store.Getter, wallets WalletStore, firstID, secondID string) (models.Wallet, models.Wallet, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := wallets.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, notFoundOr(err, "Wallet not found")
	}
	right, err := wallets.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, notFoundOr(err, "Wallet not found")
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

// notFoundOr turns a missing row into a NotFound error with message and leaves
// other failures alone.
func notFoundOr(err error, message string) error {
	if store.IsNotFound(err) {
		return apperr.NotFound(message)
	}
	return err
}

// sameDay compares calendar days in loc.
func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// resolveUser looks a user up by email, phone or username, whichever the
// identifier looks like.
func resolveUser(ctx context.Context, users UserStore, identifier string) (models.User, error) {
	kind, normalized, err := validator.ClassifyIdentifier(identifier)
	if err != nil {
		return models.User{}, apperr.Validation("Invalid recipient identifier")
	}
	var user models.User
	switch kind {
	case validator.IdentifierEmail:
		user, err = users.GetByEmail(ctx, normalized)
	case validator.IdentifierPhone:
		user, err = users.GetByPhone(ctx, normalized)
	default:
		user, err = users.GetByUsername(ctx, normalized)
	}
	if err != nil {
		return models.User{}, notFoundOr(err, "User not found")
	}
	return user, nil
}
