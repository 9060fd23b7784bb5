package conversion

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// ToSavings moves liquid tokens into the receiver's savings right away.
func (e *Engine) ToSavings(op operation.TransferToSavings, now time.Time) error {
	from, err := e.db.Account(op.From)
	if err != nil {
		return err
	}
	if _, err := e.db.Account(op.To); err != nil {
		return err
	}

	if err := e.adjustLiquid(&from, -op.Amount.Amount, op.Amount.Symbol, now); err != nil {
		return err
	}
	e.db.PutAccount(from)

	to, err := e.db.Account(op.To)
	if err != nil {
		return err
	}
	if err := e.adjustSavings(&to, op.Amount.Amount, op.Amount.Symbol, now); err != nil {
		return err
	}
	e.db.PutAccount(to)

	return nil
}

// FromSavings takes tokens out of savings and pays them to the receiver once
// the savings withdrawal delay has passed.
func (e *Engine) FromSavings(op operation.TransferFromSavings, now time.Time) error {
	from, err := e.db.Account(op.From)
	if err != nil {
		return err
	}
	if _, err := e.db.Account(op.To); err != nil {
		return err
	}

	key := database.RequestKey{Owner: op.From, RequestID: op.RequestID}
	switch {
	case e.db.Savings.Has(key):
		return database.Validationf("savings withdrawal %d of %s already exists", op.RequestID, op.From)
	case from.SavingsWithdrawRequests >= e.cfg.MaxSavingsRequests:
		return database.Validationf("account %s already has %d savings withdrawals", op.From, from.SavingsWithdrawRequests)
	}

	if err := e.adjustSavings(&from, -op.Amount.Amount, op.Amount.Symbol, now); err != nil {
		return err
	}
	from.SavingsWithdrawRequests++
	e.db.PutAccount(from)

	e.db.Savings.Put(key, database.SavingsWithdraw{
		From:      op.From,
		To:        op.To,
		RequestID: op.RequestID,
		Amount:    op.Amount,
		Memo:      op.Memo,
		Complete:  now.Add(genesis.Seconds(e.cfg.SavingsWithdrawSec)),
	})

	return nil
}

// CancelFromSavings returns a pending savings withdrawal to the sender's
// savings.
func (e *Engine) CancelFromSavings(op operation.CancelTransferFromSavings, now time.Time) error {
	key := database.RequestKey{Owner: op.From, RequestID: op.RequestID}
	r, exists := e.db.Savings.Get(key)
	if !exists {
		return database.Validationf("savings withdrawal %d of %s does not exist", op.RequestID, op.From)
	}

	from, err := e.db.Account(op.From)
	if err != nil {
		return err
	}
	if err := e.adjustSavings(&from, r.Amount.Amount, r.Amount.Symbol, now); err != nil {
		return err
	}
	from.SavingsWithdrawRequests--
	e.db.PutAccount(from)

	e.db.Savings.Delete(key)

	return nil
}

// processSavings pays out the savings withdrawals that are due.
func (e *Engine) processSavings(now time.Time) error {
	due := e.db.Savings.Select(func(r database.SavingsWithdraw) bool {
		return !r.Complete.After(now)
	}, func(a, b database.SavingsWithdraw) int {
		return compareRequests(a.Complete, b.Complete, a.From, b.From, a.RequestID, b.RequestID)
	})

	for _, r := range due {
		to, err := e.db.Account(r.To)
		if err != nil {
			return err
		}
		if err := e.adjustLiquid(&to, r.Amount.Amount, r.Amount.Symbol, now); err != nil {
			return err
		}
		e.db.PutAccount(to)

		from, err := e.db.Account(r.From)
		if err != nil {
			return err
		}
		from.SavingsWithdrawRequests--
		e.db.PutAccount(from)

		e.db.Savings.Delete(database.RequestKey{Owner: r.From, RequestID: r.RequestID})

		e.em.Emit(operation.FillTransferFromSavings{
			From:      r.From,
			To:        r.To,
			Amount:    r.Amount,
			RequestID: r.RequestID,
			Memo:      r.Memo,
		})
	}

	return nil
}

// SavingsRequests returns the pending savings withdrawals of the account.
func (e *Engine) SavingsRequests(from database.AccountID) []database.SavingsWithdraw {
	return e.db.Savings.Select(func(r database.SavingsWithdraw) bool {
		return r.From == from
	}, func(a, b database.SavingsWithdraw) int {
		return compareRequests(a.Complete, b.Complete, a.From, b.From, a.RequestID, b.RequestID)
	})
}

// =============================================================================

func (e *Engine) adjustLiquid(account *database.Account, delta int64, symbol asset.Symbol, now time.Time) error {
	if symbol == asset.HBD {
		return e.interest.AdjustBalance(account, delta, now)
	}

	if account.Balance+delta < 0 {
		return database.Validationf("account %s has insufficient %s: %s < %s", account.AccountID, asset.HIVE, asset.Hive(account.Balance), asset.Hive(-delta))
	}
	account.Balance += delta

	return nil
}

func (e *Engine) adjustSavings(account *database.Account, delta int64, symbol asset.Symbol, now time.Time) error {
	if symbol == asset.HBD {
		return e.interest.AdjustSavings(account, delta, now)
	}

	if account.SavingsBalance+delta < 0 {
		return database.Validationf("account %s has insufficient %s in savings: %s < %s", account.AccountID, asset.HIVE, asset.Hive(account.SavingsBalance), asset.Hive(-delta))
	}
	account.SavingsBalance += delta

	return nil
}
