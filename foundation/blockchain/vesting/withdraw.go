package vesting

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// ProcessWithdrawals pays one interval of every withdrawal schedule that is
// due, in order of due time and then account. The final interval pays the
// exact stake left to withdraw.
func (e *Engine) ProcessWithdrawals(now time.Time) error {
	due := e.db.Accounts.Select(func(a database.Account) bool {
		return a.IsWithdrawing() && !a.NextVestingWithdrawal.After(now)
	}, func(a, b database.Account) int {
		if c := a.NextVestingWithdrawal.Compare(b.NextVestingWithdrawal); c != 0 {
			return c
		}
		switch {
		case a.AccountID < b.AccountID:
			return -1
		case a.AccountID > b.AccountID:
			return 1
		}
		return 0
	})

	for _, account := range due {
		if err := e.withdraw(account); err != nil {
			return err
		}
	}

	return nil
}

// withdraw pays one interval of the account's schedule.
func (e *Engine) withdraw(account database.Account) error {
	remaining := account.ToWithdraw - account.Withdrawn

	amount := min(account.VestingWithdrawRate, remaining)
	if account.RemainingWithdrawals == 1 {
		amount = remaining
	}
	amount = min(amount, account.VestingShares-account.DelegatedVestingShares)

	if amount <= 0 {
		stopWithdrawal(&account)
		e.db.PutAccount(account)
		return nil
	}

	account.VestingShares -= amount
	account.Withdrawn += amount
	account.RemainingWithdrawals--

	switch {
	case account.RemainingWithdrawals == 0 || account.Withdrawn >= account.ToWithdraw:
		stopWithdrawal(&account)
	default:
		account.NextVestingWithdrawal = account.NextVestingWithdrawal.Add(genesis.Seconds(e.cfg.WithdrawIntervalSec))
	}

	routes := account.WithdrawRoutes
	e.db.PutAccount(account)

	left := amount
	for _, r := range routes {
		share := asset.MustMulDiv(amount, int64(r.PercentBP), operation.Percent100)
		if share <= 0 {
			continue
		}
		left -= share

		if err := e.deposit(account.AccountID, r.To, share, r.AutoVest); err != nil {
			return err
		}
	}

	if left > 0 {
		return e.deposit(account.AccountID, account.AccountID, left, false)
	}

	return nil
}

// deposit pays withdrawn stake to an account, either as stake or converted
// to liquid native tokens at the current stake price.
func (e *Engine) deposit(from database.AccountID, to database.AccountID, vests int64, autoVest bool) error {
	target, err := e.db.Account(to)
	if err != nil {
		return err
	}

	deposited := asset.Vests(vests)

	switch {
	case autoVest:
		target.VestingShares += vests

	default:
		g := e.db.Globals()
		hive := g.RemoveVests(vests)
		e.db.SetGlobals(g)

		target.Balance += hive
		deposited = asset.Hive(hive)
	}

	e.db.PutAccount(target)

	e.em.Emit(operation.FillVestingWithdraw{
		FromAccount: from,
		ToAccount:   to,
		Withdrawn:   asset.Vests(vests),
		Deposited:   deposited,
	})

	return nil
}
