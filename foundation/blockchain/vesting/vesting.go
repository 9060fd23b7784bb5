// Package vesting converts native tokens to stake and back, and manages
// stake delegation and the claiming of pending rewards.
package vesting

import (
	"slices"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// Engine manages stake.
type Engine struct {
	db       *database.Database
	em       *oplog.Emitter
	interest *interest.Engine
	cfg      genesis.Vesting
}

// New constructs a vesting engine.
func New(db *database.Database, em *oplog.Emitter, ie *interest.Engine, cfg genesis.Vesting) *Engine {
	return &Engine{
		db:       db,
		em:       em,
		interest: ie,
		cfg:      cfg,
	}
}

// TransferToVesting converts liquid native tokens of the sender into stake
// for the receiver at the current stake price.
func (e *Engine) TransferToVesting(op operation.TransferToVesting) (int64, error) {
	to := op.To
	if to == "" {
		to = op.From
	}

	from, err := e.db.Account(op.From)
	if err != nil {
		return 0, err
	}
	if _, err := e.db.Account(to); err != nil {
		return 0, err
	}

	if from.Balance < op.Amount.Amount {
		return 0, database.Validationf("account %s has insufficient %s: %s < %s", op.From, asset.HIVE, asset.Hive(from.Balance), op.Amount)
	}
	from.Balance -= op.Amount.Amount
	e.db.PutAccount(from)

	vests, err := e.Stake(to, op.Amount.Amount)
	if err != nil {
		return 0, err
	}

	e.em.Emit(operation.TransferToVestingCompleted{
		FromAccount:           op.From,
		ToAccount:             to,
		HiveVested:            op.Amount,
		VestingSharesReceived: asset.Vests(vests),
	})

	return vests, nil
}

// Stake adds native tokens that already left a balance to the vesting fund
// and credits the stake created for them to the account.
func (e *Engine) Stake(accountID database.AccountID, hive int64) (int64, error) {
	account, err := e.db.Account(accountID)
	if err != nil {
		return 0, err
	}

	g := e.db.Globals()
	vests := g.CreateVests(hive, e.db.Genesis().InitialVestingRatio)
	e.db.SetGlobals(g)

	account.VestingShares += vests
	e.db.PutAccount(account)

	return vests, nil
}

// Withdraw starts a withdrawal schedule that pays the stake out over the
// configured number of intervals. A zero amount cancels the schedule.
func (e *Engine) Withdraw(op operation.WithdrawVesting, now time.Time) error {
	account, err := e.db.Account(op.Account)
	if err != nil {
		return err
	}

	amount := op.VestingShares.Amount

	if amount == 0 {
		if !account.IsWithdrawing() {
			return database.Validationf("account %s is not withdrawing stake", op.Account)
		}
		stopWithdrawal(&account)
		e.db.PutAccount(account)
		return nil
	}

	if available := account.VestingShares - account.DelegatedVestingShares; available < amount {
		return database.Validationf("account %s has insufficient stake: %s < %s", op.Account, asset.Vests(available), op.VestingShares)
	}

	n := int64(e.cfg.WithdrawIntervals)

	account.VestingWithdrawRate = asset.CeilDiv(amount, n)
	account.ToWithdraw = amount
	account.Withdrawn = 0
	account.RemainingWithdrawals = e.cfg.WithdrawIntervals
	account.NextVestingWithdrawal = now.Add(genesis.Seconds(e.cfg.WithdrawIntervalSec))

	e.db.PutAccount(account)

	return nil
}

// SetRoute adds, changes, or with a zero percent removes a withdrawal route.
func (e *Engine) SetRoute(op operation.SetWithdrawVestingRoute) error {
	account, err := e.db.Account(op.FromAccount)
	if err != nil {
		return err
	}
	if _, err := e.db.Account(op.ToAccount); err != nil {
		return err
	}

	routes := slices.Clone(account.WithdrawRoutes)
	idx := slices.IndexFunc(routes, func(r database.WithdrawRoute) bool {
		return r.To == op.ToAccount
	})

	switch {
	case op.PercentBP == 0:
		if idx < 0 {
			return database.Validationf("account %s has no route to %s", op.FromAccount, op.ToAccount)
		}
		routes = slices.Delete(routes, idx, idx+1)

	case idx >= 0:
		routes[idx] = database.WithdrawRoute{To: op.ToAccount, PercentBP: op.PercentBP, AutoVest: op.AutoVest}

	default:
		if len(routes) >= e.cfg.MaxWithdrawRoutes {
			return database.Validationf("account %s already has %d withdraw routes", op.FromAccount, len(routes))
		}
		routes = append(routes, database.WithdrawRoute{To: op.ToAccount, PercentBP: op.PercentBP, AutoVest: op.AutoVest})
	}

	var total int
	for _, r := range routes {
		total += int(r.PercentBP)
	}
	if total > operation.Percent100 {
		return database.Validationf("withdraw routes of %s sum to more than 100%%", op.FromAccount)
	}

	account.WithdrawRoutes = routes
	e.db.PutAccount(account)

	return nil
}

// Claim moves pending rewards into spendable balances.
func (e *Engine) Claim(op operation.ClaimRewardBalance, now time.Time) error {
	account, err := e.db.Account(op.Account)
	if err != nil {
		return err
	}

	switch {
	case op.RewardHive.Amount > account.RewardHiveBalance:
		return database.Validationf("cannot claim %s, %s pending", op.RewardHive, asset.Hive(account.RewardHiveBalance))
	case op.RewardHBD.Amount > account.RewardHBDBalance:
		return database.Validationf("cannot claim %s, %s pending", op.RewardHBD, asset.HBDs(account.RewardHBDBalance))
	case op.RewardVests.Amount > account.RewardVestingBalance:
		return database.Validationf("cannot claim %s, %s pending", op.RewardVests, asset.Vests(account.RewardVestingBalance))
	}

	account.RewardHiveBalance -= op.RewardHive.Amount
	account.Balance += op.RewardHive.Amount

	account.RewardHBDBalance -= op.RewardHBD.Amount
	if err := e.interest.AdjustBalance(&account, op.RewardHBD.Amount, now); err != nil {
		return err
	}

	if vests := op.RewardVests.Amount; vests > 0 {
		hive := account.RewardVestingHive
		if vests < account.RewardVestingBalance {
			hive = asset.MustMulDiv(account.RewardVestingHive, vests, account.RewardVestingBalance)
		}

		account.RewardVestingBalance -= vests
		account.RewardVestingHive -= hive
		account.VestingShares += vests

		g := e.db.Globals()
		g.PendingRewardedVestingShares -= vests
		g.PendingRewardedVestingHive -= hive
		g.TotalVestingShares += vests
		g.TotalVestingFundHive += hive
		e.db.SetGlobals(g)
	}

	e.db.PutAccount(account)

	return nil
}

func stopWithdrawal(account *database.Account) {
	account.VestingWithdrawRate = 0
	account.ToWithdraw = 0
	account.Withdrawn = 0
	account.RemainingWithdrawals = 0
	account.NextVestingWithdrawal = database.Never
}
