// Package interest accrues interest on pegged token balances. Interest is
// computed lazily: every change to a pegged balance goes through the engine,
// which first settles the interest earned since the last change.
package interest

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
)

// SecondsPerYear is the length of the interest year.
const SecondsPerYear = 60 * 60 * 24 * 365

// Accrue returns floor(balance * seconds * rateBP / (10000 * SecondsPerYear)).
func Accrue(balance int64, seconds int64, rateBP int64) int64 {
	if balance <= 0 || seconds <= 0 || rateBP <= 0 {
		return 0
	}
	return payout(asset.WideFromInt(balance).Mul(asset.WideFromInt(seconds)), rateBP)
}

// payout converts an accumulated balance-seconds value into interest.
func payout(balanceSeconds asset.Wide, rateBP int64) int64 {
	n := balanceSeconds.Mul(asset.WideFromInt(rateBP))
	return n.Div(asset.WideFromInt(10000 * SecondsPerYear)).Int64()
}

// =============================================================================

// Engine applies pegged balance changes with interest.
type Engine struct {
	db  *database.Database
	em  *oplog.Emitter
	cfg genesis.Interest
}

// New constructs an interest engine.
func New(db *database.Database, em *oplog.Emitter, cfg genesis.Interest) *Engine {
	return &Engine{
		db:  db,
		em:  em,
		cfg: cfg,
	}
}

// AdjustBalance settles the interest on the liquid pegged balance and then
// applies the delta. The account is changed in place and must be stored by
// the caller. A delta that would make the balance negative is rejected.
func (e *Engine) AdjustBalance(account *database.Account, delta int64, now time.Time) error {
	e.accrue(account, &account.HBDBalance, &account.HBDInterest, e.cfg.Liquid, false, now)

	if account.HBDBalance+delta < 0 {
		return database.Validationf("account %s has insufficient %s: %s < %s", account.AccountID, asset.HBD, asset.HBDs(account.HBDBalance), asset.HBDs(-delta))
	}
	account.HBDBalance += delta

	return nil
}

// AdjustSavings settles the interest on the pegged savings balance and then
// applies the delta.
func (e *Engine) AdjustSavings(account *database.Account, delta int64, now time.Time) error {
	e.accrue(account, &account.SavingsHBDBalance, &account.SavingsInterest, true, true, now)

	if account.SavingsHBDBalance+delta < 0 {
		return database.Validationf("account %s has insufficient %s in savings: %s < %s", account.AccountID, asset.HBD, asset.HBDs(account.SavingsHBDBalance), asset.HBDs(-delta))
	}
	account.SavingsHBDBalance += delta

	return nil
}

// Pending returns the interest the balance would be paid if it changed now.
func (e *Engine) Pending(account database.Account, savings bool, now time.Time) int64 {
	balance, state, enabled := account.HBDBalance, account.HBDInterest, e.cfg.Liquid
	if savings {
		balance, state, enabled = account.SavingsHBDBalance, account.SavingsInterest, true
	}
	if !enabled {
		return 0
	}

	seconds := state.Seconds.Add(elapsed(balance, state.LastUpdate, now))
	return payout(seconds, e.db.Globals().HBDInterestRate)
}

// accrue adds the balance-seconds since the last update and pays interest
// when the compounding interval has passed. Fractions of a unit stay in the
// accumulator until they add up to a payable amount.
func (e *Engine) accrue(account *database.Account, balance *int64, state *database.InterestState, enabled bool, savings bool, now time.Time) {
	if !enabled {
		state.Seconds = asset.Wide{}
		state.LastUpdate = now
		return
	}

	if state.LastUpdate.IsZero() {
		state.LastUpdate = now
		state.LastPayment = now
		return
	}

	state.Seconds = state.Seconds.Add(elapsed(*balance, state.LastUpdate, now))
	state.LastUpdate = now

	if now.Sub(state.LastPayment) < genesis.Seconds(e.cfg.CompoundIntervalSec) {
		return
	}

	g := e.db.Globals()

	interest := payout(state.Seconds, g.HBDInterestRate)
	if interest <= 0 {
		return
	}

	*balance += interest
	state.Seconds = asset.Wide{}
	state.LastPayment = now

	g.CurrentHBDSupply += interest
	e.db.SetGlobals(g)

	e.em.Emit(operation.Interest{
		Owner:            account.AccountID,
		Interest:         asset.HBDs(interest),
		IsSavingInterest: savings,
	})
}

// elapsed returns balance * seconds between the two times.
func elapsed(balance int64, from time.Time, to time.Time) asset.Wide {
	seconds := int64(to.Sub(from) / time.Second)
	if balance <= 0 || seconds <= 0 {
		return asset.Wide{}
	}
	return asset.WideFromInt(balance).Mul(asset.WideFromInt(seconds))
}
