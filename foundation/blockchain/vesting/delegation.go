package vesting

import (
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// Delegate sets the stake delegated from one account to another to the new
// total. An increase takes effect right away. A decrease is removed from the
// delegatee right away but only returns to the delegator once the cooldown
// has passed.
func (e *Engine) Delegate(op operation.DelegateVestingShares, now time.Time) error {
	delegator, err := e.db.Account(op.Delegator)
	if err != nil {
		return err
	}
	delegatee, err := e.db.Account(op.Delegatee)
	if err != nil {
		return err
	}

	key := database.DelegationKey{Delegator: op.Delegator, Delegatee: op.Delegatee}
	d, exists := e.db.Delegations.Get(key)
	if !exists {
		d = database.Delegation{
			Delegator: op.Delegator,
			Delegatee: op.Delegatee,
			Created:   now,
		}
	}

	amount := op.VestingShares.Amount

	switch {
	case amount == d.VestingShares:
		return database.Validationf("delegation from %s to %s is already %s", op.Delegator, op.Delegatee, op.VestingShares)

	case amount > d.VestingShares:
		delta := amount - d.VestingShares
		if available := delegator.AvailableVestingShares(); available < delta {
			return database.Validationf("account %s has insufficient stake to delegate: %s < %s", op.Delegator, asset.Vests(available), asset.Vests(delta))
		}

		delegator.DelegatedVestingShares += delta
		delegatee.ReceivedVestingShares += delta

	default:
		delta := d.VestingShares - amount
		if delegatee.ReceivedVestingShares < delta {
			return database.Invariantf("account %s received %d but returns %d", op.Delegatee, delegatee.ReceivedVestingShares, delta)
		}
		delegatee.ReceivedVestingShares -= delta

		g := e.db.Globals()
		g.NextReturnID++
		e.db.SetGlobals(g)

		e.db.Returns.Put(g.NextReturnID, database.DelegationReturn{
			ID:            g.NextReturnID,
			Delegator:     op.Delegator,
			Delegatee:     op.Delegatee,
			VestingShares: delta,
			ReturnTime:    now.Add(genesis.Seconds(e.cfg.DelegationReturnSec)),
		})
	}

	e.db.PutAccount(delegator)
	e.db.PutAccount(delegatee)

	switch amount {
	case 0:
		e.db.Delegations.Delete(key)
	default:
		d.VestingShares = amount
		e.db.Delegations.Put(key, d)
	}

	return nil
}

// ProcessReturns gives stake removed from delegations back to the delegators
// once their cooldown has passed.
func (e *Engine) ProcessReturns(now time.Time) error {
	due := e.db.Returns.Select(func(r database.DelegationReturn) bool {
		return !r.ReturnTime.After(now)
	}, func(a, b database.DelegationReturn) int {
		if c := a.ReturnTime.Compare(b.ReturnTime); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	for _, r := range due {
		delegator, err := e.db.Account(r.Delegator)
		if err != nil {
			return err
		}
		if delegator.DelegatedVestingShares < r.VestingShares {
			return database.Invariantf("account %s delegated %d but is returned %d", r.Delegator, delegator.DelegatedVestingShares, r.VestingShares)
		}

		delegator.DelegatedVestingShares -= r.VestingShares
		e.db.PutAccount(delegator)
		e.db.Returns.Delete(r.ID)

		e.em.Emit(operation.ReturnVestingDelegation{
			Account:       r.Delegator,
			VestingShares: asset.Vests(r.VestingShares),
		})
	}

	return nil
}

// Delegations returns the active delegations made by the account.
func (e *Engine) Delegations(delegator database.AccountID) []database.Delegation {
	return e.db.Delegations.Select(func(d database.Delegation) bool {
		return d.Delegator == delegator
	}, func(a, b database.Delegation) int {
		switch {
		case a.Delegatee < b.Delegatee:
			return -1
		case a.Delegatee > b.Delegatee:
			return 1
		}
		return 0
	})
}
