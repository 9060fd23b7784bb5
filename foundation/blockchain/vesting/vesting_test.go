package vesting_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/vesting"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	producer = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
	holder   = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	friend   = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*database.Database, *oplog.Emitter, *vesting.Engine, genesis.Genesis) {
	gen := genesis.Default()
	gen.Date = start
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(holder): 5000, string(friend): 0}
	gen.Stakes = map[string]uint64{string(holder): 1000}

	db, err := database.New(gen)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
	}

	em := oplog.New()
	em.BeginBlock(1, start)

	ie := interest.New(db, em, gen.Interest)

	return db, em, vesting.New(db, em, ie, gen.Vesting), gen
}

func Test_WithdrawalCompleteness(t *testing.T) {
	db, em, eng, gen := newEngine(t)

	const requested = 1_000_000
	interval := genesis.Seconds(gen.Vesting.WithdrawIntervalSec)

	t.Log("Given the need to withdraw stake over a schedule.")
	{
		t.Logf("\tTest 0:\tWhen withdrawing %d stake with a 30%% route.", requested)
		{
			route := operation.SetWithdrawVestingRoute{FromAccount: holder, ToAccount: friend, PercentBP: 3000}
			if err := eng.SetRoute(route); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to set the route: %v", failed, err)
			}

			op := operation.WithdrawVesting{Account: holder, VestingShares: asset.Vests(requested)}
			if err := eng.Withdraw(op, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to start the withdrawal: %v", failed, err)
			}

			var withdrawn int64
			var fills int
			now := start
			for i := 0; i < int(gen.Vesting.WithdrawIntervals)+2; i++ {
				now = now.Add(interval)
				em.BeginBlock(1, now)

				if err := eng.ProcessWithdrawals(now); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to process withdrawals: %v", failed, err)
				}

				for _, r := range em.Records() {
					fill := r.Op.Payload.(operation.FillVestingWithdraw)
					withdrawn += fill.Withdrawn.Amount
					fills++
				}
			}

			if withdrawn != requested {
				t.Fatalf("\t%s\tTest 0:\tShould withdraw exactly %d, got %d.", failed, requested, withdrawn)
			}
			t.Logf("\t%s\tTest 0:\tShould withdraw exactly %d over %d fills.", success, requested, fills)

			acct, _ := db.Account(holder)
			if acct.IsWithdrawing() || acct.VestingShares != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould end the schedule with no stake left, got %d.", failed, acct.VestingShares)
			}
			t.Logf("\t%s\tTest 0:\tShould end the schedule.", success)

			fr, _ := db.Account(friend)
			if fr.Balance == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould pay the route.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould pay the route.", success)

			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}
	}
}

func Test_DelegationReduction(t *testing.T) {
	db, em, eng, gen := newEngine(t)

	cooldown := genesis.Seconds(gen.Vesting.DelegationReturnSec)

	delegate := func(amount int64) error {
		return eng.Delegate(operation.DelegateVestingShares{
			Delegator:     holder,
			Delegatee:     friend,
			VestingShares: asset.Vests(amount),
		}, start)
	}

	t.Log("Given the need to return reduced delegations after a cooldown.")
	{
		t.Logf("\tTest 0:\tWhen delegating 3 then reducing to 2.")
		{
			if err := delegate(3); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to delegate: %v", failed, err)
			}
			if err := delegate(2); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to reduce the delegation: %v", failed, err)
			}

			fr, _ := db.Account(friend)
			if fr.ReceivedVestingShares != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould leave 2 received right away, got %d.", failed, fr.ReceivedVestingShares)
			}
			t.Logf("\t%s\tTest 0:\tShould leave 2 received right away.", success)

			if err := eng.ProcessReturns(start.Add(cooldown - time.Second)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to process returns: %v", failed, err)
			}
			acct, _ := db.Account(holder)
			if em.Len() != 0 || acct.DelegatedVestingShares != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould not return before the cooldown, got %d delegated.", failed, acct.DelegatedVestingShares)
			}
			t.Logf("\t%s\tTest 0:\tShould not return before the cooldown.", success)

			if err := eng.ProcessReturns(start.Add(cooldown)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to process returns: %v", failed, err)
			}

			recs := em.Records()
			if len(recs) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould emit one return, got %d.", failed, len(recs))
			}
			ret := recs[0].Op.Payload.(operation.ReturnVestingDelegation)
			if ret.Account != holder || ret.VestingShares.Amount != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould return 1 to the delegator, got %+v.", failed, ret)
			}
			t.Logf("\t%s\tTest 0:\tShould return 1 to the delegator after the cooldown.", success)

			acct, _ = db.Account(holder)
			if acct.DelegatedVestingShares != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould keep 2 delegated, got %d.", failed, acct.DelegatedVestingShares)
			}
			t.Logf("\t%s\tTest 0:\tShould keep 2 delegated.", success)
		}

		t.Logf("\tTest 1:\tWhen delegating more than is available.")
		{
			if err := delegate(10_000_000); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the delegation, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the delegation.", success)
		}

		t.Logf("\tTest 2:\tWhen stake is already scheduled for withdrawal.")
		{
			op := operation.WithdrawVesting{Account: holder, VestingShares: asset.Vests(600_000)}
			if err := eng.Withdraw(op, start); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to start the withdrawal: %v", failed, err)
			}

			if err := delegate(500_000); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould reject delegating the stake being withdrawn, got %v.", failed, err)
			}
			fr, _ := db.Account(friend)
			if fr.ReceivedVestingShares != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the delegatee untouched, got %d.", failed, fr.ReceivedVestingShares)
			}
			t.Logf("\t%s\tTest 2:\tShould reject delegating the stake being withdrawn.", success)

			if err := delegate(300_000); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould delegate from the stake still available: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould delegate from the stake still available.", success)
		}
	}
}

func Test_Stake(t *testing.T) {
	db, em, eng, gen := newEngine(t)

	t.Log("Given the need to convert native tokens to stake.")
	{
		t.Logf("\tTest 0:\tWhen staking for another account.")
		{
			op := operation.TransferToVesting{From: holder, To: friend, Amount: asset.Hive(2000)}
			vests, err := eng.TransferToVesting(op)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to stake: %v", failed, err)
			}
			if vests != 2000*gen.InitialVestingRatio {
				t.Fatalf("\t%s\tTest 0:\tShould buy stake at the current price, got %d.", failed, vests)
			}
			t.Logf("\t%s\tTest 0:\tShould buy stake at the current price.", success)

			recs := em.Records()
			if len(recs) != 1 || recs[0].Op.Kind() != operation.KindTransferToVestingCompleted {
				t.Fatalf("\t%s\tTest 0:\tShould emit the completion.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould emit the completion.", success)

			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}

		t.Logf("\tTest 1:\tWhen staking more than the balance.")
		{
			op := operation.TransferToVesting{From: holder, Amount: asset.Hive(1_000_000)}
			if _, err := eng.TransferToVesting(op); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the stake, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the stake.", success)
		}
	}
}
