package conversion_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/conversion"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
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

func newEngine(t *testing.T) (*database.Database, *oplog.Emitter, *conversion.Engine, genesis.Genesis) {
	gen := genesis.Default()
	gen.Date = start
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(holder): 100_000, string(friend): 0}

	db, err := database.New(gen)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
	}

	par := asset.NewPrice(asset.HBDs(1000), asset.Hive(1000))

	g := db.Globals()
	g.Feed.CurrentMedian = par
	g.Feed.MarketMedian = par
	g.Feed.CurrentMin = par
	g.Feed.CurrentMax = par
	g.CurrentHBDSupply = 2000
	db.SetGlobals(g)

	acct, _ := db.Account(holder)
	acct.HBDBalance = 2000
	db.PutAccount(acct)

	em := oplog.New()
	em.BeginBlock(1, start)

	ie := interest.New(db, em, gen.Interest)

	return db, em, conversion.New(db, em, ie, gen.Conversion, gen.Feed), gen
}

func Test_Convert(t *testing.T) {
	db, em, eng, gen := newEngine(t)
	delay := genesis.Seconds(gen.Conversion.DelaySec)

	t.Log("Given the need to convert pegged tokens after a delay.")
	{
		t.Logf("\tTest 0:\tWhen converting 1000 pegged units at par.")
		{
			op := operation.Convert{Owner: holder, RequestID: 1, Amount: asset.HBDs(1000)}
			if err := eng.Convert(op, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to convert: %v", failed, err)
			}
			if err := eng.Convert(op, start); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 0:\tShould reject a duplicate request id, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a duplicate request id.", success)

			if err := eng.Process(start.Add(delay - time.Second)); err != nil || em.Len() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not settle early: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not settle early.", success)

			if err := eng.Process(start.Add(delay)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to settle: %v", failed, err)
			}

			recs := em.Records()
			if len(recs) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould emit one fill, got %d.", failed, len(recs))
			}
			fill := recs[0].Op.Payload.(operation.FillConvertRequest)
			if fill.AmountOut != asset.Hive(1000) {
				t.Fatalf("\t%s\tTest 0:\tShould pay 1000 native units, got %s.", failed, fill.AmountOut)
			}
			t.Logf("\t%s\tTest 0:\tShould pay 1000 native units.", success)

			g := db.Globals()
			if g.CurrentHBDSupply != 1000 || g.CurrentSupply != 101_000 {
				t.Fatalf("\t%s\tTest 0:\tShould move supply between tokens, got %d and %d.", failed, g.CurrentHBDSupply, g.CurrentSupply)
			}
			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}
	}
}

func Test_CollateralizedConvert(t *testing.T) {
	db, em, eng, gen := newEngine(t)
	delay := genesis.Seconds(gen.Conversion.DelaySec)

	t.Log("Given the need to print pegged tokens against collateral.")
	{
		t.Logf("\tTest 0:\tWhen locking 10000 native units.")
		{
			op := operation.CollateralizedConvert{Owner: holder, RequestID: 7, Amount: asset.Hive(10_000)}
			if err := eng.CollateralizedConvert(op, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to convert: %v", failed, err)
			}

			acct, _ := db.Account(holder)
			if acct.HBDBalance != 2000+4750 || acct.Balance != 90_000 {
				t.Fatalf("\t%s\tTest 0:\tShould pay 4750 pegged units right away, got %d and %d.", failed, acct.HBDBalance, acct.Balance)
			}
			t.Logf("\t%s\tTest 0:\tShould pay 4750 pegged units right away.", success)

			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced while pending: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced while pending.", success)
		}

		t.Logf("\tTest 1:\tWhen the conversion settles.")
		{
			if err := eng.Process(start.Add(delay)); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to settle: %v", failed, err)
			}

			var fill operation.FillCollateralizedConvertRequest
			for _, r := range em.Records() {
				if f, ok := r.Op.Payload.(operation.FillCollateralizedConvertRequest); ok {
					fill = f
				}
			}
			if fill.AmountIn != asset.Hive(5000) || fill.ExcessCollateral != asset.Hive(5000) {
				t.Fatalf("\t%s\tTest 1:\tShould burn 5000 and return 5000, got %+v.", failed, fill)
			}
			t.Logf("\t%s\tTest 1:\tShould burn 5000 and return 5000.", success)

			acct, _ := db.Account(holder)
			if acct.Balance != 95_000 {
				t.Fatalf("\t%s\tTest 1:\tShould return the excess, got %d.", failed, acct.Balance)
			}
			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the ledger balanced.", success)
		}

		t.Logf("\tTest 2:\tWhen printing is stopped.")
		{
			g := db.Globals()
			g.HBDPrintRate = 0
			db.SetGlobals(g)

			op := operation.CollateralizedConvert{Owner: holder, RequestID: 8, Amount: asset.Hive(1000)}
			if err := eng.CollateralizedConvert(op, start); !database.IsValidationError(err) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the conversion, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the conversion.", success)
		}
	}
}

func Test_Savings(t *testing.T) {
	db, em, eng, gen := newEngine(t)
	delay := genesis.Seconds(gen.Conversion.SavingsWithdrawSec)

	t.Log("Given the need to withdraw from savings after a delay.")
	{
		t.Logf("\tTest 0:\tWhen moving funds through savings.")
		{
			if err := eng.ToSavings(operation.TransferToSavings{From: holder, To: holder, Amount: asset.Hive(500)}, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to deposit: %v", failed, err)
			}
			if err := eng.FromSavings(operation.TransferFromSavings{From: holder, RequestID: 1, To: friend, Amount: asset.Hive(300)}, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to withdraw: %v", failed, err)
			}
			if err := eng.FromSavings(operation.TransferFromSavings{From: holder, RequestID: 2, To: friend, Amount: asset.Hive(100)}, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to withdraw: %v", failed, err)
			}
			if err := eng.CancelFromSavings(operation.CancelTransferFromSavings{From: holder, RequestID: 2}, start); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to cancel: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the savings operations.", success)

			if err := eng.Process(start.Add(delay)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to settle: %v", failed, err)
			}

			fr, _ := db.Account(friend)
			acct, _ := db.Account(holder)
			if fr.Balance != 300 || acct.SavingsBalance != 200 || acct.SavingsWithdrawRequests != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould pay 300 and keep 200 saved, got %d and %d.", failed, fr.Balance, acct.SavingsBalance)
			}
			t.Logf("\t%s\tTest 0:\tShould pay 300 and keep 200 saved.", success)

			recs := em.Records()
			if len(recs) != 1 || recs[0].Op.Kind() != operation.KindFillTransferFromSavings {
				t.Fatalf("\t%s\tTest 0:\tShould emit one fill, got %d records.", failed, len(recs))
			}
			t.Logf("\t%s\tTest 0:\tShould emit one fill.", success)

			if err := db.Audit(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep the ledger balanced: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep the ledger balanced.", success)
		}
	}
}
