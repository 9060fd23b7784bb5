package recurrent_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/recurrent"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	producer = database.AccountID("0xFef311483Cc040e1A89fb9bb469eeB8A70935EF8")
	payer    = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	payee    = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func Test_Termination(t *testing.T) {
	type table struct {
		name          string
		balance       uint64
		executions    uint16
		expFills      int
		expTerminals  int
		expTerminal   operation.Kind
		expDeleted    bool
		expPayeeFunds int64
	}

	tt := []table{
		{"funded", 300, 3, 3, 1, operation.KindCompletedRecurrentTransfer, false, 300},
		{"running dry", 100, 20, 1, 1, operation.KindAbortedRecurrentTransfer, true, 100},
		{"failing its last execution", 100, 2, 1, 0, operation.KindFailedRecurrentTransfer, true, 100},
	}

	t.Log("Given the need to end every recurrent transfer.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen the transfer is %s.", testID, tst.name)
			{
				gen := genesis.Default()
				gen.Date = start
				gen.Producers = []string{string(producer)}
				gen.Balances = map[string]uint64{string(payer): tst.balance, string(payee): 0}
				gen.Recurrent.FailureLimit = 3

				db, err := database.New(gen)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to open database: %v", failed, testID, err)
				}

				em := oplog.New()
				sch := recurrent.New(db, em, interest.New(db, em, gen.Interest), gen.Recurrent)

				op := operation.RecurrentTransfer{
					From:       payer,
					To:         payee,
					Amount:     asset.Hive(100),
					Recurrence: gen.Recurrent.MinRecurrenceHours,
					Executions: tst.executions,
				}
				if err := sch.Set(op, start); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to create the transfer: %v", failed, testID, err)
				}

				bound := max(int(tst.executions), int(gen.Recurrent.FailureLimit))

				var fills, terminals, ticks int
				var deleted bool
				terminal := operation.KindFailedRecurrentTransfer
				now := start
				for ticks = 1; ticks <= bound; ticks++ {
					em.BeginBlock(uint64(ticks), now)
					if err := sch.Process(now); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to process: %v", failed, testID, err)
					}

					for _, r := range em.Records() {
						switch k := r.Op.Kind(); k {
						case operation.KindFillRecurrentTransfer:
							fills++
						case operation.KindFailedRecurrentTransfer:
							deleted = r.Op.Payload.(operation.FailedRecurrentTransfer).Deleted
						case operation.KindCompletedRecurrentTransfer, operation.KindAbortedRecurrentTransfer:
							terminals++
							terminal = k
						}
					}

					if db.Recurrent.Len() == 0 {
						break
					}
					now = now.Add(time.Duration(op.Recurrence) * time.Hour)
				}

				if db.Recurrent.Len() != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould remove the transfer within %d ticks.", failed, testID, bound)
				}
				t.Logf("\t%s\tTest %d:\tShould remove the transfer after %d ticks.", success, testID, ticks)

				if terminals != tst.expTerminals || terminal != tst.expTerminal {
					t.Fatalf("\t%s\tTest %d:\tShould end with %s, got %s and %d terminal records.", failed, testID, tst.expTerminal, terminal, terminals)
				}
				t.Logf("\t%s\tTest %d:\tShould end with %s.", success, testID, tst.expTerminal)

				if deleted != tst.expDeleted {
					t.Fatalf("\t%s\tTest %d:\tShould report the deletion on the last failure: %t.", failed, testID, tst.expDeleted)
				}
				t.Logf("\t%s\tTest %d:\tShould report the deletion on the last failure: %t.", success, testID, tst.expDeleted)

				if fills != tst.expFills {
					t.Fatalf("\t%s\tTest %d:\tShould fill %d times, got %d.", failed, testID, tst.expFills, fills)
				}
				t.Logf("\t%s\tTest %d:\tShould fill %d times.", success, testID, tst.expFills)

				to, _ := db.Account(payee)
				from, _ := db.Account(payer)
				if to.Balance != tst.expPayeeFunds || from.OpenRecurrentTransfers != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould move %d and free the slot, got %d and %d open.", failed, testID, tst.expPayeeFunds, to.Balance, from.OpenRecurrentTransfers)
				}
				t.Logf("\t%s\tTest %d:\tShould move %d and free the slot.", success, testID, tst.expPayeeFunds)
			}
		}
	}
}

func Test_Validation(t *testing.T) {
	gen := genesis.Default()
	gen.Date = start
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(payer): 1000, string(payee): 0}

	db, err := database.New(gen)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open database: %v", failed, err)
	}

	em := oplog.New()
	sch := recurrent.New(db, em, interest.New(db, em, gen.Interest), gen.Recurrent)

	type table struct {
		name string
		op   operation.RecurrentTransfer
	}

	tt := []table{
		{"a short recurrence", operation.RecurrentTransfer{From: payer, To: payee, Amount: asset.Hive(1), Recurrence: 1, Executions: 2}},
		{"a single execution", operation.RecurrentTransfer{From: payer, To: payee, Amount: asset.Hive(1), Recurrence: 24, Executions: 1}},
		{"too little balance", operation.RecurrentTransfer{From: payer, To: payee, Amount: asset.Hive(5000), Recurrence: 24, Executions: 2}},
		{"removing a missing transfer", operation.RecurrentTransfer{From: payer, To: payee, Amount: asset.Hive(0), Recurrence: 24, Executions: 2}},
	}

	t.Log("Given the need to reject invalid recurrent transfers.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				if err := sch.Set(tst.op, start); !database.IsValidationError(err) {
					t.Fatalf("\t%s\tTest %d:\tShould reject the transfer, got %v.", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould reject the transfer.", success, testID)
			}
		}
	}
}
