package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const producer = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"

func Test_Produce(t *testing.T) {
	t.Log("Given the need to produce blocks in the background.")
	{
		t.Logf("\tTest 0:\tWhen a block is requested.")
		{
			gen := genesis.Default()
			gen.Date = time.Now().UTC().Add(-time.Hour)
			gen.Producers = []string{producer}
			gen.Balances = map[string]uint64{producer: 1_000_000}

			st, err := state.New(state.Config{
				ProducerID: producer,
				Genesis:    gen,
				Storage:    memory.New(),
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state: %v", failed, err)
			}

			w := worker.Run(st, nil)
			w.SignalProduceBlock()

			deadline := time.Now().Add(5 * time.Second)
			for st.LatestBlock().Header.Number == 0 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}

			if st.LatestBlock().Header.Number == 0 {
				t.Fatalf("\t%s\tTest 0:\tShould produce a block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould produce a block.", success)

			if err := st.Shutdown(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to shutdown: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to shutdown.", success)
		}
	}
}
