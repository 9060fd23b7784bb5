package events_test

import (
	"testing"

	"github.com/ardanlabs/rewardchain/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out node events.")
	{
		t.Logf("\tTest 0:\tWhen receivers subscribe with prefixes.")
		{
			evts := events.New()

			all := evts.Acquire("all", "")
			blocks := evts.Acquire("blocks", "viewer: block:")

			if n := evts.Send("state: ProduceBlock: blk[1]: started"); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould deliver to one receiver, got %d.", failed, n)
			}
			if n := evts.Send(`viewer: block: {"hash":"0x00"}`); n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould deliver to both receivers, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould deliver by prefix.", success)

			if len(all) != 2 || len(blocks) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould buffer the events, got %d and %d.", failed, len(all), len(blocks))
			}
			t.Logf("\t%s\tTest 0:\tShould buffer the events.", success)

			if err := evts.Release("blocks"); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to release: %v", failed, err)
			}
			if err := evts.Release("blocks"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould fail releasing twice.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to release a receiver once.", success)

			evts.Shutdown()
			if evts.Count() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould remove every receiver on shutdown.", failed)
			}
			<-all
			<-all
			if _, open := <-all; open {
				t.Fatalf("\t%s\tTest 0:\tShould close the channels on shutdown.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close the channels on shutdown.", success)
		}
	}
}
