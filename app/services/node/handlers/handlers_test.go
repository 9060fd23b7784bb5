package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ardanlabs/rewardchain/app/services/node/handlers"
	"github.com/ardanlabs/rewardchain/business/web/errs"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/opstore"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/rewardchain/foundation/events"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	producer = database.AccountID("0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4")
	receiver = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
)

func newApp(t *testing.T) (http.Handler, *state.State) {
	gen := genesis.Default()
	gen.Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gen.Producers = []string{string(producer)}
	gen.Balances = map[string]uint64{string(producer): 1_000_000, string(receiver): 0}
	gen.ValidateInvariants = true

	ops, err := opstore.Open(":memory:", 8)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to open the operation store: %v", failed, err)
	}

	st, err := state.New(state.Config{
		ProducerID: producer,
		Genesis:    gen,
		Storage:    memory.New(),
		OpStore:    ops,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	app := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: make(chan os.Signal, 1),
		Log:      zap.NewNop().Sugar(),
		State:    st,
		Evts:     events.New(),
	})

	return app, st
}

func Test_PublicAPI(t *testing.T) {
	t.Log("Given the need to serve the ledger over HTTP.")
	{
		app, st := newApp(t)

		t.Logf("\tTest 0:\tWhen submitting a signed transfer.")
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load a private key: %v", failed, err)
			}

			tx, err := storage.NewTx(1, 1, operation.New(operation.Transfer{From: producer, To: receiver, Amount: asset.Hive(250), Memo: "rent"}))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to build a transaction: %v", failed, err)
			}
			signed, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign a transaction: %v", failed, err)
			}

			body, err := json.Marshal(signed)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to marshal the transaction: %v", failed, err)
			}

			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tx/submit", bytes.NewReader(body)))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction, got %d: %s", failed, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest 0:\tShould accept the transaction.", success)

			w = httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/tx/submit", bytes.NewReader(body)))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould replace the pending transaction, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould replace the pending transaction.", success)

			if _, err := st.ProduceBlock(context.Background(), time.Date(2026, 1, 1, 0, 0, 3, 0, time.UTC)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to produce a block: %v", failed, err)
			}

			w = httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/blocks/ops/1?legacy=true&low=4", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould return the block operations, got %d: %s", failed, w.Code, w.Body.String())
			}

			var resp struct {
				Block uint64            `json:"block"`
				Ops   []json.RawMessage `json:"ops"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould decode the response: %v", failed, err)
			}
			if resp.Block != 1 || len(resp.Ops) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould filter down to the transfer, got %d ops.", failed, len(resp.Ops))
			}
			if !bytes.Contains(resp.Ops[0], []byte(`"0.250 HIVE"`)) {
				t.Fatalf("\t%s\tTest 0:\tShould render legacy amounts: %s", failed, resp.Ops[0])
			}
			t.Logf("\t%s\tTest 0:\tShould return the filtered operations in legacy form.", success)
		}

		t.Logf("\tTest 1:\tWhen requests are malformed.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/accounts/history/"+string(receiver)+"?limit=5000", nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest 1:\tShould reject a large limit, got %d.", failed, w.Code)
			}

			var er errs.Response
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Fields["limit"] == "" {
				t.Fatalf("\t%s\tTest 1:\tShould name the failing field: %s", failed, w.Body.String())
			}
			t.Logf("\t%s\tTest 1:\tShould reject a large limit.", success)

			w = httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/accounts/list/0x0000000000000000000000000000000000000001", nil))
			if w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest 1:\tShould not find an unknown account, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould not find an unknown account.", success)
		}

		t.Logf("\tTest 2:\tWhen reading the account history.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/accounts/history/"+string(receiver), nil))
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 2:\tShould return the history, got %d: %s", failed, w.Code, w.Body.String())
			}

			var entries []opstore.Entry
			if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil || len(entries) != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould hold the transfer, got %d: %v", failed, len(entries), err)
			}
			t.Logf("\t%s\tTest 2:\tShould hold the transfer.", success)
		}
	}
}
