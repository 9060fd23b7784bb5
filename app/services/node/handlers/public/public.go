// Package public maintains the group of handlers for public access.
package public

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/ardanlabs/rewardchain/business/web/errs"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/events"
	"github.com/ardanlabs/rewardchain/foundation/nameservice"
	"github.com/ardanlabs/rewardchain/foundation/validate"
	"github.com/ardanlabs/rewardchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. By default only
// the block events are sent, the prefix query value selects others.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	prefix := "viewer: block:"
	if p, ok := r.URL.Query()["prefix"]; ok {
		prefix = p[0]
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, prefix)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds new user transactions to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Decode the JSON in the post call into a Signed transaction.
	var signedTx storage.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "sig:nonce", signedTx, "ops", len(signedTx.Operations))

	// Ask the state package to add this transaction to the mempool. Only the
	// checks against the head state are run, the block applies the rest.
	if err := h.State.UpsertWalletTransaction(signedTx); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
		TrxID  string `json:"trx_id"`
	}{
		Status: "transactions added to mempool",
		TrxID:  signedTx.ID(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Globals returns the chain wide properties at the head block.
func (h Handlers) Globals(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryGlobals(), http.StatusOK)
}

// RewardFund returns the content reward fund.
func (h Handlers) RewardFund(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryRewardFund(), http.StatusOK)
}

// FeedHistory returns the price feed history and the current median.
func (h Handlers) FeedHistory(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QueryFeedHistory(), http.StatusOK)
}

// Subsidy returns the account creation subsidy pools.
func (h Handlers) Subsidy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.QuerySubsidy(), http.StatusOK)
}

// Accounts returns every account in the ledger.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accounts := h.State.QueryAccounts()

	acts := make([]account, 0, len(accounts))
	for id, act := range accounts {
		acts = append(acts, account{Account: act, Name: h.NS.Lookup(id)})
	}
	slices.SortFunc(acts, func(a, b account) int {
		return cmp.Compare(a.AccountID, b.AccountID)
	})

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash(),
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// Account returns the account with its derived values.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	info, err := h.State.QueryAccount(accountID)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// RecurrentTransfers returns the recurrent transfers an account pays.
func (h Handlers) RecurrentTransfers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, h.State.QueryRecurrentTransfers(accountID), http.StatusOK)
}

// AccountHistory returns the operations that impacted an account. The from
// query value is the last sequence to return, -1 for the latest.
func (h Handlers) AccountHistory(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	q := historyQuery{
		Account: web.Param(r, "account"),
		From:    -1,
		Limit:   100,
	}

	if s := web.Query(r, "from"); s != "" {
		from, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid from: %w", err), http.StatusBadRequest)
		}
		q.From = from
	}
	if s := web.Query(r, "limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid limit: %w", err), http.StatusBadRequest)
		}
		q.Limit = limit
	}

	if err := validate.Check(q); err != nil {
		return err
	}

	entries, err := h.State.QueryAccountHistory(database.AccountID(q.Account), q.From, q.Limit)
	if err != nil {
		return historyError(err)
	}

	return web.Respond(ctx, w, entries, http.StatusOK)
}

// Post returns a post with its votes and pending cashout.
func (h Handlers) Post(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	author, err := database.ToAccountID(web.Param(r, "author"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	info, err := h.State.QueryPost(author, web.Param(r, "permlink"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Cashouts returns the pending cashouts, earliest first. The until query
// value (RFC3339) limits them to those due by then.
func (h Handlers) Cashouts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var until time.Time
	if s := web.Query(r, "until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return errs.NewTrusted(fmt.Errorf("invalid until: %w", err), http.StatusBadRequest)
		}
		until = t
	}

	return web.Respond(ctx, w, h.State.QueryCashouts(until), http.StatusOK)
}

// BlocksByNumber returns all the blocks based on the specified to/from values.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := blockNumber(web.Param(r, "from"))
	if err != nil {
		return err
	}
	to, err := blockNumber(web.Param(r, "to"))
	if err != nil {
		return err
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		return err
	}

	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	out := make([]block, len(blocks))
	for i, blk := range blocks {
		out[i] = toBlock(blk, h.NS)
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// BlockOperations returns the operations of a block in canonical order.
// Query values: virtual=true leaves the real operations out, low and high
// are the kind filter masks, legacy=true renders every operation as a
// [name, value] pair with legacy amount strings.
func (h Handlers) BlockOperations(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := blockNumber(web.Param(r, "block"))
	if err != nil {
		return err
	}

	var filter operation.Filter
	if filter.Low, err = mask(web.Query(r, "low")); err != nil {
		return err
	}
	if filter.High, err = mask(web.Query(r, "high")); err != nil {
		return err
	}

	onlyVirtual := web.Query(r, "virtual") == "true"
	legacy := web.Query(r, "legacy") == "true"

	records, err := h.State.QueryBlockOperations(num, filter, onlyVirtual)
	if err != nil {
		return historyError(err)
	}

	if num == state.QueryLatest {
		num = h.State.LatestBlock().Header.Number
	}

	resp := blockOps{
		Block: num,
		Ops:   make([]json.RawMessage, len(records)),
	}
	for i, rec := range records {
		var data []byte
		switch legacy {
		case true:
			data, err = rec.Legacy()
		default:
			data, err = json.Marshal(rec)
		}
		if err != nil {
			return fmt.Errorf("encoding operation %d: %w", rec.ID, err)
		}
		resp.Ops[i] = data
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Proof returns the merkle proof that a transaction is part of a block.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := blockNumber(web.Param(r, "block"))
	if err != nil {
		return err
	}

	blocks, err := h.State.QueryBlocksByNumber(num, num)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return errs.NewTrusted(fmt.Errorf("block %d: %w", num, storage.ErrNotFound), http.StatusNotFound)
	}

	trxID := web.Param(r, "trxid")
	hashes, sides, err := blocks[0].Proof(trxID)
	if err != nil {
		return errs.NewTrusted(err, http.StatusNotFound)
	}

	resp := proof{
		Block:     blocks[0].Header.Number,
		TrxID:     trxID,
		TransRoot: blocks[0].Header.TransRoot,
		Hashes:    hashes,
		Sides:     sides,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	mempool := h.State.QueryMempool()

	trans := make([]tx, 0, len(mempool))
	for _, tran := range mempool {
		t := toTx(tran, h.NS)
		if acct != "" && acct != string(t.From) {
			continue
		}
		trans = append(trans, t)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// =============================================================================

// blockNumber parses a block number where latest selects the head block.
func blockNumber(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	num, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid block number %q", s), http.StatusBadRequest)
	}

	return num, nil
}

// mask parses a filter mask in decimal or 0x hex.
func mask(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}

	m, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid filter mask %q", s), http.StatusBadRequest)
	}

	return m, nil
}

// historyError maps a missing history store to a response.
func historyError(err error) error {
	if errors.Is(err, state.ErrNoHistory) {
		return errs.NewTrusted(err, http.StatusNotImplemented)
	}
	return err
}
