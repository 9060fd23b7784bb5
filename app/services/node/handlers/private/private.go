// Package private maintains the group of handlers for operator access.
package private

import (
	"context"
	"errors"
	"net/http"

	"github.com/ardanlabs/rewardchain/business/web/errs"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of operator endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latestBlock := h.State.LatestBlock()
	g := h.State.QueryGlobals()

	status := struct {
		Producer          database.AccountID `json:"producer"`
		LatestBlockHash   string             `json:"latest_block_hash"`
		LatestBlockNumber uint64             `json:"latest_block_number"`
		HeadBlockTime     string             `json:"head_block_time"`
		CurrentSupply     int64              `json:"current_supply"`
		CurrentHBDSupply  int64              `json:"current_hbd_supply"`
		Mempool           int                `json:"mempool"`
	}{
		Producer:          h.State.ProducerID(),
		LatestBlockHash:   latestBlock.Hash(),
		LatestBlockNumber: latestBlock.Header.Number,
		HeadBlockTime:     g.HeadBlockTime.Format("2006-01-02T15:04:05"),
		CurrentSupply:     g.CurrentSupply,
		CurrentHBDSupply:  g.CurrentHBDSupply,
		Mempool:           h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// SignalProduceBlock asks the worker to produce a block now instead of
// waiting for the next interval.
func (h Handlers) SignalProduceBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.Worker == nil {
		return errs.NewTrusted(errors.New("block production is not running"), http.StatusServiceUnavailable)
	}

	h.State.Worker.SignalProduceBlock()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "block production signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// DueCashouts returns the cashouts the next block will pay.
func (h Handlers) DueCashouts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	next := h.State.QueryGlobals().HeadBlockTime.Add(h.State.BlockInterval())
	return web.Respond(ctx, w, h.State.QueryCashouts(next), http.StatusOK)
}
