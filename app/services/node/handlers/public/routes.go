package public

import (
	"net/http"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/state"
	"github.com/ardanlabs/rewardchain/foundation/events"
	"github.com/ardanlabs/rewardchain/foundation/nameservice"
	"github.com/ardanlabs/rewardchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// Routes binds all the public routes.
func Routes(app *web.App, cfg Config) {
	pbl := Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/globals", pbl.Globals)
	app.Handle(http.MethodGet, version, "/rewardfund", pbl.RewardFund)
	app.Handle(http.MethodGet, version, "/feed", pbl.FeedHistory)
	app.Handle(http.MethodGet, version, "/subsidy", pbl.Subsidy)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/list/:account", pbl.Account)
	app.Handle(http.MethodGet, version, "/accounts/history/:account", pbl.AccountHistory)
	app.Handle(http.MethodGet, version, "/accounts/recurrent/:account", pbl.RecurrentTransfers)
	app.Handle(http.MethodGet, version, "/posts/:author/:permlink", pbl.Post)
	app.Handle(http.MethodGet, version, "/cashouts/list", pbl.Cashouts)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/ops/:block", pbl.BlockOperations)
	app.Handle(http.MethodGet, version, "/blocks/proof/:block/:trxid", pbl.Proof)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list/:account", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
}
