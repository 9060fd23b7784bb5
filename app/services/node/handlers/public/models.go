package public

import (
	"encoding/json"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/nameservice"
)

type tx struct {
	ID         string                `json:"trx_id"`
	From       database.AccountID    `json:"from"`
	FromName   string                `json:"from_name"`
	ChainID    uint16                `json:"chain_id"`
	Nonce      uint64                `json:"nonce"`
	Operations []operation.Operation `json:"operations"`
	Sig        string                `json:"sig"`
}

func toTx(tran storage.SignedTx, ns *nameservice.NameService) tx {
	from, _ := tran.FromAccount()

	return tx{
		ID:         tran.ID(),
		From:       from,
		FromName:   ns.Lookup(from),
		ChainID:    tran.ChainID,
		Nonce:      tran.Nonce,
		Operations: tran.Operations,
		Sig:        tran.Signature.String(),
	}
}

type block struct {
	Hash          string             `json:"hash"`
	Number        uint64             `json:"number"`
	PrevBlockHash string             `json:"prev_block_hash"`
	TimeStamp     uint64             `json:"timestamp"`
	Producer      database.AccountID `json:"producer"`
	TransRoot     string             `json:"trans_root"`
	Transactions  []tx               `json:"transactions"`
}

func toBlock(blk storage.Block, ns *nameservice.NameService) block {
	trans := make([]tx, len(blk.Trans))
	for i, tran := range blk.Trans {
		trans[i] = toTx(tran, ns)
	}

	return block{
		Hash:          blk.Hash(),
		Number:        blk.Header.Number,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		Producer:      blk.Header.ProducerID,
		TransRoot:     blk.Header.TransRoot,
		Transactions:  trans,
	}
}

type account struct {
	database.Account
	Name string `json:"name"`
}

type actInfo struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Accounts    []account `json:"accounts"`
}

type blockOps struct {
	Block uint64            `json:"block"`
	Ops   []json.RawMessage `json:"ops"`
}

type proof struct {
	Block     uint64   `json:"block"`
	TrxID     string   `json:"trx_id"`
	TransRoot string   `json:"trans_root"`
	Hashes    []string `json:"hashes"`
	Sides     []int64  `json:"sides"`
}

// historyQuery are the query string values for an account history request.
type historyQuery struct {
	Account string `json:"account" validate:"required,startswith=0x,len=42"`
	From    int64  `json:"from" validate:"min=-1"`
	Limit   int    `json:"limit" validate:"min=1,max=1000"`
}
