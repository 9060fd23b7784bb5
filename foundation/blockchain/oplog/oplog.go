// Package oplog records every operation applied in a block, real and
// virtual, in the one canonical order observers rely on.
package oplog

import (
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
)

// OutsideTrx is the trx_in_block value of operations caused by the block
// itself rather than by a transaction.
const OutsideTrx = math.MaxUint32

// Record is one entry of the operation log.
type Record struct {
	ID         uint64              `json:"operation_id"`
	TrxID      string              `json:"trx_id"`
	Block      uint64              `json:"block"`
	TrxInBlock uint32              `json:"trx_in_block"`
	OpInTrx    uint32              `json:"op_in_trx"`
	Virtual    bool                `json:"virtual_op"`
	Timestamp  time.Time           `json:"timestamp"`
	Op         operation.Operation `json:"op"`
}

// Legacy returns the record with the operation in its [name, value] form.
func (r Record) Legacy() (json.RawMessage, error) {
	op, err := r.Op.Legacy()
	if err != nil {
		return nil, err
	}

	legacy := struct {
		Record
		Op json.RawMessage `json:"op"`
	}{
		Record: r,
		Op:     op,
	}

	return json.Marshal(legacy)
}

// Less orders records by (block, trx_in_block, op_in_trx).
func (r Record) Less(o Record) bool {
	switch {
	case r.Block != o.Block:
		return r.Block < o.Block
	case r.TrxInBlock != o.TrxInBlock:
		return r.TrxInBlock < o.TrxInBlock
	}
	return r.OpInTrx < o.OpInTrx
}

// =============================================================================

// Emitter collects the operations of one block. Operations emitted between
// BeginTx and EndTx belong to that transaction, everything else is recorded
// outside any transaction with its own op_in_trx counter.
//
// An Emitter is used by the single block application pass and is not safe
// for concurrent use.
type Emitter struct {
	block     uint64
	timestamp time.Time
	records   []Record

	inTrx   bool
	trx     uint32
	trxID   string
	opInTrx uint32
	mark    int

	outsideOps uint32
}

// New constructs an emitter ready for the first block.
func New() *Emitter {
	return &Emitter{}
}

// BeginBlock discards any previous records and starts a new block.
func (e *Emitter) BeginBlock(block uint64, timestamp time.Time) {
	*e = Emitter{
		block:     block,
		timestamp: timestamp,
	}
}

// BeginTx starts recording operations for a transaction.
func (e *Emitter) BeginTx(trxInBlock uint32, trxID string) {
	e.inTrx = true
	e.trx = trxInBlock
	e.trxID = trxID
	e.opInTrx = 0
	e.mark = len(e.records)
}

// EndTx keeps the transaction's operations.
func (e *Emitter) EndTx() {
	e.inTrx = false
	e.trxID = ""
}

// RollbackTx discards the operations recorded since BeginTx.
func (e *Emitter) RollbackTx() {
	if !e.inTrx {
		return
	}
	e.records = e.records[:e.mark]
	e.inTrx = false
	e.trxID = ""
}

// Emit records the payload and returns the record created for it.
func (e *Emitter) Emit(p operation.Payload) Record {
	r := Record{
		ID:        e.block<<32 | uint64(len(e.records)),
		Block:     e.block,
		Virtual:   p.Kind().Virtual(),
		Timestamp: e.timestamp,
		Op:        operation.New(p),
	}

	switch {
	case e.inTrx:
		r.TrxID = e.trxID
		r.TrxInBlock = e.trx
		r.OpInTrx = e.opInTrx
		e.opInTrx++

	default:
		r.TrxInBlock = OutsideTrx
		r.OpInTrx = e.outsideOps
		e.outsideOps++
	}

	e.records = append(e.records, r)
	return r
}

// Records returns the block's operations in canonical order: every
// transaction's operations first, then the operations outside transactions.
// Operation ids are assigned in that order.
func (e *Emitter) Records() []Record {
	out := make([]Record, len(e.records))
	copy(out, e.records)

	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	for i := range out {
		out[i].ID = e.block<<32 | uint64(i)
	}

	return out
}

// Len returns the number of operations recorded so far.
func (e *Emitter) Len() int {
	return len(e.records)
}
