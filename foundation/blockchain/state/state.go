// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/cashout"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/conversion"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/feed"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/interest"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/opstore"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/recurrent"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/subsidy"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/vesting"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for block production.
type Worker interface {
	Shutdown()
	SignalProduceBlock()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	ProducerID database.AccountID
	Genesis    genesis.Genesis
	Storage    storage.Storage
	OpStore    *opstore.Store
	EvHandler  EventHandler
}

// engines groups the components that apply the economic rules. They all
// share the database and the emitter of the block being applied.
type engines struct {
	interest   *interest.Engine
	feed       *feed.Aggregator
	subsidy    *subsidy.Limiter
	cashout    *cashout.Scheduler
	vesting    *vesting.Engine
	recurrent  *recurrent.Scheduler
	conversion *conversion.Engine
}

// State manages the blockchain database.
type State struct {
	mu sync.Mutex

	producerID  database.AccountID
	evHandler   EventHandler
	genesis     genesis.Genesis
	latestBlock storage.Block

	db      *database.Database
	em      *oplog.Emitter
	eng     engines
	mempool *mempool.Mempool
	storage storage.Storage
	opstore *opstore.Store

	// blockProducer is the producer of the block being applied.
	blockProducer database.AccountID

	Worker Worker
}

// New constructs a new blockchain for data management. Blocks already in
// storage are replayed on top of the genesis state.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	if !cfg.Genesis.IsProducer(string(cfg.ProducerID)) {
		return nil, fmt.Errorf("account %s is not a producer in the genesis", cfg.ProducerID)
	}

	db, err := database.New(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	em := oplog.New()

	state := State{
		producerID: cfg.ProducerID,
		evHandler:  ev,
		genesis:    cfg.Genesis,
		db:         db,
		em:         em,
		eng:        newEngines(db, em, cfg.Genesis),
		mempool:    mempool.New(),
		storage:    cfg.Storage,
		opstore:    cfg.OpStore,
	}

	// Load all existing blocks from storage and replay them.
	blocks, err := storage.ReadAll(cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	if err := state.replay(blocks); err != nil {
		return nil, err
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

func newEngines(db *database.Database, em *oplog.Emitter, gen genesis.Genesis) engines {
	ie := interest.New(db, em, gen.Interest)

	return engines{
		interest:   ie,
		feed:       feed.New(db, em, gen.Feed),
		subsidy:    subsidy.New(db, gen.Subsidy),
		cashout:    cashout.New(db, em, ie, gen.Rewards),
		vesting:    vesting.New(db, em, ie, gen.Vesting),
		recurrent:  recurrent.New(db, em, ie, gen.Recurrent),
		conversion: conversion.New(db, em, ie, gen.Conversion, gen.Feed),
	}
}

// replay applies stored blocks. Every transaction in a stored block was
// accepted when the block was produced, so any failure is fatal.
func (s *State) replay(blocks []storage.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest uint64
	if s.opstore != nil {
		n, err := s.opstore.LatestBlock()
		if err != nil {
			return err
		}
		latest = n
	}

	for _, block := range blocks {
		s.evHandler("state: replay: blk[%d]: trans[%d]", block.Header.Number, len(block.Trans))

		_, records, err := s.execute(block.Header.Number, block.Time(), block.Header.ProducerID, block.Trans, true)
		if err != nil {
			return fmt.Errorf("replaying block %d: %w", block.Header.Number, err)
		}

		// The history store may already hold this block from a previous run.
		if s.opstore != nil && block.Header.Number > latest {
			if err := s.opstore.Write(records); err != nil {
				s.db.Rollback()
				return fmt.Errorf("storing operations of block %d: %w", block.Header.Number, err)
			}
		}

		s.db.Commit()
		s.latestBlock = block
	}

	return nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database file is properly closed.
	defer func() {
		s.storage.Close()
		if s.opstore != nil {
			s.opstore.Close()
		}
	}()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Truncate resets the chain both on disk and in memory back to the genesis.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()
	s.latestBlock = storage.Block{}

	if err := s.db.Reset(); err != nil {
		return err
	}
	if err := s.storage.Reset(); err != nil {
		return err
	}
	if s.opstore != nil {
		if err := s.opstore.Truncate(); err != nil {
			return err
		}
	}

	return nil
}

// =============================================================================

// ProducerID returns the account producing blocks on this node.
func (s *State) ProducerID() database.AccountID {
	return s.producerID
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// LatestBlock returns a copy the current latest block.
func (s *State) LatestBlock() storage.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.latestBlock
}

// BlockInterval returns the time between blocks.
func (s *State) BlockInterval() time.Duration {
	return genesis.Seconds(int64(s.genesis.BlockIntervalSec))
}
