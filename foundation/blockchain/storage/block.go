package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotFound is returned when a block does not exist in storage.
var ErrNotFound = errors.New("block not found")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64             `json:"number"`          // Block number in the chain.
	PrevBlockHash string             `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64             `json:"timestamp"`       // Unix seconds the block was produced at.
	ProducerID    database.AccountID `json:"producer"`        // The account who produced the block.
	TransRoot     string             `json:"trans_root"`      // Merkle root of the transactions in the block.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []SignedTx
}

// NewBlock constructs the block that follows the previous block.
func NewBlock(producerID database.AccountID, prevBlock Block, timestamp time.Time, trans []SignedTx) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	return Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlock.Hash(),
			TimeStamp:     uint64(timestamp.UTC().Unix()),
			ProducerID:    producerID,
			TransRoot:     tree.RootHex(),
		},
		Trans: trans,
	}, nil
}

// Hash returns the unique hash for the block. Only the header is hashed, the
// transactions are covered by the merkle root.
func (b Block) Hash() string {
	if b.Header.Number == 0 {
		return signature.ZeroHash
	}

	return signature.Hash(b.Header)
}

// Time returns the block timestamp.
func (b Block) Time() time.Time {
	return time.Unix(int64(b.Header.TimeStamp), 0).UTC()
}

// ValidateBlock takes a block and validates it can follow the previous block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("storage: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("storage: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, previousBlock.Hash())
	}

	if previousBlock.Header.TimeStamp > 0 {
		evHandler("storage: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than parent block's timestamp", b.Header.Number)

		if b.Header.TimeStamp <= previousBlock.Header.TimeStamp {
			return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", previousBlock.Time(), b.Time())
		}
	}

	evHandler("storage: ValidateBlock: validate: blk[%d]: check: merkle root does match transactions", b.Header.Number)

	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return err
	}
	if b.Header.TransRoot != tree.RootHex() {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", tree.RootHex(), b.Header.TransRoot)
	}

	return nil
}

// Proof returns the merkle proof that the transaction with the id is part of
// the block.
func (b Block) Proof(trxID string) ([]string, []int64, error) {
	tree, err := merkle.NewTree(b.Trans)
	if err != nil {
		return nil, nil, err
	}

	for i, tx := range b.Trans {
		if tx.ID() != trxID {
			continue
		}

		hashes, sides, err := tree.Proof(i)
		if err != nil {
			return nil, nil, err
		}

		proof := make([]string, len(hashes))
		for j, h := range hashes {
			proof[j] = hexutil.Encode(h)
		}
		return proof, sides, nil
	}

	return nil, nil, fmt.Errorf("transaction %s is not in block %d", trxID, b.Header.Number)
}

// =============================================================================

// BlockData represents what is written to storage.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"block"`
	Trans  []SignedTx  `json:"trans"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}
}

// ToBlock converts stored block data back into a block, checking the stored
// hash still matches.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if h := block.Hash(); h != blockData.Hash {
		return Block{}, fmt.Errorf("block %d hash mismatch, stored %s, computed %s", blockData.Header.Number, blockData.Hash, h)
	}

	return block, nil
}
