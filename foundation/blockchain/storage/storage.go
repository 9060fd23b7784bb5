// Package storage defines the blocks and transactions of the chain and the
// interface used to persist them.
package storage

// Storage interface represents the behavior required to be implemented by any
// package providing support for reading and writing the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// ReadAll walks the storage from the first block and returns every block,
// validating each one against its parent.
func ReadAll(strg Storage, evHandler func(v string, args ...any)) ([]Block, error) {
	var blocks []Block
	var latest Block

	iter := strg.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		if err := block.ValidateBlock(latest, evHandler); err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
		latest = block
	}

	return blocks, nil
}
