package state

import (
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ardanlabs/rewardchain/foundation/metrics"
)

// UpsertWalletTransaction accepts a transaction from a wallet for inclusion.
func (s *State) UpsertWalletTransaction(signedTx storage.SignedTx) error {
	if err := s.validateTransaction(signedTx); err != nil {
		return err
	}

	n, err := s.mempool.Upsert(signedTx)
	if err != nil {
		return err
	}
	metrics.Mempool.Set(float64(n))

	s.evHandler("state: UpsertWalletTransaction: tx[%s]: mempool[%d]", signedTx, n)

	return nil
}

// =============================================================================

// validateTransaction takes the signed transaction and validates it has
// a proper signature and a nonce the account has not used. The operations
// themselves are only checked against the ledger when a block applies them.
func (s *State) validateTransaction(signedTx storage.SignedTx) error {
	from, err := signedTx.Validate(s.genesis.ChainID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, err := s.db.Account(from)
	if err != nil {
		return err
	}

	if signedTx.Nonce <= account.Nonce {
		return database.Validationf("nonce %d is not greater than the last nonce %d of %s", signedTx.Nonce, account.Nonce, from)
	}

	return nil
}
