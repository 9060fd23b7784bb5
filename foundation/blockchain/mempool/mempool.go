// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
)

// entry is a pooled transaction with the order it arrived in.
type entry struct {
	tx      storage.SignedTx
	account database.AccountID
	arrived uint64
}

// Mempool represents a cache of transactions organized by account:nonce.
type Mempool struct {
	mu      sync.RWMutex
	pool    map[string]entry
	arrived uint64
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]entry),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction from the mempool. A replacement
// keeps the arrival position of the transaction it replaces.
func (mp *Mempool) Upsert(tx storage.SignedTx) (int, error) {
	account, key, err := mapKey(tx)
	if err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	e, exists := mp.pool[key]
	if !exists {
		mp.arrived++
		e.arrived = mp.arrived
	}
	e.tx = tx
	e.account = account

	mp.pool[key] = e

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(tx storage.SignedTx) error {
	_, key, err := mapKey(tx)
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, key)

	return nil
}

// DeleteStale removes every transaction of the account whose nonce is at or
// below the account's last applied nonce.
func (mp *Mempool) DeleteStale(account database.AccountID, nonce uint64) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for key, e := range mp.pool {
		if e.account == account && e.tx.Nonce <= nonce {
			delete(mp.pool, key)
			removed++
		}
	}

	return removed
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// Copy returns every pooled transaction, grouped by account in arrival order
// and ordered by nonce within an account.
func (mp *Mempool) Copy() []storage.SignedTx {
	return mp.PickBest(-1)
}

// PickBest returns the next set of transactions for the next block. Pass -1
// for all the transactions. Each account's transactions are taken in nonce
// order and the accounts take turns, one transaction per turn, starting with
// the account whose transaction arrived first.
func (mp *Mempool) PickBest(howMany int) []storage.SignedTx {
	m := make(map[database.AccountID][]entry)
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		for _, e := range mp.pool {
			m[e.account] = append(m[e.account], e)
		}
	}
	mp.mu.RUnlock()

	// Order each account by nonce and the accounts by their first arrival.
	accounts := make([]database.AccountID, 0, len(m))
	first := make(map[database.AccountID]uint64, len(m))
	for account, entries := range m {
		slices.SortFunc(entries, func(a, b entry) int {
			switch {
			case a.tx.Nonce < b.tx.Nonce:
				return -1
			case a.tx.Nonce > b.tx.Nonce:
				return 1
			}
			return 0
		})

		first[account] = entries[0].arrived
		for _, e := range entries[1:] {
			first[account] = min(first[account], e.arrived)
		}
		accounts = append(accounts, account)
	}

	slices.SortFunc(accounts, func(a, b database.AccountID) int {
		switch {
		case first[a] < first[b]:
			return -1
		case first[a] > first[b]:
			return 1
		}
		return 0
	})

	// Pick the first transaction for each account. Each iteration represents
	// a new row of selections.
	final := make([]storage.SignedTx, 0, howMany)
	for len(final) < howMany {
		var picked bool
		for _, account := range accounts {
			if len(final) == howMany {
				break
			}
			if len(m[account]) == 0 {
				continue
			}
			final = append(final, m[account][0].tx)
			m[account] = m[account][1:]
			picked = true
		}
		if !picked {
			break
		}
	}

	return final
}

// =============================================================================

// mapKey is used to generate the map key.
func mapKey(tx storage.SignedTx) (database.AccountID, string, error) {
	account, err := tx.FromAccount()
	if err != nil {
		return "", "", err
	}

	return account, fmt.Sprintf("%s:%d", account, tx.Nonce), nil
}
