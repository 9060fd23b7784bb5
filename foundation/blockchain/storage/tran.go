package storage

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/signature"
)

// MaxOperations is the largest number of operations one transaction carries.
const MaxOperations = 32

// =============================================================================

// Tx is a batch of operations signed by one account. Every operation must
// require that account's authority.
type Tx struct {
	ChainID    uint16                `json:"chain_id"`   // Unique id of the chain the transaction is for.
	Nonce      uint64                `json:"nonce"`      // Must be greater than the signer's last nonce.
	Operations []operation.Operation `json:"operations"` // Applied in order, all or nothing.
}

// NewTx constructs a new transaction and validates its operations.
func NewTx(chainID uint16, nonce uint64, ops ...operation.Operation) (Tx, error) {
	tx := Tx{
		ChainID:    chainID,
		Nonce:      nonce,
		Operations: ops,
	}

	if _, err := tx.Authority(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// Authority validates every operation and returns the one account whose
// signature the transaction requires.
func (tx Tx) Authority() (database.AccountID, error) {
	switch {
	case len(tx.Operations) == 0:
		return "", database.Validationf("transaction has no operations")
	case len(tx.Operations) > MaxOperations:
		return "", database.Validationf("transaction has %d operations, the limit is %d", len(tx.Operations), MaxOperations)
	}

	var authority database.AccountID
	for i, op := range tx.Operations {
		r, err := op.Real()
		if err != nil {
			return "", database.Validationf("operation %d: %w", i, err)
		}
		if err := r.Validate(); err != nil {
			return "", database.Validationf("operation %d %s: %w", i, op.Kind(), err)
		}

		switch {
		case authority == "":
			authority = r.Authority()
		case authority != r.Authority():
			return "", database.Validationf("operation %d needs %s, the transaction is for %s", i, r.Authority(), authority)
		}
	}

	return authority, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	authority, err := tx.Authority()
	if err != nil {
		return SignedTx{}, err
	}

	signer := database.PublicKeyToAccountID(privateKey.PublicKey)
	if signer != authority {
		return SignedTx{}, fmt.Errorf("key for %s cannot sign for %s", signer, authority)
	}

	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	return SignedTx{
		Tx:        tx,
		Signature: sig,
	}, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	signature.Signature
}

// Validate verifies the transaction is for this chain, its operations are
// well formed, and it is signed by the account whose authority it requires.
func (tx SignedTx) Validate(chainID uint16) (database.AccountID, error) {
	if tx.ChainID != chainID {
		return "", database.Validationf("transaction is for chain %d, this is chain %d", tx.ChainID, chainID)
	}

	authority, err := tx.Authority()
	if err != nil {
		return "", err
	}

	signer, err := tx.FromAccount()
	if err != nil {
		return "", database.Validationf("recovering signer: %w", err)
	}

	if signer != authority {
		return "", database.Validationf("transaction signed by %s requires %s", signer, authority)
	}

	return authority, nil
}

// FromAccount extracts the account id that signed the transaction.
func (tx SignedTx) FromAccount() (database.AccountID, error) {
	address, err := tx.Signature.Signer(tx.Tx)
	return database.AccountID(address), err
}

// ID returns the transaction id: the hash of the signed transaction.
func (tx SignedTx) ID() string {
	return signature.Hash(tx)
}

// Hash implements the merkle Hashable interface.
func (tx SignedTx) Hash() ([]byte, error) {
	return hex.DecodeString(tx.ID()[2:])
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}
