// Package signature provides the signing and signer recovery used by
// transactions on the reward chain.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// rewardID is added to the recovery id so signatures produced here can't be
// mistaken for signatures of another chain.
const rewardID = 29

// =============================================================================

// Hash returns a unique string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hexutil.Encode(hash[:])
}

// =============================================================================

// Signature is an ECDSA signature in the [R|S|V] form.
type Signature struct {
	V *big.Int `json:"v"` // Recovery identifier, either 29 or 30.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Sign uses the specified private key to sign the value.
func Sign(value any, privateKey *ecdsa.PrivateKey) (Signature, error) {
	data, err := stamp(value)
	if err != nil {
		return Signature{}, err
	}

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return Signature{}, err
	}

	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return Signature{}, err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, sig[:crypto.RecoveryIDOffset]) {
		return Signature{}, errors.New("invalid signature")
	}

	return Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:64]),
		V: new(big.Int).SetBytes([]byte{sig[64] + rewardID}),
	}, nil
}

// Verify checks the signature values are well formed.
func (sig Signature) Verify() error {
	if sig.V == nil || sig.R == nil || sig.S == nil {
		return errors.New("missing signature values")
	}

	recovery := sig.V.Uint64() - rewardID
	if recovery != 0 && recovery != 1 {
		return errors.New("invalid recovery id")
	}

	if !crypto.ValidateSignatureValues(byte(recovery), sig.R, sig.S, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// Signer recovers the account address that signed the value. A value other
// than the one signed recovers a different address.
func (sig Signature) Signer(value any) (string, error) {
	if err := sig.Verify(); err != nil {
		return "", err
	}

	data, err := stamp(value)
	if err != nil {
		return "", err
	}

	publicKey, err := crypto.SigToPub(data, sig.Bytes())
	if err != nil {
		return "", err
	}

	return crypto.PubkeyToAddress(*publicKey).String(), nil
}

// Bytes returns the 65 byte signature with the recovery id the crypto
// package expects.
func (sig Signature) Bytes() []byte {
	out := make([]byte, crypto.SignatureLength)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:64])
	out[64] = byte(sig.V.Uint64() - rewardID)

	return out
}

// String returns the hex encoded signature keeping the chain's recovery id.
func (sig Signature) String() string {
	if sig.V == nil || sig.R == nil || sig.S == nil {
		return "0x"
	}

	out := sig.Bytes()
	out[64] = byte(sig.V.Uint64())

	return hexutil.Encode(out)
}

// Equal reports whether both signatures carry the same values.
func (sig Signature) Equal(o Signature) bool {
	if sig.V == nil || o.V == nil {
		return sig.V == o.V
	}
	return sig.V.Cmp(o.V) == 0 && sig.R.Cmp(o.R) == 0 && sig.S.Cmp(o.S) == 0
}

// FromHex converts the hex representation produced by String back into a
// signature.
func FromHex(sigStr string) (Signature, error) {
	sig, err := hexutil.Decode(sigStr)
	if err != nil {
		return Signature{}, err
	}
	if len(sig) != crypto.SignatureLength {
		return Signature{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}

	return Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:64]),
		V: new(big.Int).SetBytes([]byte{sig[64]}),
	}, nil
}

// =============================================================================

// stamp returns the 32 byte keccak hash of the value with the chain's
// message prefix mixed in.
func stamp(value any) ([]byte, error) {
	v, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	txHash := crypto.Keccak256(v)
	prefix := []byte("\x19Reward Signed Message:\n32")

	return crypto.Keccak256(prefix, txHash), nil
}
