package mempool_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/operation"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/storage"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const receiver = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

func sign(t *testing.T, pk *ecdsa.PrivateKey, nonce uint64) storage.SignedTx {
	from := database.PublicKeyToAccountID(pk.PublicKey)

	tx, err := storage.NewTx(1, nonce, operation.New(operation.Transfer{From: from, To: receiver, Amount: asset.Hive(int64(nonce))}))
	if err != nil {
		t.Fatalf("\t%s\tShould be able to build a transaction: %v", failed, err)
	}

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %v", failed, err)
	}

	return signed
}

func TestCRUD(t *testing.T) {
	bill, err := crypto.HexToECDSA("fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load a private key: %v", failed, err)
	}
	pavel, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a private key: %v", failed, err)
	}

	billID := database.PublicKeyToAccountID(bill.PublicKey)
	pavelID := database.PublicKeyToAccountID(pavel.PublicKey)

	t.Log("Given the need to validate mempool api.")
	{
		t.Logf("\tTest 0:\tWhen handling transactions from two accounts.")
		{
			mp := mempool.New()

			mp.Upsert(sign(t, bill, 2))
			mp.Upsert(sign(t, pavel, 1))
			mp.Upsert(sign(t, bill, 1))
			mp.Upsert(sign(t, bill, 3))
			n, err := mp.Upsert(sign(t, pavel, 2))
			if err != nil || n != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould hold five transactions, got %d: %v", failed, n, err)
			}
			t.Logf("\t%s\tTest 0:\tShould hold five transactions.", success)

			if n, _ := mp.Upsert(sign(t, bill, 2)); n != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould replace a transaction with the same nonce, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould replace a transaction with the same nonce.", success)

			type want struct {
				from  database.AccountID
				nonce uint64
			}
			exp := []want{{billID, 1}, {pavelID, 1}, {billID, 2}, {pavelID, 2}}

			best := mp.PickBest(4)
			if len(best) != len(exp) {
				t.Fatalf("\t%s\tTest 0:\tShould pick four transactions, got %d.", failed, len(best))
			}
			for i, tx := range best {
				from, _ := tx.FromAccount()
				if from != exp[i].from || tx.Nonce != exp[i].nonce {
					t.Logf("\t%s\tTest 0:\tgot: %s:%d", failed, from, tx.Nonce)
					t.Logf("\t%s\tTest 0:\texp: %s:%d", failed, exp[i].from, exp[i].nonce)
					t.Fatalf("\t%s\tTest 0:\tShould take turns in nonce order.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould take turns in nonce order.", success)

			if n := mp.DeleteStale(billID, 2); n != 2 || mp.Count() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould drop applied nonces, removed %d.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould drop applied nonces.", success)

			if err := mp.Delete(mp.Copy()[0]); err != nil || mp.Count() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould be able to remove a transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to remove a transaction.", success)

			mp.Truncate()
			if len(mp.Copy()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould be able to truncate mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to truncate mempool.", success)
		}
	}
}
