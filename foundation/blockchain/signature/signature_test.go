package signature_test

import (
	"testing"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	from     = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

// =============================================================================

func Test_Signing(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	t.Log("Given the need to sign values and recover the signer.")
	{
		t.Logf("\tTest 0:\tWhen signing a value with a known key.")
		{
			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to load a private key: %s", failed, err)
			}

			sig, err := signature.Sign(value, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign data: %s", failed, err)
			}
			if err := sig.Verify(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to verify the signature: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to sign and verify.", success)

			addr, err := sig.Signer(value)
			if err != nil || addr != from {
				t.Logf("\t\tTest 0:\tgot: %s", addr)
				t.Logf("\t\tTest 0:\texp: %s", from)
				t.Fatalf("\t%s\tTest 0:\tShould recover the signer: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the signer.", success)

			other, err := sig.Signer(struct{ Name string }{Name: "Ed"})
			if err == nil && other == from {
				t.Fatalf("\t%s\tTest 0:\tShould not recover the signer for different data.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not recover the signer for different data.", success)

			back, err := signature.FromHex(sig.String())
			if err != nil || !back.Equal(sig) {
				t.Fatalf("\t%s\tTest 0:\tShould round trip the hex form: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould round trip the hex form.", success)
		}
	}
}

func Test_Hash(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}
	hash := "0x0f6887ac85101d6d6425a617edf35bd721b5f619fb92c36c3d2224e3bdb0ee5a"

	t.Log("Given the need to hash values.")
	{
		t.Logf("\tTest 0:\tWhen hashing a known value.")
		{
			h := signature.Hash(value)
			if h != hash {
				t.Logf("\t\tTest 0:\tgot: %s", h)
				t.Logf("\t\tTest 0:\texp: %s", hash)
				t.Fatalf("\t%s\tTest 0:\tShould get back the right hash.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould get back the right hash.", success)
		}
	}
}
