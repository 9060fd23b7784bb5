package asset_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestParse(t *testing.T) {
	type table struct {
		name  string
		input string
		exp   asset.Amount
		fails bool
	}

	tt := []table{
		{name: "native", input: "1.000 HIVE", exp: asset.Hive(1000)},
		{name: "short", input: "0.25 HIVE", exp: asset.Hive(250)},
		{name: "pegged", input: "12.345 HBD", exp: asset.HBDs(12345)},
		{name: "stake", input: "1.000001 VESTS", exp: asset.Vests(1000001)},
		{name: "precision", input: "1.0001 HIVE", fails: true},
		{name: "symbol", input: "1.000 STEEM", fails: true},
		{name: "format", input: "1.000", fails: true},
	}

	t.Log("Given the need to parse legacy formatted amounts.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.input)
				{
					got, err := asset.Parse(tst.input)
					if tst.fails {
						if err == nil {
							t.Fatalf("\t%s\tTest %d:\tShould reject the amount.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould reject the amount.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould parse the amount: %v", failed, testID, err)
					}
					if got != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould parse the amount.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould parse the amount.", success, testID)

					if back, err := asset.Parse(got.String()); err != nil || back != got {
						t.Fatalf("\t%s\tTest %d:\tShould parse its own rendering: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould parse its own rendering.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestAmountJSON(t *testing.T) {
	t.Log("Given the need to encode amounts.")
	{
		t.Logf("\tTest 0:\tWhen handling the canonical and legacy forms.")
		{
			data, err := json.Marshal(asset.HBDs(1500))
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould marshal the amount: %v", failed, err)
			}
			if string(data) != `{"amount":"1500","precision":3,"symbol_id":1}` {
				t.Fatalf("\t%s\tTest 0:\tShould use the canonical triple, got %s.", failed, data)
			}
			t.Logf("\t%s\tTest 0:\tShould use the canonical triple.", success)

			var a asset.Amount
			if err := json.Unmarshal([]byte(`"1.500 HBD"`), &a); err != nil || a != asset.HBDs(1500) {
				t.Fatalf("\t%s\tTest 0:\tShould accept the legacy string: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the legacy string.", success)
		}
	}
}

func TestPrice(t *testing.T) {
	t.Log("Given the need to convert amounts with an exchange rate.")
	{
		price := asset.NewPrice(asset.HBDs(250), asset.Hive(1000))

		t.Logf("\tTest 0:\tWhen converting in both directions.")
		{
			got, err := price.Convert(asset.Hive(2000))
			if err != nil || got != asset.HBDs(500) {
				t.Fatalf("\t%s\tTest 0:\tShould convert native to pegged, got %v: %v", failed, got, err)
			}
			t.Logf("\t%s\tTest 0:\tShould convert native to pegged.", success)

			got, err = price.Convert(asset.HBDs(1))
			if err != nil || got != asset.Hive(4) {
				t.Fatalf("\t%s\tTest 0:\tShould convert pegged to native, got %v: %v", failed, got, err)
			}
			t.Logf("\t%s\tTest 0:\tShould convert pegged to native.", success)

			if _, err := price.Convert(asset.Vests(1)); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a foreign symbol.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a foreign symbol.", success)
		}

		t.Logf("\tTest 1:\tWhen comparing prices.")
		{
			higher := asset.NewPrice(asset.HBDs(300), asset.Hive(1000))
			if !price.Less(higher) || higher.Cmp(price) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould order prices by rate.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould order prices by rate.", success)

			if price.Cmp(price.Invert()) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould compare inverted prices as equal.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould compare inverted prices as equal.", success)
		}
	}
}

func TestMulDiv(t *testing.T) {
	t.Log("Given the need for full precision integer math.")
	{
		t.Logf("\tTest 0:\tWhen the intermediate product overflows 64 bits.")
		{
			got, err := asset.MulDiv(math.MaxInt64, 10, 20)
			if err != nil || got != math.MaxInt64/2 {
				t.Fatalf("\t%s\tTest 0:\tShould keep full precision, got %d: %v", failed, got, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep full precision.", success)

			if _, err := asset.MulDiv(math.MaxInt64, 10, 1); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould report an overflowing result.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report an overflowing result.", success)

			if got := asset.MustMulDiv(math.MaxInt64, 10, 1); got != math.MaxInt64 {
				t.Fatalf("\t%s\tTest 0:\tShould saturate, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould saturate.", success)

			if got := asset.CeilDiv(7, 2); got != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould round up, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould round up.", success)
		}
	}
}
