package operation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/asset"
)

// Operation carries one payload. It marshals to the canonical envelope
// {"type": "transfer_operation", "value": {...}}.
type Operation struct {
	Payload Payload
}

// New wraps the payload.
func New(p Payload) Operation {
	return Operation{Payload: p}
}

// Kind returns the kind of the wrapped payload.
func (op Operation) Kind() Kind {
	if op.Payload == nil {
		return kindCount
	}
	return op.Payload.Kind()
}

// Real returns the payload as a real operation. It fails for virtual
// operations, which users cannot submit.
func (op Operation) Real() (Real, error) {
	if op.Payload == nil {
		return nil, errors.New("empty operation")
	}
	r, ok := op.Payload.(Real)
	if !ok || op.Kind().Virtual() {
		return nil, fmt.Errorf("operation %s cannot be submitted", op.Kind())
	}
	return r, nil
}

// envelope is the canonical JSON shape of an operation.
type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON implements the json.Marshaler interface.
func (op Operation) MarshalJSON() ([]byte, error) {
	if op.Payload == nil {
		return nil, errors.New("empty operation")
	}

	value, err := json.Marshal(op.Payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(envelope{Type: op.Kind().Type(), Value: value})
}

// UnmarshalJSON implements the json.Unmarshaler interface. The legacy
// [name, value] array form is accepted as well.
func (op *Operation) UnmarshalJSON(data []byte) error {
	var env envelope

	switch trimmed := bytes.TrimSpace(data); {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return errors.New("legacy operation must be a [name, value] pair")
		}
		if err := json.Unmarshal(pair[0], &env.Type); err != nil {
			return err
		}
		env.Value = pair[1]

	default:
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return err
		}
	}

	kind, err := ParseKind(env.Type)
	if err != nil {
		return err
	}

	p, err := kinds[kind].decode(env.Value)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}

	op.Payload = p
	return nil
}

// =============================================================================

// Legacy renders the operation in the [name, value] form older clients read.
// Amounts appear as "1.000 HIVE" strings instead of the canonical triple.
func (op Operation) Legacy() (json.RawMessage, error) {
	if op.Payload == nil {
		return nil, errors.New("empty operation")
	}

	data, err := json.Marshal(op.Payload)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}

	return json.Marshal([]any{op.Kind().Name(), legacyValue(value)})
}

// legacyValue walks a decoded JSON value and rewrites every amount triple.
func legacyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		if s, ok := legacyAmount(v); ok {
			return s
		}
		for k, e := range v {
			v[k] = legacyValue(e)
		}
		return v

	case []any:
		for i, e := range v {
			v[i] = legacyValue(e)
		}
		return v
	}

	return v
}

// legacyAmount converts a canonical amount object to its legacy string.
func legacyAmount(m map[string]any) (string, bool) {
	if len(m) != 3 {
		return "", false
	}

	amount, ok1 := m["amount"].(string)
	_, ok2 := m["precision"].(json.Number)
	symbolID, ok3 := m["symbol_id"].(json.Number)
	if !ok1 || !ok2 || !ok3 {
		return "", false
	}

	units, err := strconv.ParseInt(amount, 10, 64)
	if err != nil {
		return "", false
	}
	id, err := symbolID.Int64()
	if err != nil || id < 0 || id > int64(asset.VESTS) {
		return "", false
	}

	return asset.New(units, asset.Symbol(id)).String(), true
}

// =============================================================================

// Filter selects operation kinds with two 64 bit masks. Bit n of Low selects
// kind n, bit n of High selects kind 64+n. The zero Filter selects everything.
type Filter struct {
	Low  uint64 `json:"low"`
	High uint64 `json:"high"`
}

// NewFilter constructs a filter selecting the kinds.
func NewFilter(kinds ...Kind) Filter {
	var f Filter
	for _, k := range kinds {
		switch {
		case k < 64:
			f.Low |= 1 << k
		case k < 128:
			f.High |= 1 << (k - 64)
		}
	}
	return f
}

// IsZero reports whether the filter selects everything.
func (f Filter) IsZero() bool {
	return f.Low == 0 && f.High == 0
}

// Matches reports whether the filter selects the kind.
func (f Filter) Matches(k Kind) bool {
	switch {
	case f.IsZero():
		return true
	case k < 64:
		return f.Low&(1<<k) != 0
	case k < 128:
		return f.High&(1<<(k-64)) != 0
	}
	return false
}
