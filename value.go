package kvdb

import (
	"encoding/binary"

	"github.com/scigolib/kvdb/internal/variant"
)

// Value is a typed leaf payload: a variant type signature ("u", "s", "ay",
// or a tuple like "uus"/"uuay") plus the values it carries.
type Value struct {
	Sig  string
	Args []any
}

// NewValue constructs a leaf Value for the given signature and arguments.
func NewValue(sig string, args ...any) Value {
	return Value{Sig: sig, Args: args}
}

func (v Value) encode(order binary.ByteOrder) ([]byte, error) {
	data, err := variant.Encode(order, v.Sig, v.Args...)
	if err != nil {
		return nil, &VariantCodecError{Cause: err}
	}
	return data, nil
}

// GetValue looks up key and decodes its leaf payload according to sig.
func (t *HashTable) GetValue(key string, sig string) ([]any, error) {
	data, err := t.GetValueBytes(key)
	if err != nil {
		return nil, err
	}
	values, err := variant.Decode(t.order, sig, data)
	if err != nil {
		return nil, &VariantCodecError{Cause: err}
	}
	return values, nil
}
