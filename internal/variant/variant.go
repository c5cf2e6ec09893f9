// Package variant implements a minimal, purpose-built codec for the small
// slice of the GVariant wire format this database format actually emits:
// u32, bare null-terminated strings, byte arrays, and tuples whose only
// variable-size member is the trailing one. Because the variable-size
// member is always last, no GVariant offset table is ever required here --
// the container's own byte length (known from the KVDB Pointer that bounds
// it) tells the decoder where the data ends.
package variant

import (
	"encoding/binary"
	"fmt"
)

// token identifies one member's wire type within a signature string.
type token string

const (
	tokenU32   token = "u"
	tokenStr   token = "s"
	tokenBytes token = "ay"
)

// parseSignature splits a type signature like "u", "s", "ay", "uus", or
// "uuay" into its component tokens.
func parseSignature(sig string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(sig); i++ {
		switch sig[i] {
		case 'u':
			tokens = append(tokens, tokenU32)
		case 's':
			tokens = append(tokens, tokenStr)
		case 'a':
			if i+1 >= len(sig) || sig[i+1] != 'y' {
				return nil, fmt.Errorf("variant: unsupported array element in signature %q", sig)
			}
			tokens = append(tokens, tokenBytes)
			i++
		default:
			return nil, fmt.Errorf("variant: unsupported type code %q in signature %q", sig[i], sig)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("variant: empty signature")
	}
	return tokens, nil
}

// alignment returns the natural alignment in bytes of a fixed-size token.
// Variable-size tokens (string, byte array) have no alignment requirement
// of their own in this codec's narrow scope.
func (t token) alignment() int {
	switch t {
	case tokenU32:
		return 4
	default:
		return 1
	}
}

func alignUp(n, alignment int) int {
	if alignment <= 1 {
		return n
	}
	rem := n % alignment
	if rem == 0 {
		return n
	}
	return n + (alignment - rem)
}

// Encode serializes values according to sig using the given byte order.
// sig may name a single scalar ("u", "s", "ay") or a tuple of tokens
// ("uus", "uuay"); in a tuple, only the final member may be variable-size.
func Encode(order binary.ByteOrder, sig string, values ...any) ([]byte, error) {
	tokens, err := parseSignature(sig)
	if err != nil {
		return nil, err
	}
	if len(values) != len(tokens) {
		return nil, fmt.Errorf("variant: signature %q expects %d values, got %d", sig, len(tokens), len(values))
	}
	for i, tok := range tokens[:len(tokens)-1] {
		if tok != tokenU32 {
			return nil, fmt.Errorf("variant: only fixed-size members may precede the last tuple member (index %d is %q)", i, tok)
		}
	}

	var buf []byte
	for i, tok := range tokens {
		switch tok {
		case tokenU32:
			u, ok := values[i].(uint32)
			if !ok {
				return nil, fmt.Errorf("variant: value %d: expected uint32 for token %q", i, tok)
			}
			for len(buf) < alignUp(len(buf), tok.alignment()) {
				buf = append(buf, 0)
			}
			var word [4]byte
			order.PutUint32(word[:], u)
			buf = append(buf, word[:]...)
		case tokenStr:
			s, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("variant: value %d: expected string for token %q", i, tok)
			}
			buf = append(buf, []byte(s)...)
			buf = append(buf, 0) // bare strings are NUL-terminated
		case tokenBytes:
			b, ok := values[i].([]byte)
			if !ok {
				return nil, fmt.Errorf("variant: value %d: expected []byte for token %q", i, tok)
			}
			buf = append(buf, b...)
		}
	}
	return buf, nil
}

// Decode deserializes data according to sig. Returns one value per token:
// uint32, string, or []byte.
func Decode(order binary.ByteOrder, sig string, data []byte) ([]any, error) {
	tokens, err := parseSignature(sig)
	if err != nil {
		return nil, err
	}
	for i, tok := range tokens[:len(tokens)-1] {
		if tok != tokenU32 {
			return nil, fmt.Errorf("variant: only fixed-size members may precede the last tuple member (index %d is %q)", i, tok)
		}
	}

	out := make([]any, len(tokens))
	offset := 0
	for i, tok := range tokens {
		last := i == len(tokens)-1
		switch tok {
		case tokenU32:
			offset = alignUp(offset, tok.alignment())
			if offset+4 > len(data) {
				return nil, fmt.Errorf("variant: truncated data decoding u32 at index %d", i)
			}
			out[i] = order.Uint32(data[offset : offset+4])
			offset += 4
		case tokenStr:
			if !last {
				return nil, fmt.Errorf("variant: string member must be last (index %d)", i)
			}
			rest := data[offset:]
			if len(rest) == 0 || rest[len(rest)-1] != 0 {
				return nil, fmt.Errorf("variant: string value is not NUL-terminated")
			}
			out[i] = string(rest[:len(rest)-1])
		case tokenBytes:
			if !last {
				return nil, fmt.Errorf("variant: byte array member must be last (index %d)", i)
			}
			b := make([]byte, len(data)-offset)
			copy(b, data[offset:])
			out[i] = b
		}
	}
	return out, nil
}
