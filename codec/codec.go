// Package codec defines the opaque byte-codec contract the typed tree
// wrapper and Left-Right trie facade use to turn caller types into the
// OwnedValue bytes the JMT core stores, plus a gob-backed default.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Codec converts values of type T to and from the opaque bytes the storage
// layer persists. Implementations must be deterministic: encoding the same
// value twice must produce byte-identical output, since OwnedValue bytes
// feed directly into leaf hashing.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// GobCodec is the default Codec, backed by the standard library's
// encoding/gob. It is a convenience, not a mandate: callers with their own
// serialization (protobuf, a hand-rolled binary format) supply their own
// Codec instead.
type GobCodec[T any] struct{}

// Encode implements Codec.
func (GobCodec[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("codec: gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (GobCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, fmt.Errorf("codec: gob decode: %w", err)
	}
	return v, nil
}
