// Package oplog implements the wire encoding for a Left-Right trie's
// Operation log entries: a tag byte, a little-endian u64 version, and an
// entry-specific body. It exists for cross-goroutine/cross-process
// transfer of pending operations, never for on-disk persistence — the
// trie's durable state lives entirely in the storage backend.
package oplog

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/versatus/integral-db/storage"
)

// Tag discriminates an Operation's wire representation.
type Tag byte

const (
	TagAdd    Tag = 0
	TagRemove Tag = 1
	TagExtend Tag = 2
)

// Entry is a single (KeyHash, Option<OwnedValue>) pair, the unit Add and
// Extend carry.
type Entry struct {
	KeyHash storage.KeyHash
	Value   storage.OwnedValue
	Present bool
}

// Operation is one logged mutation, tagged with the version it was logged
// at.
type Operation struct {
	Tag     Tag
	Version storage.Version
	Add     Entry   // meaningful when Tag == TagAdd
	Remove  Entry   // meaningful when Tag == TagRemove (Value/Present unused)
	Extend  []Entry // meaningful when Tag == TagExtend
}

// Encode writes op's wire form to w: 1 tag byte, 8 little-endian version
// bytes, then the tag-specific body.
func Encode(w io.Writer, op Operation) error {
	if _, err := w.Write([]byte{byte(op.Tag)}); err != nil {
		return fmt.Errorf("oplog: write tag: %w", err)
	}
	var verBuf [8]byte
	binary.LittleEndian.PutUint64(verBuf[:], uint64(op.Version))
	if _, err := w.Write(verBuf[:]); err != nil {
		return fmt.Errorf("oplog: write version: %w", err)
	}

	switch op.Tag {
	case TagAdd:
		return encodeEntry(w, op.Add)
	case TagRemove:
		_, err := w.Write(op.Remove.KeyHash[:])
		if err != nil {
			return fmt.Errorf("oplog: write remove key: %w", err)
		}
		return nil
	case TagExtend:
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(op.Extend)))
		if _, err := w.Write(countBuf[:]); err != nil {
			return fmt.Errorf("oplog: write extend count: %w", err)
		}
		for _, e := range op.Extend {
			if err := encodeEntry(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("oplog: unknown tag %d", op.Tag)
	}
}

func encodeEntry(w io.Writer, e Entry) error {
	if _, err := w.Write(e.KeyHash[:]); err != nil {
		return fmt.Errorf("oplog: write key hash: %w", err)
	}
	present := byte(0)
	if e.Present {
		present = 1
	}
	if _, err := w.Write([]byte{present}); err != nil {
		return fmt.Errorf("oplog: write presence byte: %w", err)
	}
	if !e.Present {
		return nil
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(e.Value)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("oplog: write value length: %w", err)
	}
	if _, err := w.Write(e.Value); err != nil {
		return fmt.Errorf("oplog: write value: %w", err)
	}
	return nil
}

// Decode reads one Operation from r in the format Encode produces.
func Decode(r io.Reader) (Operation, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return Operation{}, fmt.Errorf("oplog: read tag: %w", err)
	}
	var verBuf [8]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return Operation{}, fmt.Errorf("oplog: read version: %w", err)
	}
	op := Operation{
		Tag:     Tag(tagBuf[0]),
		Version: storage.Version(binary.LittleEndian.Uint64(verBuf[:])),
	}

	switch op.Tag {
	case TagAdd:
		e, err := decodeEntry(r)
		if err != nil {
			return Operation{}, err
		}
		op.Add = e
	case TagRemove:
		var kh storage.KeyHash
		if _, err := io.ReadFull(r, kh[:]); err != nil {
			return Operation{}, fmt.Errorf("oplog: read remove key: %w", err)
		}
		op.Remove = Entry{KeyHash: kh}
	case TagExtend:
		var countBuf [4]byte
		if _, err := io.ReadFull(r, countBuf[:]); err != nil {
			return Operation{}, fmt.Errorf("oplog: read extend count: %w", err)
		}
		count := binary.LittleEndian.Uint32(countBuf[:])
		entries := make([]Entry, 0, count)
		for i := uint32(0); i < count; i++ {
			e, err := decodeEntry(r)
			if err != nil {
				return Operation{}, err
			}
			entries = append(entries, e)
		}
		op.Extend = entries
	default:
		return Operation{}, fmt.Errorf("oplog: unknown tag %d", op.Tag)
	}

	return op, nil
}

func decodeEntry(r io.Reader) (Entry, error) {
	var kh storage.KeyHash
	if _, err := io.ReadFull(r, kh[:]); err != nil {
		return Entry{}, fmt.Errorf("oplog: read key hash: %w", err)
	}
	var presentBuf [1]byte
	if _, err := io.ReadFull(r, presentBuf[:]); err != nil {
		return Entry{}, fmt.Errorf("oplog: read presence byte: %w", err)
	}
	e := Entry{KeyHash: kh, Present: presentBuf[0] != 0}
	if !e.Present {
		return e, nil
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Entry{}, fmt.Errorf("oplog: read value length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	value := make(storage.OwnedValue, n)
	if _, err := io.ReadFull(r, value); err != nil {
		return Entry{}, fmt.Errorf("oplog: read value: %w", err)
	}
	e.Value = value
	return e, nil
}
