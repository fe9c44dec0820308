package codec_test

import (
	"testing"

	"github.com/versatus/integral-db/codec"
)

type claim struct {
	NodeID string
	Amount int
}

func TestGobCodecRoundTrip(t *testing.T) {
	c := codec.GobCodec[claim]{}
	want := claim{NodeID: "node-1", Amount: 42}

	b, err := c.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Fatalf("Decode(Encode(v)) = %+v, want %+v", got, want)
	}
}

func TestGobCodecDecodeErrorOnGarbage(t *testing.T) {
	c := codec.GobCodec[claim]{}
	if _, err := c.Decode([]byte("not a gob stream")); err == nil {
		t.Fatalf("expected a decode error for garbage input")
	}
}

func TestGobCodecStringRoundTrip(t *testing.T) {
	c := codec.GobCodec[string]{}
	b, err := c.Encode("Analytical Engine")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != "Analytical Engine" {
		t.Fatalf("Decode(Encode(v)) = %q, want Analytical Engine", got)
	}
}
