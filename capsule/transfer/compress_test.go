package transfer

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("capsule payload "), 1024)

	for _, level := range []CompressionLevel{CompressionFast, CompressionDefault, CompressionBest} {
		compressed, err := Compress(original, level)
		if err != nil {
			t.Fatalf("compress level %d: %v", level, err)
		}
		if len(compressed) >= len(original) {
			t.Fatalf("level %d did not shrink repetitive data: %d >= %d", level, len(compressed), len(original))
		}
		if !IsCompressed(compressed) {
			t.Fatalf("level %d output missing lz4 frame magic", level)
		}

		out, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress level %d: %v", level, err)
		}
		if !bytes.Equal(out, original) {
			t.Fatalf("level %d round trip mismatch", level)
		}
	}
}

func TestMaybeCompressSkipsIncompressible(t *testing.T) {
	random := make([]byte, 4096)
	if _, err := rand.Read(random); err != nil {
		t.Fatal(err)
	}

	out, compressed := MaybeCompress(random, CompressionDefault)
	if compressed {
		t.Fatal("random data reported as compressed")
	}
	if !bytes.Equal(out, random) {
		t.Fatal("incompressible data was modified")
	}
}

func TestRestore(t *testing.T) {
	original := bytes.Repeat([]byte("abc"), 2000)

	compressed, ok := MaybeCompress(original, CompressionDefault)
	if !ok {
		t.Fatal("repetitive data should compress")
	}
	out, err := Restore(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, original) {
		t.Fatal("restore of compressed data mismatch")
	}

	// Plain content passes through untouched.
	plain := []byte("not compressed")
	out, err = Restore(plain)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatal("plain content was modified")
	}
}

func TestDecompressRejectsGarbage(t *testing.T) {
	if _, err := Decompress([]byte("definitely not an lz4 frame")); err == nil {
		t.Fatal("expected decompression error")
	}
}
