package audio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeMediaPayload(t *testing.T) {
	raw := []byte{0xFF, 0x7F, 0x00, 0x80}
	got, err := DecodeMediaPayload(base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("expected %v, got %v", raw, got)
	}
}

func TestDecodeMediaPayloadEmpty(t *testing.T) {
	if _, err := DecodeMediaPayload(""); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
	if _, err := DecodeMediaPayload(base64.StdEncoding.EncodeToString(nil)); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame for empty payload, got %v", err)
	}
}

func TestDecodeMediaPayloadInvalidBase64(t *testing.T) {
	if _, err := DecodeMediaPayload("not-base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}
