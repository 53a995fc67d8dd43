// Package audio decodes inbound media frames from the telephony bridge.
// Payloads arrive as base64-encoded mu-law 8kHz mono; the speech service
// consumes the raw mu-law bytes, so no transcoding happens here.
package audio

import (
	"encoding/base64"
	"errors"
)

var ErrEmptyFrame = errors.New("empty media frame")

// DecodeMediaPayload decodes one base64 media payload into raw audio bytes.
func DecodeMediaPayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyFrame
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFrame
	}
	return raw, nil
}
