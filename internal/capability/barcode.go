package capability

import (
	"context"
	"fmt"
	"image"
	"time"
)

// Decoder is the pluggable barcode-reading engine; the core treats it as a
// black box (§4.2.1). Implementations are expected to be CPU-bound.
type Decoder interface {
	Decode(img image.Image) ([]string, error)
}

// BarcodeBackend wraps a Decoder with the hard timeout §4.2.1 requires.
type BarcodeBackend struct {
	Decoder Decoder
	Timeout time.Duration
}

func NewBarcodeBackend(decoder Decoder, timeout time.Duration) *BarcodeBackend {
	return &BarcodeBackend{Decoder: decoder, Timeout: timeout}
}

func (b *BarcodeBackend) Run(ctx context.Context, cropped image.Image, _ Params) (Result, error) {
	if b.Decoder == nil {
		return Result{Passed: false, Error: ErrCapabilityUnavailable}, nil
	}
	if _, isNoOp := b.Decoder.(NoOpDecoder); isNoOp {
		return Result{Passed: false, Error: ErrCapabilityUnavailable}, nil
	}

	type decodeOutcome struct {
		values []string
		err    error
	}
	done := make(chan decodeOutcome, 1)

	go func() {
		values, err := b.Decoder.Decode(cropped)
		done <- decodeOutcome{values: values, err: err}
	}()

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	select {
	case out := <-done:
		if out.err != nil {
			return Result{Passed: false, Error: out.err.Error()}, nil
		}
		passed := len(out.values) > 0 && out.values[0] != ""
		return Result{Passed: passed, BarcodeValues: out.values}, nil
	case <-time.After(timeout):
		return Result{Passed: false, Error: "barcode decode timeout"}, nil
	case <-ctx.Done():
		return Result{Passed: false, Error: ctx.Err().Error()}, nil
	}
}

// NoOpDecoder is used when no real decoder is wired. Its Decode always
// returns an error; BarcodeBackend recognizes it and reports
// capability_unavailable without calling it.
type NoOpDecoder struct{}

func (NoOpDecoder) Decode(image.Image) ([]string, error) {
	return nil, fmt.Errorf("no barcode decoder configured")
}
