package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAllLimit when r holds more than max bytes.
var ErrTooLarge = errors.New("body exceeds size limit")

// DecodeJSON decodes exactly one JSON document from b into v.
//
// We enable json.Decoder.UseNumber() so numbers held in `any` fields are
// preserved as json.Number instead of lossy float64 values.
func DecodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Ensure there is no trailing non-whitespace content.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing JSON content")
		}
		return fmt.Errorf("unexpected trailing JSON content: %w", err)
	}
	return nil
}

// ReadAllLimit reads at most max bytes from r. When r holds more, the first
// max bytes are returned together with ErrTooLarge.
func ReadAllLimit(r io.Reader, max int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if max <= 0 {
		return io.ReadAll(r)
	}
	_, err := io.CopyN(buf, r, max+1)
	if err != nil && err != io.EOF {
		return nil, err
	}
	b := buf.Bytes()
	if int64(len(b)) > max {
		return b[:max], ErrTooLarge
	}
	return b, nil
}
