package wire

import "errors"

var errNoDecoder = errors.New("deferred value has no decoder")

type DecodeFunc[T any] func([]byte) (T, error)

// Deferred holds a payload that is expensive or fallible to decode:
// raw bytes plus a decode operation invoked only at the point of use.
// A Deferred constructed from a value decodes without touching bytes.
type Deferred[T any] struct {
	raw []byte
	val *T
	dec DecodeFunc[T]
}

// DeferDecode wraps raw bytes received from the wire.
func DeferDecode[T any](raw []byte, dec DecodeFunc[T]) Deferred[T] {
	return Deferred[T]{raw: raw, dec: dec}
}

// DeferValue wraps an already-materialized value destined for the wire.
func DeferValue[T any](v T, raw []byte) Deferred[T] {
	return Deferred[T]{raw: raw, val: &v}
}

// Decode materializes the value. Decoding the same Deferred twice
// repeats the work; callers decode once and keep the result.
func (d Deferred[T]) Decode() (T, error) {
	if d.val != nil {
		return *d.val, nil
	}
	var zero T
	if d.dec == nil {
		return zero, errNoDecoder
	}
	return d.dec(d.raw)
}

// Bytes returns the raw encoding as it travels on the wire.
func (d Deferred[T]) Bytes() []byte { return d.raw }
