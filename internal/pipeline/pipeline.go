// Package pipeline defines the raw result shapes an evaluation can produce
// before they are normalized for display.
package pipeline

import (
	"io"
	"iter"
	"reflect"

	"pipedream/internal/value"
)

// Data is the raw result of one evaluation. It is one of Empty, Value,
// ListStream or ByteStream.
type Data interface {
	pipelineData()
}

// Empty signals that the evaluation produced nothing.
type Empty struct{}

// Value is a single, already materialized result.
type Value struct {
	V value.Value
}

// ListStream is a lazily produced sequence of values. The sequence may be
// unbounded; consumers drain it on their own thread.
type ListStream struct {
	Seq iter.Seq[value.Value]
}

// ByteStream is an incremental byte stream. If R is also an io.Closer it is
// closed by whoever drains it.
type ByteStream struct {
	R io.Reader
}

func (Empty) pipelineData()      {}
func (Value) pipelineData()      {}
func (ListStream) pipelineData() {}
func (ByteStream) pipelineData() {}

// FromValues returns a ListStream over vals.
func FromValues(vals ...value.Value) ListStream {
	return ListStream{Seq: func(yield func(value.Value) bool) {
		for _, v := range vals {
			if !yield(v) {
				return
			}
		}
	}}
}

// FromChannel returns a ListStream that receives from ch until it is closed,
// converting each element with conv. ch must be a receivable channel.
func FromChannel(ch reflect.Value, conv func(reflect.Value) value.Value) ListStream {
	return ListStream{Seq: func(yield func(value.Value) bool) {
		for {
			v, ok := ch.Recv()
			if !ok {
				return
			}
			if !yield(conv(v)) {
				return
			}
		}
	}}
}
