package output

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipedream/internal/pipeline"
	"pipedream/internal/value"
)

// failingReader yields some bytes and then fails.
type failingReader struct {
	chunks [][]byte
	err    error
	closed bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, r.err
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func (r *failingReader) Close() error {
	r.closed = true
	return nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input pipeline.Data
		check func(t *testing.T, out Output)
	}{
		{
			name:  "nil data",
			input: nil,
			check: func(t *testing.T, out Output) { assert.IsType(t, Empty{}, out) },
		},
		{
			name:  "empty signal",
			input: pipeline.Empty{},
			check: func(t *testing.T, out Output) { assert.IsType(t, Empty{}, out) },
		},
		{
			name:  "single scalar",
			input: pipeline.Value{V: value.Scalar(3)},
			check: func(t *testing.T, out Output) {
				v, ok := out.(Value)
				require.True(t, ok)
				assert.True(t, v.V.Equal(value.Scalar(3)))
			},
		},
		{
			name:  "single record stays a value",
			input: pipeline.Value{V: rec("a", 1)},
			check: func(t *testing.T, out Output) {
				v, ok := out.(Value)
				require.True(t, ok)
				assert.True(t, v.V.IsRecord())
			},
		},
		{
			name:  "nothing value",
			input: pipeline.Value{V: value.Nothing()},
			check: func(t *testing.T, out Output) {
				v, ok := out.(Value)
				require.True(t, ok)
				assert.True(t, v.V.IsNothing())
			},
		},
		{
			name:  "list value of records becomes a table",
			input: pipeline.Value{V: value.List(rec("a", 1, "b", 2), rec("b", 3, "c", 4))},
			check: func(t *testing.T, out Output) {
				table, ok := out.(*Table)
				require.True(t, ok)
				assert.Equal(t, []string{"a", "b", "c"}, table.Header())
				assert.Equal(t, 2, table.Len())
				assert.True(t, table.Row(0)[2].IsNothing())
				assert.True(t, table.Row(1)[0].IsNothing())
			},
		},
		{
			name:  "single record list is a one row table",
			input: pipeline.Value{V: value.List(rec("a", 1))},
			check: func(t *testing.T, out Output) {
				table, ok := out.(*Table)
				require.True(t, ok)
				assert.Equal(t, 1, table.Len())
			},
		},
		{
			name:  "empty list is an empty table",
			input: pipeline.Value{V: value.List()},
			check: func(t *testing.T, out Output) {
				table, ok := out.(*Table)
				require.True(t, ok)
				assert.Empty(t, table.Header())
				assert.Equal(t, 0, table.Len())
			},
		},
		{
			name:  "mixed list stays a list",
			input: pipeline.Value{V: value.List(rec("a", 1), value.Scalar(2))},
			check: func(t *testing.T, out Output) {
				l, ok := out.(List)
				require.True(t, ok)
				assert.Len(t, l.Values, 2)
			},
		},
		{
			name:  "nested list is flattened only once",
			input: pipeline.Value{V: value.List(value.List(rec("a", 1)))},
			check: func(t *testing.T, out Output) {
				l, ok := out.(List)
				require.True(t, ok)
				require.Len(t, l.Values, 1)
				assert.True(t, l.Values[0].IsList())
			},
		},
		{
			name:  "list stream of records",
			input: pipeline.FromValues(rec("x", 1), rec("y", 2)),
			check: func(t *testing.T, out Output) {
				table, ok := out.(*Table)
				require.True(t, ok)
				assert.Equal(t, []string{"x", "y"}, table.Header())
			},
		},
		{
			name:  "list stream of scalars",
			input: pipeline.FromValues(value.Scalar(1), value.Scalar(2)),
			check: func(t *testing.T, out Output) {
				l, ok := out.(List)
				require.True(t, ok)
				assert.Len(t, l.Values, 2)
			},
		},
		{
			name:  "empty list stream",
			input: pipeline.FromValues(),
			check: func(t *testing.T, out Output) {
				table, ok := out.(*Table)
				require.True(t, ok)
				assert.Equal(t, 0, table.Len())
			},
		},
		{
			name:  "nil sequence",
			input: pipeline.ListStream{},
			check: func(t *testing.T, out Output) { assert.IsType(t, &Table{}, out) },
		},
		{
			name:  "byte stream",
			input: pipeline.ByteStream{R: iotest.OneByteReader(strings.NewReader("hello\n"))},
			check: func(t *testing.T, out Output) {
				raw, ok := out.(Raw)
				require.True(t, ok)
				require.True(t, raw.OK())
				assert.Equal(t, "hello\n", string(raw.Bytes))
			},
		},
		{
			name:  "empty byte stream",
			input: pipeline.ByteStream{R: bytes.NewReader(nil)},
			check: func(t *testing.T, out Output) {
				raw, ok := out.(Raw)
				require.True(t, ok)
				assert.True(t, raw.OK())
				assert.Empty(t, raw.Bytes)
			},
		},
		{
			name:  "byte stream failing immediately",
			input: pipeline.ByteStream{R: iotest.ErrReader(errors.New("denied"))},
			check: func(t *testing.T, out Output) {
				raw, ok := out.(Raw)
				require.True(t, ok)
				assert.False(t, raw.OK())
				assert.Contains(t, raw.Err.Error(), "denied")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Classify(tt.input))
		})
	}
}

func TestClassifyByteStreamFailureMidway(t *testing.T) {
	cause := errors.New("disk on fire")
	r := &failingReader{chunks: [][]byte{[]byte("partial "), []byte("data")}, err: cause}

	out := Classify(pipeline.ByteStream{R: r})

	raw, ok := out.(Raw)
	require.True(t, ok)
	require.Error(t, raw.Err)
	assert.Nil(t, raw.Bytes)

	var se *StreamError
	require.True(t, errors.As(raw.Err, &se))
	assert.ErrorIs(t, raw.Err, cause)
	assert.True(t, r.closed, "closer must be closed after draining")
}

func TestClassifyIsIdempotent(t *testing.T) {
	inputs := map[string]func() pipeline.Data{
		"empty":  func() pipeline.Data { return pipeline.Empty{} },
		"scalar": func() pipeline.Data { return pipeline.Value{V: value.Scalar("s")} },
		"nan":    func() pipeline.Data { return pipeline.Value{V: value.Scalar(math.NaN())} },
		"nan table": func() pipeline.Data {
			return pipeline.FromValues(rec("x", math.NaN()))
		},
		"table": func() pipeline.Data {
			return pipeline.FromValues(rec("a", 1, "b", 2), rec("b", 3, "c", 4))
		},
		"list": func() pipeline.Data {
			return pipeline.Value{V: value.List(value.Scalar(1), rec("a", 1))}
		},
		"raw": func() pipeline.Data {
			return pipeline.ByteStream{R: strings.NewReader("bytes")}
		},
		"raw error": func() pipeline.Data {
			return pipeline.ByteStream{R: io.MultiReader(strings.NewReader("x"), iotest.ErrReader(errors.New("eof?")))}
		},
	}

	for name, mk := range inputs {
		t.Run(name, func(t *testing.T) {
			first := Classify(mk())
			second := Classify(mk())
			assert.True(t, Equal(first, second), "outputs differ: %#v vs %#v", first, second)
		})
	}
}

func TestClassifyDrainsWholeStream(t *testing.T) {
	pulled := 0
	seq := func(yield func(value.Value) bool) {
		for i := 0; i < 1000; i++ {
			pulled++
			if !yield(value.Scalar(i)) {
				return
			}
		}
	}

	out := Classify(pipeline.ListStream{Seq: seq})

	l, ok := out.(List)
	require.True(t, ok)
	assert.Len(t, l.Values, 1000)
	assert.Equal(t, 1000, pulled)
}

func TestName(t *testing.T) {
	assert.Equal(t, "empty", Name(Empty{}))
	assert.Equal(t, "value", Name(Value{}))
	assert.Equal(t, "list", Name(List{}))
	assert.Equal(t, "table", Name(Synthesize(nil)))
	assert.Equal(t, "raw", Name(Raw{}))
}
