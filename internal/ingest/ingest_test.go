package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-tokenizers/internal/view"
)

func TestStrings_AscendingOrderOncePerIndex(t *testing.T) {
	src := []string{"zero", "one", "", "three"}

	var order []int
	at := func(c []string, i int) view.Array[byte] {
		order = append(order, i)
		return view.String(c[i])
	}

	got, err := Strings(src, len(src), at)
	require.NoError(t, err)
	assert.Equal(t, src, got)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestStrings_CopiesOutOfBorrowedMemory(t *testing.T) {
	buf := [][]byte{[]byte("abc")}
	got, err := Strings(buf, 1, SliceAccessor[byte])
	require.NoError(t, err)

	buf[0][0] = 'x'
	assert.Equal(t, []string{"abc"}, got)
}

func TestVisit_CustomLayout(t *testing.T) {
	// a flat buffer plus an offsets table, as a foreign caller might hold it
	type packed struct {
		data    []uint32
		offsets []int
	}
	p := packed{data: []uint32{1, 2, 3, 4, 5, 6}, offsets: []int{0, 2, 2, 6}}
	at := func(c packed, i int) view.Array[uint32] {
		return view.Of(c.data[c.offsets[i]:c.offsets[i+1]])
	}

	var got [][]uint32
	err := Visit(p, 3, at, func(i int, v view.Array[uint32]) error {
		assert.Len(t, got, i)
		got = append(got, append([]uint32(nil), v.Slice()...))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]uint32{{1, 2}, nil, {3, 4, 5, 6}}, got)
}

func TestVisit_Errors(t *testing.T) {
	_, err := Strings([]string{}, -1, StringAccessor)
	require.ErrorIs(t, err, ErrNegativeCount)

	_, err = Strings[[]string](nil, 2, nil)
	require.ErrorIs(t, err, ErrNilAccessor)

	bad := func(_ []string, i int) view.Array[byte] {
		if i == 1 {
			return view.Array[byte]{Len: 3}
		}
		return view.String("ok")
	}
	_, err = Strings([]string{"a", "b"}, 2, bad)
	require.ErrorIs(t, err, ErrInvalidView)
	assert.Contains(t, err.Error(), "index 1")
}

func TestVisit_StopsOnCallbackError(t *testing.T) {
	calls := 0
	err := Visit([]string{"a", "b", "c"}, 3, StringAccessor, func(i int, _ view.Array[byte]) error {
		calls++
		if i == 1 {
			return assert.AnError
		}
		return nil
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, calls)
}
