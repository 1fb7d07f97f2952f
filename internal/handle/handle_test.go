package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_InsertGetRemove(t *testing.T) {
	tab := NewTable[string](KindTokenizer)

	id := tab.Insert("a")
	require.NotZero(t, id)
	assert.Equal(t, KindTokenizer, id.Kind())
	assert.Equal(t, 1, tab.Len())

	v, err := tab.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = tab.Remove(id)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 0, tab.Len())
}

func TestTable_DoubleRemoveIsStale(t *testing.T) {
	tab := NewTable[int](KindEncoding)
	id := tab.Insert(7)

	_, err := tab.Remove(id)
	require.NoError(t, err)

	_, err = tab.Remove(id)
	require.ErrorIs(t, err, ErrStale)

	_, err = tab.Get(id)
	require.ErrorIs(t, err, ErrStale)
}

func TestTable_ReusedSlotRejectsOldHandle(t *testing.T) {
	tab := NewTable[int](KindEncoding)
	old := tab.Insert(1)
	_, err := tab.Remove(old)
	require.NoError(t, err)

	fresh := tab.Insert(2)
	assert.Equal(t, old.index(), fresh.index())
	assert.NotEqual(t, old, fresh)

	_, err = tab.Get(old)
	require.ErrorIs(t, err, ErrStale)

	v, err := tab.Get(fresh)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestTable_ExhaustedGenerationRetiresSlot(t *testing.T) {
	tab := NewTable[int](KindEncoding)
	first := tab.Insert(1)
	tab.slots[first.index()].gen = genMask
	last := makeID(KindEncoding, genMask, first.index())

	_, err := tab.Remove(last)
	require.NoError(t, err)
	assert.Equal(t, 0, tab.Len())

	fresh := tab.Insert(2)
	assert.NotEqual(t, last.index(), fresh.index())
	assert.Equal(t, uint32(1), fresh.generation())

	_, err = tab.Get(last)
	require.ErrorIs(t, err, ErrStale)
	_, err = tab.Get(makeID(KindEncoding, 1, last.index()))
	require.ErrorIs(t, err, ErrStale)
}

func TestTable_InvalidAndWrongKind(t *testing.T) {
	tok := NewTable[int](KindTokenizer)
	enc := NewTable[int](KindEncoding)

	_, err := tok.Get(0)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = tok.Get(makeID(KindTokenizer, 1, 99))
	require.ErrorIs(t, err, ErrInvalid)

	id := enc.Insert(1)
	_, err = tok.Get(id)
	require.ErrorIs(t, err, ErrWrongKind)
}

func TestTable_IDsSnapshot(t *testing.T) {
	tab := NewTable[int](KindTokenizer)
	a := tab.Insert(1)
	b := tab.Insert(2)
	_, err := tab.Remove(a)
	require.NoError(t, err)

	assert.Equal(t, []ID{b}, tab.IDs())
}

func TestTable_ConcurrentDistinctHandles(t *testing.T) {
	tab := NewTable[int](KindEncoding)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := tab.Insert(i*1000 + j)
				v, err := tab.Get(id)
				assert.NoError(t, err)
				assert.Equal(t, i*1000+j, v)
				_, err = tab.Remove(id)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, tab.Len())
}

func TestID_String(t *testing.T) {
	id := makeID(KindEncoding, 3, 5)
	assert.Equal(t, "encoding#5.3", id.String())
}
