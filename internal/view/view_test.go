package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf_AliasesSlice(t *testing.T) {
	ids := []uint32{1, 2, 3}
	v := Of(ids)

	assert.Equal(t, 3, v.Len)
	assert.True(t, v.Valid())

	ids[0] = 9
	assert.Equal(t, []uint32{9, 2, 3}, v.Slice())
}

func TestOf_Empty(t *testing.T) {
	v := Of([]uint32{})
	assert.Nil(t, v.Ptr)
	assert.Equal(t, 0, v.Len)
	assert.True(t, v.Valid())
	assert.Nil(t, v.Slice())
}

func TestValid(t *testing.T) {
	assert.False(t, Array[byte]{Len: 3}.Valid())
	assert.False(t, Array[byte]{Len: -1}.Valid())
}

func TestStringAndText(t *testing.T) {
	v := String("héllo")
	assert.Equal(t, 6, v.Len)
	assert.Equal(t, "héllo", Text(v))
	assert.Equal(t, "", Text(String("")))
}
