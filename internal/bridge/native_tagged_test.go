//go:build hftokenizers

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-tokenizers/internal/testutil"
)

func TestNativeBackend_MatchesBuiltin(t *testing.T) {
	testutil.RequireNativeBackend(t)
	path := testutil.RequireTokenizerJSON(t)

	native := New(WithNativeBackend(true))
	defer native.Close()
	builtin := New()
	defer builtin.Close()

	nh, err := native.NewFromFile(path)
	require.NoError(t, err)
	bh, err := builtin.NewFromFile(path)
	require.NoError(t, err)

	for _, text := range []string{"Hello world", "tokenizers across a boundary"} {
		ne, err := native.Encode(nh, text, true)
		require.NoError(t, err)
		be, err := builtin.Encode(bh, text, true)
		require.NoError(t, err)

		nids, err := native.IDs(ne)
		require.NoError(t, err)
		bids, err := builtin.IDs(be)
		require.NoError(t, err)
		assert.Equal(t, nids.Slice(), bids.Slice(), text)
	}
}
