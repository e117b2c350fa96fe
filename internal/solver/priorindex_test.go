package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorIndexLookup(t *testing.T) {
	policy := testBlueprint().Policy
	idx, err := BuildPriorIndex(policy)
	require.NoError(t, err)
	assert.Equal(t, len(policy), idx.Len())

	for k, want := range policy {
		got, ok := idx.Lookup(k)
		require.True(t, ok, "key %s missing from index", k)
		assert.Equal(t, want, got)
	}
}

func TestPriorIndexRejectsUnknownKey(t *testing.T) {
	idx, err := BuildPriorIndex(testBlueprint().Policy)
	require.NoError(t, err)
	_, ok := idx.Lookup("river|IP|tex=1111|spr=0_1|facingBet|r=3|hs=9")
	assert.False(t, ok)
}

func TestNilPriorIndexLookupMisses(t *testing.T) {
	var idx *PriorIndex
	_, ok := idx.Lookup("anything")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
}
