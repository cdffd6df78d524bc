package computer

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTypeable(t *testing.T) {
	t.Run("ascii is typed as one run", func(t *testing.T) {
		segs := splitTypeable("Hi a1")
		require.Len(t, segs, 1)
		assert.Equal(t, []input.Key{'H', 'i', ' ', 'a', '1'}, segs[0].keys)
		assert.Empty(t, segs[0].text)
	})

	t.Run("unmapped runes are inserted", func(t *testing.T) {
		segs := splitTypeable("héé!")
		require.Len(t, segs, 3)
		assert.Equal(t, []input.Key{'h'}, segs[0].keys)
		assert.Nil(t, segs[1].keys)
		assert.Equal(t, "éé", segs[1].text)
		assert.Equal(t, []input.Key{'!'}, segs[2].keys)
	})

	t.Run("only unmapped", func(t *testing.T) {
		segs := splitTypeable("日本")
		require.Len(t, segs, 1)
		assert.Equal(t, "日本", segs[0].text)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, splitTypeable(""))
	})
}

func TestTypeableKey(t *testing.T) {
	_, ok := typeableKey('a')
	assert.True(t, ok)
	_, ok = typeableKey('A')
	assert.True(t, ok)
	_, ok = typeableKey('é')
	assert.False(t, ok)
}
