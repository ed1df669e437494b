package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorSeek(t *testing.T) {
	tr, s := createTestTree(t, Options{})
	root := int64(0)
	// keys 00, 02, 04, ... 98
	for i := 0; i < 100; i += 2 {
		root = set(t, tr, s, root, fmt.Sprintf("%02d", i), "v")
	}

	tests := []struct {
		seek  string
		first string
		count int
	}{
		{"", "00", 50},
		{"00", "00", 50},
		{"01", "02", 49},
		{"50", "50", 25},
		{"51", "52", 24},
		{"98", "98", 1},
		{"99", "", 0},
		{"a", "", 0},
	}

	for _, tt := range tests {
		t.Run("seek "+tt.seek, func(t *testing.T) {
			c := tr.Cursor(root)
			defer c.Close()
			require.NoError(t, c.Seek([]byte(tt.seek)))

			var keys []string
			for rec, ok := c.Next(); ok; rec, ok = c.Next() {
				keys = append(keys, string(rec.Key))
			}
			require.NoError(t, c.Err())
			require.Len(t, keys, tt.count)
			if tt.count > 0 {
				assert.Equal(t, tt.first, keys[0])
			}
		})
	}
}

func TestCursorReseek(t *testing.T) {
	tr, s := createTestTree(t, Options{})
	root := set(t, tr, s, 0, "a", "1", "b", "2", "c", "3", "d", "4", "e", "5", "f", "6")

	c := tr.Cursor(root)
	defer c.Close()

	rec, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "a", string(rec.Key))

	require.NoError(t, c.Seek([]byte("e")))
	rec, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "e", string(rec.Key))

	require.NoError(t, c.First())
	rec, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "a", string(rec.Key))
}

func TestCursorExhaustedStaysExhausted(t *testing.T) {
	tr, s := createTestTree(t, Options{})
	root := set(t, tr, s, 0, "a", "1")

	c := tr.Cursor(root)
	_, ok := c.Next()
	require.True(t, ok)
	_, ok = c.Next()
	assert.False(t, ok)
	_, ok = c.Next()
	assert.False(t, ok)
	assert.NoError(t, c.Err())
}

func TestCursorClose(t *testing.T) {
	tr, s := createTestTree(t, Options{})
	root := set(t, tr, s, 0, "a", "1", "b", "2")

	c := tr.Cursor(root)
	c.Close()
	_, ok := c.Next()
	assert.False(t, ok)
	require.NoError(t, c.Seek([]byte("a")))
	_, ok = c.Next()
	assert.False(t, ok)
}

func TestCursorIgnoresLaterVersions(t *testing.T) {
	tr, s := createTestTree(t, Options{})
	root := set(t, tr, s, 0, "a", "1", "c", "3")

	c := tr.Cursor(root)
	defer c.Close()
	rec, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "a", string(rec.Key))

	set(t, tr, s, root, "b", "2")

	rec, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "c", string(rec.Key))
	_, ok = c.Next()
	assert.False(t, ok)
}
