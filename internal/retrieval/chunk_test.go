package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkSkipsShortText(t *testing.T) {
	require.Nil(t, Chunk("too short"))
}

func TestChunkReturnsWholeTextWhenUnderChunkSize(t *testing.T) {
	text := strings.Repeat("a", 500)
	chunks := Chunk(text)
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0])
}

func TestChunkSplitsLongTextWithOverlap(t *testing.T) {
	text := strings.Repeat("x", 3000)
	chunks := Chunk(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.GreaterOrEqual(t, len(c), minChunkLen)
		require.LessOrEqual(t, len(c), chunkSize)
	}
}

func TestChunkDropsFinalFragmentShorterThanMinimum(t *testing.T) {
	text := strings.Repeat("y", chunkSize+10)
	chunks := Chunk(text)
	for _, c := range chunks {
		require.GreaterOrEqual(t, len(c), minChunkLen)
	}
}
