package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStrategy(t *testing.T) {
	chunk := int64(10 * 1024 * 1024)

	tests := []struct {
		name string
		size int64
		want Strategy
	}{
		{"tiny file", 1, StrategyDirect},
		{"half threshold", chunk / 2, StrategyDirect},
		{"exactly at threshold", chunk, StrategyDirect},
		{"one byte over", chunk + 1, StrategyChunked},
		{"much larger", 25 * 1024 * 1024, StrategyChunked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(tt.size, chunk))
		})
	}
}

func TestPartitionCoversFileExactly(t *testing.T) {
	chunk := int64(10 * 1024 * 1024)

	tests := []struct {
		name      string
		size      int64
		wantParts int
		wantLast  int64
	}{
		{"single short part", 1, 1, 1},
		{"evenly divisible", 3 * chunk, 3, chunk},
		{"short tail", 25 * 1024 * 1024, 3, 5 * 1024 * 1024},
		{"one byte over a boundary", 2*chunk + 1, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := Partition(tt.size, chunk)
			require.Len(t, parts, tt.wantParts)

			var offset int64
			for i, p := range parts {
				assert.Equal(t, i+1, p.Number, "part numbers are contiguous from 1")
				assert.Equal(t, offset, p.Offset, "no gaps or overlaps")
				assert.Positive(t, p.Length)
				offset += p.Length
			}
			assert.Equal(t, tt.size, offset, "ranges cover [0, fileSize)")
			assert.Equal(t, tt.wantLast, parts[len(parts)-1].Length)
		})
	}
}

func TestPartitionDegenerateInputs(t *testing.T) {
	assert.Nil(t, Partition(0, 1024))
	assert.Nil(t, Partition(1024, 0))
	assert.Nil(t, Partition(-1, 1024))
}
