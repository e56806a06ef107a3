package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompress(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		`{"output_type":"stream","text":["1\n"]}`,
		strings.Repeat("Traceback (most recent call last):\n", 200),
	}

	for _, in := range inputs {
		packed, err := Compress(in)
		require.NoError(t, err)

		out, err := Decompress(packed)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestCompressShrinksRepetitiveOutput(t *testing.T) {
	in := strings.Repeat("0123456789", 1000)
	packed, err := Compress(in)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(in)/10)
}

func TestDecompressRejectsGarbage(t *testing.T) {
	_, err := Decompress("***")
	assert.Error(t, err)
}
