// Package compression packs cell outputs into base64 text for the wire.
package compression

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// Compress brotli-encodes s and returns it as standard base64.
func Compress(s string) (string, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write([]byte(s)); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func Decompress(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return "", fmt.Errorf("decompress: %w", err)
	}
	return string(out), nil
}
