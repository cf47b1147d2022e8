package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// textCodec compresses page full texts. EncodeAll and DecodeAll are safe for
// concurrent use.
type textCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newTextCodec() (*textCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	return &textCodec{encoder: encoder, decoder: decoder}, nil
}

func (c *textCodec) compress(text string) []byte {
	return c.encoder.EncodeAll([]byte(text), nil)
}

func (c *textCodec) decompress(data []byte) (string, error) {
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("decompressing full text: %w", err)
	}
	return string(out), nil
}

func (c *textCodec) close() {
	if err := c.encoder.Close(); err != nil {
		logger.Warnf("failed to close zstd encoder: %v", err)
	}
	c.decoder.Close()
}
