package cache

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Entries are stored as zstd-compressed JSON. Encoder and decoder are safe
// for concurrent EncodeAll/DecodeAll calls and are shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("cache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("cache: zstd decoder initialization failed: " + err.Error())
	}
}

func encodeEntry(entry *CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return zstdEncoder.EncodeAll(data, nil), nil
}

func decodeEntry(data []byte) (*CacheEntry, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrInvalidEntry, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}
