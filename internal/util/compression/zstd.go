package compression

import "github.com/klauspost/compress/zstd"

// One shared encoder and decoder; EncodeAll and DecodeAll are safe for
// concurrent use, so every call path shares them.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// ZstdCompressor is the default codec for announcement payload blobs.
type ZstdCompressor struct{}

func (z ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func (z ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	return zstdDecoder.DecodeAll(data, nil)
}
