// Compression for large blob payloads.
//
// Blob contents at or above Config.CompressThreshold are Zstd-compressed before
// entering the long-string store and decompressed transparently on decode.
// Short payloads and payloads that do not shrink are stored verbatim.
package whitedb

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Shared encoder/decoder — both are documented as safe for concurrent use.
// Allocated once because zstd encoder/decoder construction is expensive
// relative to compressing a single blob. SpeedFastest: compression runs on
// every blob encode while decompression only runs when a blob field is
// actually read.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

func compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

func decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	return out, nil
}
