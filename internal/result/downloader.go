package result

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/databricks/sqlwarehouse-go/internal/backend"
	"github.com/databricks/sqlwarehouse-go/internal/transport"
)

// downloadChunk fetches one presigned link's bytes and, if the result set
// was negotiated LZ4-compressed, decompresses the LZ4 frame — mirroring
// original_source's downloader.py ResultSetDownloadHandler.run, split here
// into its own function (rather than a struct with a run method) since it
// has no state beyond its arguments.
func downloadChunk(ctx context.Context, httpClient *transport.Client, link backend.ChunkLink, lz4Compressed bool) (DownloadedFile, error) {
	resp, err := httpClient.RequestPreAuth(ctx, link.PresignedURL)
	if err != nil {
		return DownloadedFile{}, fmt.Errorf("result: downloading chunk %d: %w", link.ChunkIndex, err)
	}

	data := resp.Data

	if lz4Compressed {
		data, err = decompressLZ4(data)
		if err != nil {
			return DownloadedFile{}, fmt.Errorf("result: decompressing chunk %d: %w", link.ChunkIndex, err)
		}
	}

	return DownloadedFile{
		ChunkIndex:     link.ChunkIndex,
		StartRowOffset: link.StartRowOffset,
		RowCount:       link.RowCount,
		Data:           data,
	}, nil
}

func decompressLZ4(framed []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(framed))

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return out, nil
}
