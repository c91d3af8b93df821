package adaptor

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// gzip magic number
var gzipMagic = []byte{0x1f, 0x8b}

type gzipReadCloser struct {
	gr   *gzip.Reader
	body io.Closer
}

func (x *gzipReadCloser) Read(p []byte) (int, error) { return x.gr.Read(p) }
func (x *gzipReadCloser) Close() error {
	if err := x.gr.Close(); err != nil {
		x.body.Close()
		return err
	}
	return x.body.Close()
}

type bufferedReadCloser struct {
	*bufio.Reader
	body io.Closer
}

func (x *bufferedReadCloser) Close() error { return x.body.Close() }

// NewDecompressReader returns reader of decompressed body. The body is gunzipped if key has
// ".gz" suffix, encoding is "gzip" or the body starts with gzip magic number. Otherwise the
// body is returned as it is.
func NewDecompressReader(body io.ReadCloser, key, encoding string) (io.ReadCloser, error) {
	br := bufio.NewReader(body)
	compressed := strings.HasSuffix(key, ".gz") || encoding == "gzip"
	if !compressed {
		head, err := br.Peek(len(gzipMagic))
		if err == nil && head[0] == gzipMagic[0] && head[1] == gzipMagic[1] {
			compressed = true
		}
	}

	if !compressed {
		return &bufferedReadCloser{Reader: br, body: body}, nil
	}

	gr, err := gzip.NewReader(br)
	if err != nil {
		body.Close()
		return nil, errors.Wrapf(err, "Fail to open gzip stream: %s", key)
	}
	return &gzipReadCloser{gr: gr, body: body}, nil
}
