package adaptor

import (
	"io"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// EncoderFactory is constructor type of Encoder
type EncoderFactory func(w io.Writer) Encoder

// Encoder writes one value per line.
type Encoder interface {
	Encode(v interface{}) error
	Close() error
	Size() int64
	Ext() string
	ContentEncoding() string
}

type jsonLinesEncoder struct {
	enc     *json.Encoder
	counter *sizeCounter
}

func (x *jsonLinesEncoder) Encode(v interface{}) error { return x.enc.Encode(v) }
func (x *jsonLinesEncoder) Close() error               { return nil }
func (x *jsonLinesEncoder) Size() int64                { return x.counter.wroteSize }
func (x *jsonLinesEncoder) Ext() string                { return "json" }
func (x *jsonLinesEncoder) ContentEncoding() string    { return "" }

// NewJSONLinesEncoder creates Encoder of newline delimited JSON.
func NewJSONLinesEncoder(w io.Writer) Encoder {
	counter := &sizeCounter{wr: w}
	enc := json.NewEncoder(counter)
	enc.SetEscapeHTML(false)
	return &jsonLinesEncoder{
		counter: counter,
		enc:     enc,
	}
}

type jsonLinesGzipEncoder struct {
	gw      *gzip.Writer
	enc     *json.Encoder
	counter *sizeCounter
}

func (x *jsonLinesGzipEncoder) Encode(v interface{}) error { return x.enc.Encode(v) }
func (x *jsonLinesGzipEncoder) Close() error               { return x.gw.Close() }
func (x *jsonLinesGzipEncoder) Size() int64                { return x.counter.wroteSize }
func (x *jsonLinesGzipEncoder) Ext() string                { return "json.gz" }
func (x *jsonLinesGzipEncoder) ContentEncoding() string    { return "gzip" }

// NewJSONLinesGzipEncoder creates Encoder of gzip compressed newline delimited JSON.
func NewJSONLinesGzipEncoder(w io.Writer) Encoder {
	gw := gzip.NewWriter(w)
	counter := &sizeCounter{wr: gw}
	enc := json.NewEncoder(counter)
	enc.SetEscapeHTML(false)
	return &jsonLinesGzipEncoder{
		gw:      gw,
		counter: counter,
		enc:     enc,
	}
}

type sizeCounter struct {
	wr        io.Writer
	wroteSize int64
}

func (x *sizeCounter) Write(p []byte) (int, error) {
	x.wroteSize += int64(len(p))
	return x.wr.Write(p)
}
