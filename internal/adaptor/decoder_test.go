package adaptor_test

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Run("Plain JSON lines", func(tt *testing.T) {
		buf := &bytes.Buffer{}
		enc := adaptor.NewJSONLinesEncoder(buf)
		require.NoError(tt, enc.Encode(map[string]string{"a": "<b>"}))
		require.NoError(tt, enc.Encode(map[string]int{"c": 1}))
		require.NoError(tt, enc.Close())
		assert.Equal(tt, "json", enc.Ext())
		assert.Equal(tt, "", enc.ContentEncoding())
		assert.Equal(tt, "{\"a\":\"<b>\"}\n{\"c\":1}\n", buf.String())
		assert.Equal(tt, int64(buf.Len()), enc.Size())

		rc, err := adaptor.NewDecompressReader(ioutil.NopCloser(buf), "x.json", "")
		require.NoError(tt, err)
		raw, err := ioutil.ReadAll(rc)
		require.NoError(tt, err)
		assert.Equal(tt, "{\"a\":\"<b>\"}\n{\"c\":1}\n", string(raw))
	})

	t.Run("Gzip JSON lines", func(tt *testing.T) {
		buf := &bytes.Buffer{}
		enc := adaptor.NewJSONLinesGzipEncoder(buf)
		require.NoError(tt, enc.Encode(map[string]string{"a": "b"}))
		require.NoError(tt, enc.Close())
		assert.Equal(tt, "json.gz", enc.Ext())
		assert.Equal(tt, "gzip", enc.ContentEncoding())

		// detected by magic number without suffix and encoding
		rc, err := adaptor.NewDecompressReader(ioutil.NopCloser(bytes.NewReader(buf.Bytes())), "x", "")
		require.NoError(tt, err)
		raw, err := ioutil.ReadAll(rc)
		require.NoError(tt, err)
		require.NoError(tt, rc.Close())
		assert.Equal(tt, "{\"a\":\"b\"}\n", string(raw))
	})

	t.Run("Broken gzip", func(tt *testing.T) {
		_, err := adaptor.NewDecompressReader(ioutil.NopCloser(bytes.NewReader([]byte("not gzip"))), "x.json.gz", "")
		require.Error(tt, err)
	})
}
