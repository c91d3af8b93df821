package models_test

import (
	"testing"

	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3Path(t *testing.T) {
	t.Run("Parse bucket and key", func(tt *testing.T) {
		obj, err := models.ParseS3Path("ap-northeast-1", "s3://blue/raw/click/a.json")
		require.NoError(tt, err)
		assert.Equal(tt, "ap-northeast-1", obj.Region)
		assert.Equal(tt, "blue", obj.Bucket)
		assert.Equal(tt, "raw/click/a.json", obj.Key)
		assert.False(tt, obj.IsPrefix())
	})

	t.Run("Bucket only is a prefix", func(tt *testing.T) {
		obj, err := models.ParseS3Path("x", "s3://orange")
		require.NoError(tt, err)
		assert.Equal(tt, "", obj.Key)
		assert.True(tt, obj.IsPrefix())
	})

	t.Run("Not S3 path", func(tt *testing.T) {
		_, err := models.ParseS3Path("x", "/tmp/data.json")
		require.Error(tt, err)
		_, err = models.ParseS3Path("x", "s3:///key")
		require.Error(tt, err)
	})
}

func TestAppendKey(t *testing.T) {
	base := models.NewS3Object("r", "b", "")
	assert.Equal(t, "k1", base.AppendKey("k1").Key)
	assert.Equal(t, "p/k1", models.NewS3Object("r", "b", "p").AppendKey("k1").Key)
	assert.Equal(t, "p/k1", models.NewS3Object("r", "b", "p/").AppendKey("k1").Key)
	assert.Equal(t, "s3://b/p/k1", models.NewS3Object("r", "b", "p/").AppendKey("k1").Path())
}
