package pipeline

import (
	"bytes"
	"os"
	"strings"

	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/service"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RawSource provides raw records for BatchPipeline.
type RawSource interface {
	Load() ([]*models.Record, error)
	String() string
}

var rawObjectSuffixes = []string{".json", ".jsonl", ".ndjson"}

// IsRawObjectKey returns true if key looks like a raw JSON object. Gzipped objects are included.
func IsRawObjectKey(key string) bool {
	key = strings.TrimSuffix(key, ".gz")
	for _, s := range rawObjectSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// S3Source reads one object, or all raw objects under a prefix such as
// "{prefix}/{event_type}/*.json".
type S3Source struct {
	Object    models.S3Object
	s3Service *service.S3Service
}

// NewS3Source is constructor of S3Source
func NewS3Source(obj models.S3Object, s3Service *service.S3Service) *S3Source {
	return &S3Source{Object: obj, s3Service: s3Service}
}

func (x *S3Source) String() string { return x.Object.Path() }

// Load implements RawSource
func (x *S3Source) Load() ([]*models.Record, error) {
	if !x.Object.IsPrefix() {
		return x.loadObject(x.Object)
	}

	objects, err := x.s3Service.ListObjects(x.Object)
	if err != nil {
		return nil, err
	}

	var records []*models.Record
	for _, obj := range objects {
		if !IsRawObjectKey(obj.Key) {
			logger.WithField("object", obj.Path()).Debug("Skip non JSON object")
			continue
		}

		loaded, err := x.loadObject(obj)
		if err != nil {
			return nil, err
		}
		records = append(records, loaded...)
	}

	logger.WithFields(logrus.Fields{
		"prefix":  x.Object.Path(),
		"objects": len(objects),
		"records": len(records),
	}).Info("Loaded raw objects")

	return records, nil
}

func (x *S3Source) loadObject(obj models.S3Object) ([]*models.Record, error) {
	raw, err := x.s3Service.ReadObject(obj)
	if err != nil {
		return nil, err
	}

	records, err := models.DecodeRecords(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to decode raw object: %s", obj.Path())
	}
	return records, nil
}

// FileSource reads a local file. A file with ".gz" suffix is decompressed.
type FileSource struct {
	Path string
}

func (x *FileSource) String() string { return x.Path }

// Load implements RawSource
func (x *FileSource) Load() ([]*models.Record, error) {
	fd, err := os.Open(x.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to open raw file: %s", x.Path)
	}

	rd, err := adaptor.NewDecompressReader(fd, x.Path, "")
	if err != nil {
		fd.Close()
		return nil, err
	}
	defer rd.Close()

	records, err := models.DecodeRecords(rd)
	if err != nil {
		return nil, errors.Wrapf(err, "Fail to decode raw file: %s", x.Path)
	}
	return records, nil
}

// NewSource creates RawSource from "s3://bucket/key", "s3://bucket/prefix/" or a local file path.
func NewSource(path, region string, s3Service *service.S3Service) (RawSource, error) {
	if strings.HasPrefix(path, "s3://") {
		obj, err := models.ParseS3Path(region, path)
		if err != nil {
			return nil, err
		}
		return NewS3Source(*obj, s3Service), nil
	}

	if path == "" {
		return nil, errors.New("Source path is empty")
	}
	return &FileSource{Path: path}, nil
}
