package models

import (
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// S3Object indicates one object (or one key prefix) on S3.
type S3Object struct {
	Region string `json:"region"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// NewS3Object is constructor of S3Object
func NewS3Object(region, bucket, key string) S3Object {
	return S3Object{
		Region: region,
		Bucket: bucket,
		Key:    key,
	}
}

// NewS3ObjectFromRecord converts a record of S3 event notification.
func NewS3ObjectFromRecord(record events.S3EventRecord) S3Object {
	return S3Object{
		Region: record.AWSRegion,
		Bucket: record.S3.Bucket.Name,
		Key:    record.S3.Object.Key,
	}
}

// ParseS3Path parses "s3://bucket/key" style path.
func ParseS3Path(region, path string) (*S3Object, error) {
	if !strings.HasPrefix(path, "s3://") {
		return nil, fmt.Errorf("Invalid S3 path, must start with s3:// : %s", path)
	}

	parts := strings.SplitN(path[len("s3://"):], "/", 2)
	if parts[0] == "" {
		return nil, errors.New("Invalid S3 path, bucket name is required")
	}

	obj := &S3Object{Region: region, Bucket: parts[0]}
	if len(parts) > 1 {
		obj.Key = parts[1]
	}
	return obj, nil
}

// AppendKey returns a new S3Object that has joined key.
func (x S3Object) AppendKey(append string) S3Object {
	switch {
	case x.Key == "":
		x.Key = append
	case strings.HasSuffix(x.Key, "/"):
		x.Key += append
	default:
		x.Key += "/" + append
	}
	return x
}

// IsPrefix returns true if the key indicates a directory like prefix.
func (x S3Object) IsPrefix() bool {
	return x.Key == "" || strings.HasSuffix(x.Key, "/")
}

// Path returns s3:// style path.
func (x S3Object) Path() string {
	return fmt.Sprintf("s3://%s/%s", x.Bucket, x.Key)
}
