package mock

import (
	"bytes"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/eventlake/internal/adaptor"
)

// NewS3Client is constructor of S3 Mock. All clients created by NewS3Client share one data store.
func NewS3Client(region string) adaptor.S3Client {
	return &S3Client{
		Region: region,
		data:   mockS3ClientDataStore,
	}
}

// NewS3ClientWithStore creates S3 Mock having own data store.
func NewS3ClientWithStore() *S3Client {
	return &S3Client{
		data: map[string]map[string]*s3Object{},
	}
}

type s3Object struct {
	body     []byte
	encoding *string
}

var mockS3ClientDataStore = map[string]map[string]*s3Object{}

// S3Client is on memory S3Client mock
type S3Client struct {
	Region string

	// Number of GetObject/PutObject calls that fail before a call succeeds.
	GetFailures int
	PutFailures int

	GetCount  int
	PutCount  int
	ListCount int

	// MaxKeys limits size of a ListObjectsV2 page
	MaxKeys int

	data map[string]map[string]*s3Object
}

// Factory returns the mock itself. It can be used as adaptor.S3ClientFactory.
func (x *S3Client) Factory(region string) adaptor.S3Client {
	x.Region = region
	return x
}

// GetObject of S3Client loads []bytes from memory
func (x *S3Client) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	x.GetCount++
	if x.GetFailures > 0 {
		x.GetFailures--
		return nil, awserr.New("InternalError", "mock get failure", nil)
	}

	bucket, ok := x.data[*input.Bucket]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchBucket, "no such bucket", nil)
	}
	obj, ok := bucket[*input.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil)
	}

	return &s3.GetObjectOutput{
		Body:            ioutil.NopCloser(bytes.NewReader(obj.body)),
		ContentEncoding: obj.encoding,
		ContentLength:   aws.Int64(int64(len(obj.body))),
	}, nil
}

// PutObject of S3Client saves []bytes to memory
func (x *S3Client) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	x.PutCount++
	if x.PutFailures > 0 {
		x.PutFailures--
		return nil, awserr.New("InternalError", "mock put failure", nil)
	}

	raw, err := ioutil.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}

	bucket, ok := x.data[*input.Bucket]
	if !ok {
		bucket = map[string]*s3Object{}
		x.data[*input.Bucket] = bucket
	}

	bucket[*input.Key] = &s3Object{body: raw, encoding: input.ContentEncoding}

	return &s3.PutObjectOutput{}, nil
}

// ListObjectsV2 of S3Client returns keys in lexical order
func (x *S3Client) ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	x.ListCount++

	prefix := aws.StringValue(input.Prefix)
	var keys []string
	for key := range x.data[*input.Bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if token := aws.StringValue(input.ContinuationToken); token != "" {
		idx := sort.SearchStrings(keys, token)
		keys = keys[idx:]
	}

	output := &s3.ListObjectsV2Output{
		IsTruncated: aws.Bool(false),
	}
	if x.MaxKeys > 0 && len(keys) > x.MaxKeys {
		output.IsTruncated = aws.Bool(true)
		output.NextContinuationToken = aws.String(keys[x.MaxKeys])
		keys = keys[:x.MaxKeys]
	}

	for _, key := range keys {
		obj := x.data[*input.Bucket][key]
		output.Contents = append(output.Contents, &s3.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(obj.body))),
		})
	}
	output.KeyCount = aws.Int64(int64(len(output.Contents)))

	return output, nil
}

// Get returns stored object body. It is helper for testing.
func (x *S3Client) Get(bucket, key string) ([]byte, bool) {
	obj, ok := x.data[bucket][key]
	if !ok {
		return nil, false
	}
	return obj.body, true
}

// Put stores object body directly. It is helper for testing.
func (x *S3Client) Put(bucket, key string, body []byte) {
	if _, ok := x.data[bucket]; !ok {
		x.data[bucket] = map[string]*s3Object{}
	}
	x.data[bucket][key] = &s3Object{body: body}
}

// Keys returns all keys of the bucket in lexical order. It is helper for testing.
func (x *S3Client) Keys(bucket string) []string {
	var keys []string
	for key := range x.data[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
