package service

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/m-mizutani/eventlake/internal/adaptor"
	"github.com/m-mizutani/eventlake/internal/util"
	"github.com/m-mizutani/eventlake/pkg/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// S3Service is accessor to S3
type S3Service struct {
	newS3 adaptor.S3ClientFactory
	retry *util.RetryPolicy
}

// NewS3Service is constructor of S3Service. Get and put are retried by retry.
func NewS3Service(newS3 adaptor.S3ClientFactory, retry *util.RetryPolicy) *S3Service {
	if retry == nil {
		retry = util.NewRetryPolicy()
	}
	return &S3Service{
		newS3: newS3,
		retry: retry,
	}
}

func isNoSuchKey(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket:
			return true
		}
	}
	return false
}

// ReadObject downloads an object and returns decompressed content. gzip object is
// detected by key suffix, content encoding or magic number.
func (x *S3Service) ReadObject(src models.S3Object) ([]byte, error) {
	client := x.newS3(src.Region)
	var raw []byte

	err := x.retry.Run(func(seq int) error {
		output, err := client.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(src.Bucket),
			Key:    aws.String(src.Key),
		})
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"seq":    seq,
				"object": src.Path(),
			}).Warn("Fail to get object")

			if isNoSuchKey(err) {
				return util.StopRetry(err)
			}
			return err
		}

		body, err := adaptor.NewDecompressReader(output.Body, src.Key, aws.StringValue(output.ContentEncoding))
		if err != nil {
			return util.StopRetry(err)
		}
		defer body.Close()

		raw, err = ioutil.ReadAll(body)
		if err != nil {
			return errors.Wrapf(err, "Fail to read object body: %s", src.Path())
		}
		return nil
	})

	if err != nil {
		return nil, newError(ErrObjectStore, err, "Fail to get object %s", src.Path())
	}

	logger.WithFields(logrus.Fields{
		"object": src.Path(),
		"size":   len(raw),
	}).Debug("Read an object")

	return raw, nil
}

// PutObject uploads body to dst.
func (x *S3Service) PutObject(body []byte, dst models.S3Object, encoding string) error {
	return x.upload(func() (io.ReadSeeker, func(), error) {
		return bytes.NewReader(body), func() {}, nil
	}, dst, encoding)
}

// UploadFileToS3 upload a specified local file to S3
func (x *S3Service) UploadFileToS3(filePath string, dst models.S3Object) error {
	return x.upload(func() (io.ReadSeeker, func(), error) {
		fd, err := os.Open(filePath)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "Fail to open a file: %s", filePath)
		}
		return fd, func() { fd.Close() }, nil
	}, dst, "")
}

func (x *S3Service) upload(open func() (io.ReadSeeker, func(), error), dst models.S3Object, encoding string) error {
	client := x.newS3(dst.Region)

	err := x.retry.Run(func(seq int) error {
		body, closer, err := open()
		if err != nil {
			return util.StopRetry(err)
		}
		defer closer()

		input := &s3.PutObjectInput{
			Body:   body,
			Bucket: aws.String(dst.Bucket),
			Key:    aws.String(dst.Key),
		}
		if encoding != "" {
			input.ContentEncoding = aws.String(encoding)
		}

		resp, err := client.PutObject(input)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"seq":    seq,
				"object": dst.Path(),
			}).Warn("Fail to put object")
			return err
		}

		logger.WithFields(logrus.Fields{
			"resp":   resp,
			"bucket": dst.Bucket,
			"key":    dst.Key,
		}).Debug("Uploaded an object")
		return nil
	})

	if err != nil {
		return newError(ErrObjectStore, err, "Fail to put object %s", dst.Path())
	}
	return nil
}

// ListObjects returns all objects under the prefix in lexical order.
func (x *S3Service) ListObjects(prefix models.S3Object) ([]models.S3Object, error) {
	client := x.newS3(prefix.Region)
	var objects []models.S3Object
	var token *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(prefix.Bucket),
			Prefix:            aws.String(prefix.Key),
			ContinuationToken: token,
		}

		var output *s3.ListObjectsV2Output
		err := x.retry.Run(func(seq int) error {
			resp, err := client.ListObjectsV2(input)
			if err != nil {
				return err
			}
			output = resp
			return nil
		})
		if err != nil {
			return nil, newError(ErrObjectStore, err, "Fail to list objects %s", prefix.Path())
		}

		for _, obj := range output.Contents {
			objects = append(objects, models.NewS3Object(prefix.Region, prefix.Bucket, aws.StringValue(obj.Key)))
		}

		if !aws.BoolValue(output.IsTruncated) || output.NextContinuationToken == nil {
			break
		}
		token = output.NextContinuationToken
	}

	return objects, nil
}
