package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// S3Store persists objects in an S3 bucket and returns public object URLs.
type S3Store struct {
	client    *s3.Client
	bucket    string
	urlPrefix string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store constructs an S3-backed object store. Credentials come from the
// default AWS chain (environment, shared config, instance role).
func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	if bucket == "" {
		return nil, eris.New("s3 bucket is required")
	}
	if region == "" {
		return nil, eris.New("s3 region is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "loading aws config")
	}

	return &S3Store{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		urlPrefix: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", bucket, region),
	}, nil
}

func (s *S3Store) Store(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", eris.New("object key is required")
	}
	if len(data) == 0 {
		return "", eris.New("object data is empty")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", eris.Wrapf(err, "putting object %s", key)
	}

	return s.urlPrefix + key, nil
}

func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return eris.Wrapf(err, "deleting object %s", key)
	}

	return nil
}

func (s *S3Store) keyFromURL(url string) (string, error) {
	key := strings.TrimPrefix(url, s.urlPrefix)
	if key == url || key == "" {
		return "", eris.Errorf("url %s does not belong to bucket %s", url, s.bucket)
	}
	return key, nil
}
