package storage

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Options struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string // set for MinIO, R2 and other non-AWS services
	BaseURL  string // public URL prefix; defaults to the bucket's AWS URL
}

// S3 keeps objects in one bucket.
type S3 struct {
	api     *s3.Client
	bucket  string
	baseURL string
}

func NewS3(ctx context.Context, o S3Options) (*S3, error) {
	if o.Bucket == "" {
		return nil, errors.New("storage/s3: S3_BUCKET is not set")
	}
	region := cmp.Or(o.Region, "us-east-1")

	load := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if o.Key != "" && o.Secret != "" {
		load = append(load, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.Key, o.Secret, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, fmt.Errorf("storage/s3: aws config: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	base := cmp.Or(strings.TrimRight(o.BaseURL, "/"), fmt.Sprintf("https://%s.s3.%s.amazonaws.com", o.Bucket, region))
	return &S3{api: api, bucket: o.Bucket, baseURL: base}, nil
}

// Put uploads content with a long cache lifetime; QR images never change
// once written.
func (d *S3) Put(ctx context.Context, key string, content []byte, contentType string) error {
	_, err := d.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &d.bucket,
		Key:          aws.String(key),
		Body:         bytes.NewReader(content),
		ContentType:  aws.String(cmp.Or(contentType, "application/octet-stream")),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return fmt.Errorf("storage/s3: put s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}

func (d *S3) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := d.api.GetObject(ctx, &s3.GetObjectInput{Bucket: &d.bucket, Key: aws.String(key)})
	var missing *types.NoSuchKey
	switch {
	case errors.As(err, &missing):
		return nil, ErrNotExist
	case err != nil:
		return nil, fmt.Errorf("storage/s3: get s3://%s/%s: %w", d.bucket, key, err)
	}
	defer obj.Body.Close()

	b, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("storage/s3: read s3://%s/%s: %w", d.bucket, key, err)
	}
	return b, nil
}

func (d *S3) URL(key string) string { return d.baseURL + "/" + strings.TrimLeft(key, "/") }
