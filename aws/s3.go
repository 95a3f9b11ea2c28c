// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type S3Client struct {
	C      *s3.Client
	Bucket *string

	presign *s3.PresignClient
}

// NewS3 builds a client for any S3 compatible store and checks that the
// bucket exists.
func NewS3(ctx context.Context, o S3Options) (*S3Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			o.AccessKey,
			o.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(o.Bucket)

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			// MinIO and friends need path style addressing
			so.UsePathStyle = true
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3Client{
		C:       client,
		Bucket:  bucket,
		presign: s3.NewPresignClient(client),
	}, nil
}

// PresignPut returns a URL the client can PUT the object body to directly.
func (s *S3Client) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: s.Bucket,
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, in, func(po *s3.PresignOptions) {
		po.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign upload url, %w", err)
	}

	return req.URL, nil
}
