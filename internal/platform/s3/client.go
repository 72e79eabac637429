// Package s3 provides a minimal client for the S3-compatible backup
// endpoint referenced by the run configuration. Used by diagnostics to
// verify the backup bucket is reachable before the cluster starts
// depending on it.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Client wraps the S3 API for a single endpoint.
type Client struct {
	api s3API
}

// s3API is the slice of the S3 client diagnostics use; swappable in tests.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// NewClient builds a client for an S3-compatible endpoint with static
// credentials. Region is nominal for most compatible stores but required
// by the SDK.
func NewClient(ctx context.Context, endpoint, accessKey, secretKey string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &Client{api: api}, nil
}

// NewFromAPI wraps an existing API implementation; used by tests.
func NewFromAPI(api s3API) *Client {
	return &Client{api: api}
}

// BucketExists reports whether the bucket exists and is accessible with
// the configured credentials.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return true, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return false, nil
		}
	}
	return false, fmt.Errorf("failed to probe bucket %s: %w", bucket, err)
}
