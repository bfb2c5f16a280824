// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config configures an [S3] backend.
type S3Config struct {
	// Name identifies the remote.
	Name string

	Bucket string
	Prefix string

	// Endpoint is the service URL, e.g. an R2 account endpoint.
	// Empty uses AWS.
	Endpoint string

	// Region defaults to "auto", which R2 accepts.
	Region string

	AccessKeyID     string
	SecretAccessKey string

	// HTTPClient overrides the SDK's client. Used by tests.
	HTTPClient *http.Client
}

// S3 talks to an S3-compatible store with the AWS SDK. Objects are
// addressed path-style so custom endpoints work without DNS buckets.
type S3 struct {
	name   string
	bucket string
	prefix string
	svc    *s3.S3
}

// NewS3 returns a native S3 backend. Both keys are required.
func NewS3(config S3Config) (*S3, error) {
	if config.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if config.AccessKeyID == "" || config.SecretAccessKey == "" {
		return nil, errors.New("s3 access key id and secret access key are required")
	}
	region := config.Region
	if region == "" {
		region = "auto"
	}
	awsConfig := &aws.Config{
		Region:           aws.String(region),
		Credentials:      credentials.NewStaticCredentials(config.AccessKeyID, config.SecretAccessKey, ""),
		S3ForcePathStyle: aws.Bool(true),
		// Retries are owned by the dispatcher.
		MaxRetries: aws.Int(0),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.HTTPClient != nil {
		awsConfig.HTTPClient = config.HTTPClient
	}
	awsSession, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("creating s3 session: %w", err)
	}
	name := config.Name
	if name == "" {
		name = "s3"
	}
	return &S3{
		name:   name,
		bucket: config.Bucket,
		prefix: config.Prefix,
		svc:    s3.New(awsSession),
	}, nil
}

func (s *S3) Name() string { return s.name }

func (s *S3) key(key string) *string {
	return aws.String(path.Join(s.prefix, key))
}

func (s *S3) Download(ctx context.Context, key, dst string) error {
	output, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	if err != nil {
		return s.classify("get", key, err)
	}
	defer output.Body.Close()

	file, err := os.Create(dst)
	if err != nil {
		return Permanent(err)
	}
	if _, err := io.Copy(file, output.Body); err != nil {
		file.Close()
		return fmt.Errorf("s3 get %s: %w", key, err)
	}
	return file.Close()
}

func (s *S3) Upload(ctx context.Context, src, key string) error {
	file, err := os.Open(src)
	if err != nil {
		return Permanent(err)
	}
	defer file.Close()

	_, err = s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         s.key(key),
		Body:        file,
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return s.classify("put", key, err)
	}
	return nil
}

func (s *S3) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	if err != nil {
		err = s.classify("head", key, err)
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(key),
	})
	if err != nil {
		err = s.classify("delete", key, err)
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

// classify maps SDK failures onto the package's retry classes.
func (s *S3) classify(operation, key string, err error) error {
	wrapped := fmt.Errorf("s3 %s %s/%s: %w", operation, s.bucket, key, err)

	var requestFailure awserr.RequestFailure
	if errors.As(err, &requestFailure) {
		status := requestFailure.StatusCode()
		switch {
		case status == http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, wrapped)
		case status == http.StatusTooManyRequests || requestFailure.Code() == "SlowDown":
			return fmt.Errorf("%w: %w", ErrRateLimited, wrapped)
		case status == http.StatusForbidden || status == http.StatusUnauthorized:
			return Permanent(wrapped)
		case status >= 500:
			return wrapped
		case status >= 400:
			return Permanent(wrapped)
		}
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return fmt.Errorf("%w: %w", ErrNotFound, wrapped)
		case request.CanceledErrorCode:
			return Permanent(wrapped)
		}
	}
	return wrapped
}
