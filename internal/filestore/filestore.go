// Package filestore keeps the original bytes of imported documents in an
// S3-compatible bucket.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goliatone/go-slug"
)

// Options configures the bucket connection.
type Options struct {
	Bucket    string
	Endpoint  string // e.g. https://<account>.r2.cloudflarestorage.com
	Region    string
	AccessKey string
	SecretKey string
}

// Store reads and writes objects in a single bucket.
type Store struct {
	client *s3.Client
	bucket string
}

// New returns nil, nil when no bucket is configured.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, nil
	}
	region := opts.Region
	if region == "" {
		region = "auto"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
		// Not every S3-compatible provider accepts the default CRC trailers.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return &Store{client: client, bucket: opts.Bucket}, nil
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Put uploads data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// ErrInvalidKey is returned by ImportKey for empty components.
var ErrInvalidKey = errors.New("filestore: invalid key component")

// ImportKey builds users/{user}/imports/{job}/{filename}. The filename is
// reduced to its base name so a client-supplied path cannot escape the
// job's prefix, and its stem is slugged so keys stay URL-safe.
func ImportKey(userID, jobID, filename string) (string, error) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if userID == "" || jobID == "" || base == "" || base == "." || base == "/" || base == ".." {
		return "", ErrInvalidKey
	}
	if strings.Contains(userID, "/") || strings.Contains(jobID, "/") {
		return "", ErrInvalidKey
	}
	return "users/" + userID + "/imports/" + jobID + "/" + slugFilename(base), nil
}

func slugFilename(base string) string {
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	normalized, err := slug.Normalize(stem)
	if err != nil || normalized == "" {
		normalized = "upload"
	}
	return normalized + ext
}
