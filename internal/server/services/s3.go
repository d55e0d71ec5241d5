package services

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	sc "github.com/dmitrijs2005/sanposhin/internal/server/config"
)

// deleteBatchSize is the S3 DeleteObjects limit.
const deleteBatchSize = 1000

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3API interface {
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type s3Presigner interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3ObjectStore implements ObjectStore over an S3-compatible backend.
type S3ObjectStore struct {
	api        s3API
	presigner  s3Presigner
	bucket     string
	publicBase string
}

// NewS3ObjectStore builds the client from static credentials and a custom
// endpoint, which is how MinIO and similar backends are addressed.
func NewS3ObjectStore(ctx context.Context, c *sc.Config) (*S3ObjectStore, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	publicBase := c.S3PublicBaseURL
	if publicBase == "" {
		publicBase = strings.TrimRight(c.S3BaseEndpoint, "/") + "/" + c.S3Bucket
	}

	return &S3ObjectStore{
		api:        client,
		presigner:  s3.NewPresignClient(client),
		bucket:     c.S3Bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

func (s *S3ObjectStore) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

func (s *S3ObjectStore) PresignPut(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3ObjectStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// DeleteKeys deletes keys in batches. Per-object failures are counted; a
// request-level failure stops and is returned with the counts so far.
func (s *S3ObjectStore) DeleteKeys(ctx context.Context, keys []string) (int, int, error) {
	var deleted, failed int
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, failed + len(keys) - start, err
		}
		failed += len(out.Errors)
		deleted += len(ids) - len(out.Errors)
	}
	return deleted, failed, nil
}
