package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/edudonor/donation-api/internal/config"
)

const campaignImagePrefix = "campaigns/"

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ImageStore keeps campaign images in a public-read S3 bucket.
type S3ImageStore struct {
	client   objectPutter
	bucket   string
	region   string
	maxWidth int
}

func NewS3ImageStore(ctx context.Context, conf *config.StorageConfig) (*S3ImageStore, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, fmt.Errorf("awsconfig.LoadDefaultConfig -> %w", err)
	}

	return &S3ImageStore{
		client:   s3.NewFromConfig(cfg),
		bucket:   conf.Bucket,
		region:   conf.Region,
		maxWidth: conf.MaxWidth,
	}, nil
}

// Upload normalises the image in r, stores it under a fresh key and returns
// its public URL.
func (s *S3ImageStore) Upload(ctx context.Context, r io.Reader) (string, error) {
	data, err := Normalize(r, s.maxWidth)
	if err != nil {
		return "", err
	}

	key := campaignImagePrefix + uuid.NewString() + ".jpg"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("s.client.PutObject -> %w", err)
	}

	return PublicURL(s.bucket, s.region, key), nil
}

func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
