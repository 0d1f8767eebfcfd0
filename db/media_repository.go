package db

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/techagentng/wastewatch/config"
)

// MediaRepository stores report images and returns their public URL.
type MediaRepository interface {
	UploadMedia(ctx context.Context, folder, filename, contentType string, content []byte) (string, error)
}

// ObjectPutter is the part of the S3 client the media repository uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type mediaRepo struct {
	client ObjectPutter
	bucket string
	region string
}

func NewMediaRepo(client ObjectPutter, bucket, region string) MediaRepository {
	return &mediaRepo{client: client, bucket: bucket, region: region}
}

// NewS3Client builds an S3 client from the static credentials in c. Empty
// credentials fall back to the default AWS provider chain.
func NewS3Client(ctx context.Context, c *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.AWSRegion)}
	if c.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AWSAccessKeyID, c.AWSSecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(cfg), nil
}

func (m *mediaRepo) UploadMedia(ctx context.Context, folder, filename, contentType string, content []byte) (string, error) {
	key := fmt.Sprintf("%s/%s", folder, strings.ReplaceAll(filename, " ", "_"))
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", errors.Wrapf(err, "upload %s", key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.bucket, m.region, key), nil
}
