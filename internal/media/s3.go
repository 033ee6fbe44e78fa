package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"accounthub/internal/pkg/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DriverS3 = "s3"

type S3Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Folder          string
	PublicBaseURL   string
	MaxBytes        int64
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader puts objects into an S3-compatible bucket (AWS, R2, MinIO) and
// returns URLs under PublicBaseURL.
type S3Uploader struct {
	client        objectPutter
	bucket        string
	folder        string
	publicURLBase string
	maxBytes      int64
	now           func() time.Time
}

func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Uploader(client, opts), nil
}

func newS3Uploader(client objectPutter, opts S3Options) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        opts.Bucket,
		folder:        opts.Folder,
		publicURLBase: strings.TrimRight(opts.PublicBaseURL, "/"),
		maxBytes:      opts.MaxBytes,
		now:           time.Now,
	}
}

func (u *S3Uploader) Upload(ctx context.Context, localPath string) (asset *Asset, err error) {
	defer removeTemp(localPath)
	defer func() { metrics.RecordUpload(DriverS3, err) }()

	src, err := openSource(localPath, u.maxBytes)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	key := objectKey(u.folder, src.mimeType, u.now())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          src,
		ContentType:   aws.String(src.mimeType),
		ContentLength: aws.Int64(src.size),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &Asset{
		URL:         u.publicURLBase + "/" + key,
		Key:         key,
		ContentType: src.mimeType,
		Size:        src.size,
	}, nil
}
