package archive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/eventsignup/internal/netx"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	putPresigned = netx.PutPresigned
)

const presignExpiry = 15 * time.Minute

type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// S3 uploads exports through a presigned PUT URL, so any S3-compatible
// store (MinIO in development) works the same way.
type S3 struct {
	cfg        S3Config
	httpClient *http.Client
	now        func() time.Time
}

func NewS3(cfg S3Config) *S3 {
	return &S3{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

func (a *S3) Name() string { return "s3" }

// ObjectKey is exports/YYYY/MM/DD/<uuid>-<name>.
func (a *S3) ObjectKey(name string) string {
	d := a.now().UTC()
	return fmt.Sprintf("exports/%04d/%02d/%02d/%s-%s", d.Year(), int(d.Month()), d.Day(), uuid.New(), name)
}

func (a *S3) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(a.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.cfg.AccessKey,
			a.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if a.cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(a.cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

func (a *S3) Store(ctx context.Context, name, contentType string, data []byte) (string, error) {
	pc, err := a.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 config: %w", err)
	}

	key := a.ObjectKey(name)
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w", err)
	}

	if err := putPresigned(ctx, a.httpClient, req.URL, contentType, data); err != nil {
		return "", fmt.Errorf("s3 upload: %w", err)
	}

	return "s3://" + a.cfg.Bucket + "/" + key, nil
}
