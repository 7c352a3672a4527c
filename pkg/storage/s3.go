// Package storage 把论文摘要归档到 S3 兼容的对象存储。
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"icodses/backend/config"
)

// Archive 摘要归档接口
type Archive interface {
	PutAbstract(ctx context.Context, paperID uint, ext string, data []byte) (string, error)
}

// S3Archive 基于 aws-sdk-go-v2 的实现，支持自定义 Endpoint（MinIO 等）
type S3Archive struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Archive 创建 S3 客户端
func NewS3Archive(ctx context.Context, cfg *config.StorageConfig) (*S3Archive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					SigningRegion:     cfg.Region,
					HostnameImmutable: true,
				}, nil
			},
		)
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载 S3 配置失败: %w", err)
	}

	return &S3Archive{
		client:   s3.NewFromConfig(awsCfg),
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
	}, nil
}

// PutAbstract 上传摘要并返回对象地址
func (a *S3Archive) PutAbstract(ctx context.Context, paperID uint, ext string, data []byte) (string, error) {
	key := ObjectKey(paperID, ext)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("上传摘要失败 (paper=%d): %w", paperID, err)
	}

	if a.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", a.endpoint, a.bucket, key), nil
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

// ObjectKey abstracts/{paperID}/{uuid}.{ext}
func ObjectKey(paperID uint, ext string) string {
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("abstracts/%d/%s.%s", paperID, uuid.NewString(), ext)
}

func contentType(ext string) string {
	switch ext {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
