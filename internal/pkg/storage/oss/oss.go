package oss

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/storage"
)

// OSSStorage 阿里云OSS存储
type OSSStorage struct {
	bucket        *oss.Bucket
	bucketName    string
	presignExpiry int // 预签名URL过期时间上限（秒）
}

// NewOSSStorage 创建阿里云OSS存储
func NewOSSStorage(endpoint, bucketName, accessKeyID, accessKeySecret string, presignExpiry int) (*OSSStorage, error) {
	if endpoint == "" || bucketName == "" {
		return nil, fmt.Errorf("%w: oss endpoint and bucket are required", errs.ErrInvalidInput)
	}

	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	if presignExpiry <= 0 {
		presignExpiry = 7 * 24 * 3600
	}

	return &OSSStorage{
		bucket:        bucket,
		bucketName:    bucketName,
		presignExpiry: presignExpiry,
	}, nil
}

// Upload 上传文件，返回预签名下载URL
func (s *OSSStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	options := []oss.Option{
		oss.ContentType(contentType),
		oss.WithContext(ctx),
	}

	if err := s.bucket.PutObject(key, data, options...); err != nil {
		return "", fmt.Errorf("%w: failed to upload file: %v", errs.ErrNetwork, err)
	}

	return s.GetDownloadURL(ctx, key, time.Duration(s.presignExpiry)*time.Second)
}

// Download 下载文件
func (s *OSSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", errs.ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: failed to download file: %v", errs.ErrNetwork, err)
	}
	return body, nil
}

// GetDownloadURL 获取预签名下载URL
func (s *OSSStorage) GetDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	// 请求的过期时间超过配置上限时使用配置值
	expiry := expiresIn
	if limit := time.Duration(s.presignExpiry) * time.Second; expiry <= 0 || limit < expiry {
		expiry = limit
	}

	url, err := s.bucket.SignURL(key, oss.HTTPGet, int64(expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return url, nil
}

// Delete 删除文件
func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: failed to delete file: %v", errs.ErrNetwork, err)
	}
	return nil
}

// Exists 检查文件是否存在
func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: failed to check file existence: %v", errs.ErrNetwork, err)
	}
	return exists, nil
}

// GetStorageType 获取存储类型
func (s *OSSStorage) GetStorageType() string {
	return string(storage.StorageTypeOSS)
}

func isNoSuchKey(err error) bool {
	if svcErr, ok := err.(oss.ServiceError); ok {
		return svcErr.Code == "NoSuchKey"
	}
	return false
}
