package storagefactory

import (
	"context"
	"fmt"

	"lyricvid/internal/config"
	"lyricvid/internal/pkg/errs"
	"lyricvid/internal/pkg/storage"
	"lyricvid/internal/pkg/storage/local"
	"lyricvid/internal/pkg/storage/oss"
)

// NewStorage 根据配置创建存储实例
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (storage.Storage, error) {
	switch storage.StorageType(cfg.Type) {
	case storage.StorageTypeLocal:
		if cfg.Local == nil {
			return nil, fmt.Errorf("%w: local storage config is required", errs.ErrInvalidInput)
		}
		s, err := local.NewLocalStorage(cfg.Local.BasePath, cfg.Local.BaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storage.StorageTypeOSS:
		if cfg.OSS == nil {
			return nil, fmt.Errorf("%w: OSS storage config is required", errs.ErrInvalidInput)
		}
		s, err := oss.NewOSSStorage(
			cfg.OSS.Endpoint,
			cfg.OSS.Bucket,
			cfg.OSS.AccessKeyID,
			cfg.OSS.AccessKeySecret,
			cfg.OSS.PresignExpiry,
		)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unsupported storage type: %s", errs.ErrInvalidInput, cfg.Type)
	}
}
