package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/insightslm/insightslm/app/core"
	"github.com/insightslm/insightslm/pkg/object-storage/s3"
)

func Setup(install func(p core.Plugins), mode string) {
	p := provider[mode]
	if p == nil {
		panic("Setup mode not found: " + mode)
	}
	install(p())
}

var provider = make(map[string]core.SetupFunc)

func RegisterProvider(key string, p core.SetupFunc) {
	provider[key] = p
}

var ErrStorageUnsupported = errors.New("object storage is not configured")

func SetupObjectStorage(cfg core.ObjectStorageDriver) core.FileStorage {
	var s core.FileStorage
	switch strings.ToLower(cfg.Driver) {
	case "s3":
		s3Cfg := cfg.S3
		if s3Cfg == nil {
			panic("object_storage.s3 is required when driver is s3")
		}
		s = &S3FileStorage{
			S3: s3.NewS3Client(s3Cfg.Endpoint, s3Cfg.Region, s3Cfg.Bucket, s3Cfg.AccessKey, s3Cfg.SecretKey, s3.WithPathStyle(s3Cfg.UsePathStyle)),
		}
	case "local":
		root := "./data"
		if cfg.Local != nil && cfg.Local.Root != "" {
			root = cfg.Local.Root
		}
		s = &LocalFileStorage{
			Root:         root,
			StaticDomain: cfg.StaticDomain,
		}
	default:
		s = &NoneFileStorage{}
	}

	return s
}

type NoneFileStorage struct{}

func (NoneFileStorage) Upload(context.Context, string, io.Reader, string) error {
	return ErrStorageUnsupported
}

func (NoneFileStorage) Delete(context.Context, string) error {
	return ErrStorageUnsupported
}

func (NoneFileStorage) DeletePrefix(context.Context, string) error {
	return ErrStorageUnsupported
}

func (NoneFileStorage) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrStorageUnsupported
}

func (NoneFileStorage) Download(context.Context, string) (*core.ObjectReader, error) {
	return nil, ErrStorageUnsupported
}

// LocalFileStorage 文件保存在本地目录，StaticDomain 指向对外提供这些文件的地址
type LocalFileStorage struct {
	Root         string
	StaticDomain string
}

func (lfs *LocalFileStorage) path(fullPath string) string {
	return filepath.Join(lfs.Root, filepath.Clean("/"+fullPath))
}

// Upload stores a file on the local file system.
func (lfs *LocalFileStorage) Upload(_ context.Context, fullPath string, body io.Reader, _ string) error {
	target := lfs.path(fullPath)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	defer f.Close()

	if _, err = io.Copy(f, body); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

// Delete 文件不存在时视为成功
func (lfs *LocalFileStorage) Delete(_ context.Context, fullPath string) error {
	err := os.Remove(lfs.path(fullPath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (lfs *LocalFileStorage) DeletePrefix(_ context.Context, prefix string) error {
	return os.RemoveAll(lfs.path(prefix))
}

// PresignGet 本地存储没有签名，直接返回静态地址
func (lfs *LocalFileStorage) PresignGet(_ context.Context, fullPath string, _ time.Duration) (string, error) {
	if lfs.StaticDomain == "" {
		return "", ErrStorageUnsupported
	}
	return url.JoinPath(lfs.StaticDomain, strings.TrimPrefix(fullPath, "/"))
}

func (lfs *LocalFileStorage) Download(_ context.Context, fullPath string) (*core.ObjectReader, error) {
	raw, err := os.ReadFile(lfs.path(fullPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &core.ObjectReader{
		File:     raw,
		FileType: http.DetectContentType(raw),
	}, nil
}

type S3FileStorage struct {
	*s3.S3
}

func (fs *S3FileStorage) Download(ctx context.Context, fullPath string) (*core.ObjectReader, error) {
	res, err := fs.GetObject(ctx, fullPath)
	if err != nil {
		return nil, err
	}
	return &core.ObjectReader{
		File:     res.File,
		FileType: res.FileType,
	}, nil
}
