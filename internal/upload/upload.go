package upload

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/xid"
)

// Uploader 把图片字节存入对象存储并返回可访问的 URL。
type Uploader interface {
	Store(ctx context.Context, data []byte) (string, error)
}

var (
	ErrEmptyImage       = errors.New("empty image data")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore 把图片写入本地磁盘，由静态文件路由对外提供。
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	ext, ok := extByType[http.DetectContentType(data)]
	if !ok {
		return "", ErrUnsupportedImage
	}
	name := xid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return s.baseURL + "/" + name, nil
}
