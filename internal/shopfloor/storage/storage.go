package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNoObjectStore 附件是 s3:// 地址但未配置对象存储
var ErrNoObjectStore = errors.New("object storage not configured")

// ObjectStore MinIO/S3 附件存储
type ObjectStore struct {
	client *minio.Client
	bucket string
}

// NewObjectStore 根据配置创建 MinIO 客户端
func NewObjectStore(cfg config.MinIOConfig) (*ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &ObjectStore{client: client, bucket: cfg.Bucket}, nil
}

// Bucket 存储桶名称
func (s *ObjectStore) Bucket() string {
	return s.bucket
}

// EnsureBucket 确保存储桶存在
func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Put 上传状态附件，返回 s3://bucket/key 地址
func (s *ObjectStore) Put(ctx context.Context, orderID int64, fileName string, reader io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(orderID, fileName)
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Get 读取对象，最多 limit 字节（limit<=0 不限制）
func (s *ObjectStore) Get(ctx context.Context, bucket, key string, limit int64) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	return readLimited(obj, limit)
}

// ObjectKey attachments/<order>/<uuid><ext>，扩展名统一小写
func ObjectKey(orderID int64, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("attachments/%d/%s%s", orderID, uuid.New().String(), ext)
}

// ParseS3URL 解析 s3://bucket/key
func ParseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}

// Downloader 通过后端下载附件
type Downloader interface {
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher 按地址类型取附件：s3:// 走对象存储，其余交给后端
type Fetcher struct {
	downloader Downloader
	objects    *ObjectStore
	limit      int64
}

// NewFetcher objects 可为 nil
func NewFetcher(d Downloader, objects *ObjectStore, limit int64) *Fetcher {
	return &Fetcher{downloader: d, objects: objects, limit: limit}
}

// Fetch 下载附件内容
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("attachment url is empty")
	}
	if bucket, key, ok := ParseS3URL(rawURL); ok {
		if f.objects == nil {
			return nil, ErrNoObjectStore
		}
		return f.objects.Get(ctx, bucket, key, f.limit)
	}

	data, err := f.downloader.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if f.limit > 0 && int64(len(data)) > f.limit {
		return nil, fmt.Errorf("attachment exceeds %d bytes", f.limit)
	}
	return data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read object: %w", err)
		}
		return data, nil
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	if n > limit {
		return nil, fmt.Errorf("attachment exceeds %d bytes", limit)
	}
	return buf.Bytes(), nil
}
