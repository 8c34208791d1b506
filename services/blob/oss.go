package blobsvc

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

// OSSStore keeps objects in an Aliyun OSS bucket.
type OSSStore struct {
	bucket  *oss.Bucket
	baseURL string
}

var _ core.BlobStore = (*OSSStore)(nil)

func NewOSSStore(conf core.StorageConfig) (*OSSStore, error) {
	client, err := oss.New(conf.OSSEndpoint, conf.OSSAccessKeyID, conf.OSSAccessKeySecret)
	if err != nil {
		return nil, errors.Wrap(err, "creating oss client")
	}
	bucket, err := client.Bucket(conf.OSSBucket)
	if err != nil {
		return nil, errors.Wrap(err, "opening oss bucket")
	}
	baseURL := strings.TrimRight(conf.PublicBaseURL, "/")
	if baseURL == "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(conf.OSSEndpoint, "https://"), "http://")
		baseURL = "https://" + conf.OSSBucket + "." + endpoint
	}
	return &OSSStore{bucket: bucket, baseURL: baseURL}, nil
}

func notFound(err error) error {
	if se, ok := err.(oss.ServiceError); ok && se.StatusCode == http.StatusNotFound {
		return core.ErrBlobNotFound
	}
	return err
}

func (s *OSSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	return s.bucket.PutObject(key, r, opts...)
}

func (s *OSSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		return nil, notFound(err)
	}
	return body, nil
}

func (s *OSSStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.bucket.CopyObject(srcKey, dstKey, oss.WithContext(ctx))
	return notFound(err)
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	return notFound(s.bucket.DeleteObject(key, oss.WithContext(ctx)))
}

func (s *OSSStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}
