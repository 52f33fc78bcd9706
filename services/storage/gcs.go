package storage

import (
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSRemote stores objects in a Google Cloud Storage bucket.
type GCSRemote struct {
	bucket  string
	service *gcs.Service
}

// NewGCSRemote authenticates with application default credentials.
func NewGCSRemote(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSRemote, error) {
	if len(opts) == 0 {
		ts, err := google.DefaultTokenSource(context.Background(), gcs.DevstorageReadWriteScope)
		if err != nil {
			return nil, errors.Wrap(err, "default google credentials")
		}
		opts = append(opts, option.WithTokenSource(ts))
	}
	service, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create storage service")
	}
	return &GCSRemote{bucket: bucket, service: service}, nil
}

func (g *GCSRemote) Name() string { return "gs://" + g.bucket }

func (g *GCSRemote) Download(ctx context.Context, key string, w io.Writer) error {
	resp, err := g.service.Objects.Get(g.bucket, key).Context(ctx).Download()
	if err != nil {
		return g.wrap(err, key)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return errors.Wrapf(err, "read gs://%s/%s", g.bucket, key)
	}
	return nil
}

func (g *GCSRemote) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	obj := &gcs.Object{Name: key, ContentType: contentType}
	if _, err := g.service.Objects.Insert(g.bucket, obj).Media(r).Context(ctx).Do(); err != nil {
		return g.wrap(err, key)
	}
	return nil
}

func (g *GCSRemote) Delete(ctx context.Context, key string) error {
	if err := g.service.Objects.Delete(g.bucket, key).Context(ctx).Do(); err != nil {
		return g.wrap(err, key)
	}
	return nil
}

func (g *GCSRemote) wrap(err error, key string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return errors.Wrapf(ErrObjectNotFound, "gs://%s/%s", g.bucket, key)
	}
	return errors.Wrapf(err, "gs://%s/%s", g.bucket, key)
}
