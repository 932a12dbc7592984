package storage

import (
	"context"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/utils/safe"
)

// GCS stores blobs in a Google Cloud Storage bucket. Every Put writes a
// fresh object; the uuid prefix keeps uploads with the same logical name
// from colliding.
type GCS struct {
	client *storage.Client
	bucket string
}

var _ interfaces.BlobStore = &GCS{}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (s *GCS) Put(ctx context.Context, name string, data []byte) (string, error) {
	object := uuid.New().String() + "/" + name
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)

	if _, err := w.Write(data); err != nil {
		safe.Close(ctx, w)
		return "", goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", s.bucket), goerr.V("object", object))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", s.bucket), goerr.V("object", object))
	}

	return "gs://" + s.bucket + "/" + object, nil
}

func (s *GCS) Delete(ctx context.Context, ref string) error {
	bucket, object, err := parseRef(ref)
	if err != nil {
		return err
	}
	if err := s.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete object", goerr.V("ref", ref))
	}
	return nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}

func parseRef(ref string) (bucket, object string, err error) {
	trimmed, ok := strings.CutPrefix(ref, "gs://")
	if !ok {
		return "", "", goerr.New("blob reference is not a gs:// URL", goerr.V("ref", ref))
	}
	bucket, object, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", goerr.New("malformed blob reference", goerr.V("ref", ref))
	}
	return bucket, object, nil
}
