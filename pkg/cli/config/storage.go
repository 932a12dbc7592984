package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/repository/storage"
	"github.com/stenolab/steno/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Storage holds CLI flags for the transcript blob store
type Storage struct {
	backend string
	bucket  string
}

// Flags returns CLI flags for blob store configuration
func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       "Blob storage backend type (gcs or memory)",
			Value:       "gcs",
			Sources:     cli.EnvVars("STENO_STORAGE_BACKEND"),
			Destination: &s.backend,
		},
		&cli.StringFlag{
			Name:        "storage-bucket",
			Usage:       "GCS bucket for transcript files (required when using gcs backend)",
			Sources:     cli.EnvVars("STENO_STORAGE_BUCKET"),
			Destination: &s.bucket,
		},
	}
}

// Configure initializes and returns a blob store based on the configured
// backend
func (s *Storage) Configure(ctx context.Context) (interfaces.BlobStore, error) {
	switch s.backend {
	case "gcs":
		if s.bucket == "" {
			return nil, goerr.New("storage-bucket is required when using gcs backend")
		}
		store, err := storage.NewGCS(ctx, s.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize GCS blob store")
		}
		logging.Default().Info("Using GCS blob store", "bucket", s.bucket)
		return store, nil

	case "memory":
		logging.Default().Info("Using in-memory blob store (development mode)")
		return storage.NewMemory(), nil

	default:
		return nil, goerr.New("invalid storage backend", goerr.V("backend", s.backend))
	}
}
