package benchmark

import (
	"context"
	"fmt"
	"os"
	"path"
	"testing"
	"time"

	"github.com/censusdb/census/internal/directory"
	"github.com/censusdb/census/internal/generate"
	"github.com/censusdb/census/internal/load"
	"github.com/censusdb/census/internal/storage"
	"github.com/joho/godotenv"
)

// PrefixedStorage wraps an ObjectStorage and prepends a prefix to all object paths.
type PrefixedStorage struct {
	inner  storage.ObjectStorage
	prefix string
}

func (s *PrefixedStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	return s.inner.Upload(ctx, localPath, s.prefix+"/"+objectPath)
}

func (s *PrefixedStorage) Download(ctx context.Context, objectPath, localPath string) error {
	return s.inner.Download(ctx, s.prefix+"/"+objectPath, localPath)
}

func (s *PrefixedStorage) Delete(ctx context.Context, objectPath string) error {
	return s.inner.Delete(ctx, s.prefix+"/"+objectPath)
}

func (s *PrefixedStorage) Exists(ctx context.Context, objectPath string) (bool, error) {
	return s.inner.Exists(ctx, s.prefix+"/"+objectPath)
}

func (s *PrefixedStorage) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.prefix + "/" + prefix
	objects, err := s.inner.ListObjects(ctx, fullPrefix)
	if err != nil {
		return nil, err
	}

	stripped := make([]string, len(objects))
	for i, obj := range objects {
		if len(obj) > len(s.prefix)+1 {
			stripped[i] = obj[len(s.prefix)+1:]
		} else {
			stripped[i] = obj
		}
	}
	return stripped, nil
}

// getBenchmarkStorage returns a storage interface for snapshot benchmarks.
// It respects CENSUS_STORAGE_TYPE=s3 from .env or environment.
// For S3: objects go under "bench/<benchName>/<timestamp>".
// For Local: a temp dir is used and removed on cleanup.
func getBenchmarkStorage(b *testing.B, benchName string) (storage.ObjectStorage, func()) {
	// Try loading .env from project root (../../.env relative to test/benchmark)
	_ = godotenv.Load("../../.env")

	storageType := os.Getenv("CENSUS_STORAGE_TYPE")

	if storageType == "s3" {
		if v := os.Getenv("CENSUS_AWS_ACCESS_KEY_ID"); v != "" {
			os.Setenv("AWS_ACCESS_KEY_ID", v)
		}
		if v := os.Getenv("CENSUS_AWS_SECRET_ACCESS_KEY"); v != "" {
			os.Setenv("AWS_SECRET_ACCESS_KEY", v)
		}

		bucket := os.Getenv("CENSUS_S3_BUCKET")
		if bucket == "" {
			b.Fatal("CENSUS_S3_BUCKET is required for s3 benchmark")
		}

		cfg := storage.DefaultS3Config()
		if v := os.Getenv("CENSUS_S3_REGION"); v != "" {
			cfg.Region = v
		}
		cfg.Endpoint = os.Getenv("CENSUS_S3_ENDPOINT")

		st, err := storage.NewS3Storage(context.Background(), bucket, cfg)
		if err != nil {
			b.Fatalf("Failed to initialize S3 storage: %v", err)
		}

		prefix := fmt.Sprintf("bench/%s/%d", benchName, time.Now().UnixNano())
		b.Logf("Running benchmark against S3 bucket %s prefix %s", bucket, prefix)

		// Cleanup is manual for S3 to keep runs inspectable
		return &PrefixedStorage{inner: st, prefix: prefix}, func() {}
	}

	dir, err := os.MkdirTemp("", "census-bench-"+benchName+"-*")
	if err != nil {
		b.Fatal(err)
	}
	storageDir := path.Join(dir, "storage")
	os.MkdirAll(storageDir, 0755)

	st, err := storage.NewLocalStorage(storageDir)
	if err != nil {
		b.Fatal(err)
	}
	return st, func() { os.RemoveAll(dir) }
}

// newBenchStore opens a fresh directory store in a temp dir.
func newBenchStore(b *testing.B) (*directory.Store, func()) {
	dir, err := os.MkdirTemp("", "census-bench-db-*")
	if err != nil {
		b.Fatal(err)
	}

	store, err := directory.Open(path.Join(dir, "directory.db"))
	if err != nil {
		os.RemoveAll(dir)
		b.Fatalf("Failed to open store: %v", err)
	}
	if err := store.CreateSchema(context.Background()); err != nil {
		store.Close()
		os.RemoveAll(dir)
		b.Fatalf("Failed to create schema: %v", err)
	}

	return store, func() {
		store.Close()
		os.RemoveAll(dir)
	}
}

// populateStore bulk-loads random plus targeted records into the store.
func populateStore(b *testing.B, store *directory.Store, randomCount, targetedCount int) {
	ctx := context.Background()
	gen := generate.New(12345)
	loader := load.NewLoader(store, load.DefaultBatchSize)

	if _, err := loader.Load(ctx, gen.Generate(randomCount)); err != nil {
		b.Fatalf("Failed to load random records: %v", err)
	}
	if _, err := loader.Load(ctx, gen.GenerateTargeted(targetedCount)); err != nil {
		b.Fatalf("Failed to load targeted records: %v", err)
	}
}
