package adapters

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/resilience"
)

// hdf5Signature opens every HDF5 file, which is what Keras .h5 models are.
var hdf5Signature = []byte("\x89HDF\r\n\x1a\n")

// ModelHandle identifies a model artifact present on local disk.
type ModelHandle struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	SHA256  string `json:"sha256"`
	Size    int64  `json:"size"`
	Fetched bool   `json:"fetched"`
}

// ArtifactConfig says where the model comes from and where it lives.
type ArtifactConfig struct {
	URL    string
	Path   string
	SHA256 string // optional, hex
	Retry  resilience.RetryConfig
}

// ArtifactStore makes the pretrained model available locally, downloading
// it at most once per process.
type ArtifactStore struct {
	cfg  ArtifactConfig
	pool *resilience.ConnectionPool

	mu     sync.Mutex
	handle *ModelHandle
}

// NewArtifactStore creates a store. A zero Retry config means
// resilience.DownloadRetryConfig.
func NewArtifactStore(cfg ArtifactConfig, pool *resilience.ConnectionPool) *ArtifactStore {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DownloadRetryConfig()
	}
	cfg.Retry.RetryableErrors = isTransient
	cfg.SHA256 = strings.ToLower(cfg.SHA256)
	if pool == nil {
		poolCfg := resilience.DefaultPoolConfig()
		poolCfg.Timeout = 10 * time.Minute
		pool = resilience.NewConnectionPool(poolCfg, nil)
	}
	return &ArtifactStore{cfg: cfg, pool: pool}
}

// Ensure returns the local artifact, fetching it first if it is absent.
// Concurrent callers wait for the same fetch.
func (s *ArtifactStore) Ensure(ctx context.Context) (ModelHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return *s.handle, nil
	}

	fetched := false
	if _, err := os.Stat(s.cfg.Path); os.IsNotExist(err) {
		slog.Info("Model artifact not found locally, downloading", "path", s.cfg.Path, "url", s.cfg.URL)
		err := resilience.RetryWithConfig(ctx, s.cfg.Retry, func() error {
			return s.download(ctx)
		})
		if err != nil {
			return ModelHandle{}, asUnavailable("model artifact download failed", err)
		}
		fetched = true
	} else if err != nil {
		return ModelHandle{}, errors.NewAdapterError(errors.AdapterUnavailable, "model artifact is not readable", err)
	}

	h, err := s.inspect()
	if err != nil {
		return ModelHandle{}, err
	}
	h.Fetched = fetched
	s.handle = &h

	slog.Info("Model artifact ready", "path", h.Path, "size", h.Size, "sha256", h.SHA256, "fetched", fetched)
	return h, nil
}

func (s *ArtifactStore) download(ctx context.Context) error {
	resp, err := s.pool.DoRequest(ctx, http.MethodGet, s.cfg.URL, nil, nil)
	if err != nil {
		return errors.NewNetworkError("model download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewAdapterError(errors.AdapterUnavailable,
			fmt.Sprintf("model download returned status %d", resp.StatusCode), nil)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return errors.NewAdapterError(errors.AdapterUnavailable,
			"model download returned an HTML page instead of the model file", nil)
	}

	dir := filepath.Dir(s.cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "cannot create model directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "cannot create temporary model file", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		tmp.Close()
		return errors.NewNetworkError("model download interrupted", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "cannot write model file", err)
	}

	if sum := hex.EncodeToString(hasher.Sum(nil)); s.cfg.SHA256 != "" && sum != s.cfg.SHA256 {
		return errors.NewAdapterError(errors.AdapterUnavailable,
			fmt.Sprintf("model checksum mismatch: got %s", sum), nil)
	}
	if err := checkSignature(tmp.Name(), isHDF5Path(s.cfg.Path)); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), s.cfg.Path); err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "cannot move model file into place", err)
	}
	return nil
}

// inspect hashes the artifact on disk and checks it against the expected
// checksum and format.
func (s *ArtifactStore) inspect() (ModelHandle, error) {
	f, err := os.Open(s.cfg.Path)
	if err != nil {
		return ModelHandle{}, errors.NewAdapterError(errors.AdapterUnavailable, "cannot open model artifact", err)
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return ModelHandle{}, errors.NewAdapterError(errors.AdapterUnavailable, "cannot read model artifact", err)
	}
	sum := hex.EncodeToString(hasher.Sum(nil))
	if s.cfg.SHA256 != "" && sum != s.cfg.SHA256 {
		return ModelHandle{}, errors.NewAdapterError(errors.AdapterUnavailable,
			fmt.Sprintf("model artifact %s is corrupt: checksum %s", s.cfg.Path, sum), nil)
	}
	if err := checkSignature(s.cfg.Path, isHDF5Path(s.cfg.Path)); err != nil {
		return ModelHandle{}, err
	}

	return ModelHandle{
		Name:   strings.TrimSuffix(filepath.Base(s.cfg.Path), filepath.Ext(s.cfg.Path)),
		Path:   s.cfg.Path,
		SHA256: sum,
		Size:   n,
	}, nil
}

func isHDF5Path(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".hdf5":
		return true
	}
	return false
}

// checkSignature verifies the HDF5 header when the artifact is expected to
// be one.
func checkSignature(path string, expectHDF5 bool) error {
	if !expectHDF5 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.NewAdapterError(errors.AdapterUnavailable, "cannot open model artifact", err)
	}
	defer f.Close()

	head := make([]byte, len(hdf5Signature))
	if _, err := io.ReadFull(f, head); err != nil || !bytes.Equal(head, hdf5Signature) {
		return errors.NewAdapterError(errors.AdapterUnavailable, "model artifact is not an HDF5 file", err)
	}
	return nil
}

func isTransient(err error) bool {
	switch errors.ToAppError(err).Category {
	case errors.CategoryNetwork, errors.CategoryTimeout:
		return true
	}
	return false
}

func asUnavailable(msg string, err error) error {
	if stderrors.Is(err, errors.ErrAdapter) {
		return err
	}
	return errors.NewAdapterError(errors.AdapterUnavailable, msg, err)
}
