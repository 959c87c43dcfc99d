package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"brand-dna-studio/internal/capability"
)

const maxObjectBytes = 32 << 20

type Options struct {
	Root       string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Local serves objects from a directory and fetches remote ones over HTTP.
type Local struct {
	root       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) (*Local, error) {
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return nil, errors.New("storage root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Local{
		root:       abs,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (s *Local) Root() string {
	return s.root
}

// Fetch reads http(s) URLs, file:// URLs, URLs under the configured base URL
// and plain local paths. Every failure wraps capability.ErrSignalUnavailable.
func (s *Local) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty url", capability.ErrSignalUnavailable)
	}

	if s.baseURL != "" && strings.HasPrefix(rawURL, s.baseURL+"/") {
		return s.readObject(strings.TrimPrefix(rawURL, s.baseURL+"/"))
	}

	u, err := url.Parse(rawURL)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return s.fetchHTTP(ctx, rawURL)
		case "file":
			return readFile(u.Path)
		}
	}
	return readFile(rawURL)
}

func (s *Local) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrSignalUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrSignalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: fetch %s: %s: %s", capability.ErrSignalUnavailable, rawURL, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", capability.ErrSignalUnavailable, rawURL, err)
	}
	if len(data) > maxObjectBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", capability.ErrSignalUnavailable, rawURL, maxObjectBytes)
	}
	return data, nil
}

func (s *Local) readObject(objectPath string) ([]byte, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrSignalUnavailable, err)
	}
	return readFile(full)
}

func readFile(p string) ([]byte, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capability.ErrSignalUnavailable, err)
	}
	return data, nil
}

// Upload writes data under the root and returns its public URL.
func (s *Local) Upload(ctx context.Context, data []byte, objectPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store object: %w", err)
	}

	s.logger.Debug("object stored", "path", objectKey(objectPath), "bytes", len(data))
	return s.URL(objectPath), nil
}

func (s *Local) URL(objectPath string) string {
	clean := objectKey(objectPath)
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.root, filepath.FromSlash(clean)))}).String()
	}
	return s.baseURL + "/" + clean
}

func (s *Local) resolve(objectPath string) (string, error) {
	key := objectKey(objectPath)
	if key == "" {
		return "", errors.New("object path is empty")
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// objectKey cleans p into a slash path that cannot climb above the root.
func objectKey(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(p)), "/")
}

func LogoPath(brandID, ext string) string {
	return fmt.Sprintf("logos/%s/%s.%s", brandID, uuid.NewString(), cleanExt(ext, "png"))
}

func ImagePath(brandID, ext string) string {
	return fmt.Sprintf("generated/%s/images/%s.%s", brandID, uuid.NewString(), cleanExt(ext, "png"))
}

func VideoPath(brandID, ext string) string {
	return fmt.Sprintf("generated/%s/videos/%s.%s", brandID, uuid.NewString(), cleanExt(ext, "mp4"))
}

func cleanExt(ext, fallback string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return fallback
	}
	return ext
}
