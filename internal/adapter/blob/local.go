package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Local stores artifacts as plain files under a base directory. Meant for
// development and tests; SignedURL hands out file:// URLs since there is
// nothing to sign.
type Local struct {
	basePath string
}

func NewLocal(basePath string) (*Local, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("local: create artifact directory: %w", err)
	}
	return &Local{basePath: basePath}, nil
}

func (l *Local) path(name string) string {
	return filepath.Join(l.basePath, filepath.Base(name))
}

func (l *Local) Upload(ctx context.Context, name string, data []byte) error {
	if err := os.WriteFile(l.path(name), data, 0o644); err != nil {
		return fmt.Errorf("local: write %s: %w", name, err)
	}
	return nil
}

func (l *Local) Download(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("local: read %s: %w", name, err)
	}
	return data, nil
}

func (l *Local) SignedURL(ctx context.Context, name string, ttl time.Duration) (string, error) {
	abs, err := filepath.Abs(l.path(name))
	if err != nil {
		return "", fmt.Errorf("local: resolve %s: %w", name, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("local: stat %s: %w", name, err)
	}
	return "file://" + abs, nil
}

func (l *Local) Remove(ctx context.Context, name string) error {
	if err := os.Remove(l.path(name)); err != nil {
		return fmt.Errorf("local: delete %s: %w", name, err)
	}
	return nil
}
