package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type FSStore struct {
	base string
}

func NewFSStore(base string) (*FSStore, error) {
	if strings.TrimSpace(base) == "" {
		base = "./data/media"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FSStore{base: base}, nil
}

func (s *FSStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	_ = ctx
	name = sanitizeName(name)
	if name == "" {
		return "", errors.New("empty file name")
	}

	key := fmt.Sprintf("%d_%s", time.Now().UnixNano(), name)
	dst := filepath.Join(s.base, key)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write blob: %w", err)
	}

	u := url.URL{Scheme: "file", Path: dst}
	return u.String(), nil
}

func (s *FSStore) Delete(ctx context.Context, locator string) error {
	_ = ctx
	u, err := url.Parse(locator)
	if err != nil || u.Scheme != "file" {
		return fmt.Errorf("unrecognized locator %q", locator)
	}
	path := filepath.Clean(u.Path)
	if !strings.HasPrefix(path, filepath.Clean(s.base)+string(filepath.Separator)) {
		return fmt.Errorf("locator outside storage dir: %q", locator)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
