package crawl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Cursor persists the next id a crawl will fetch. Load is called once at
// start, Store after every step.
type Cursor interface {
	Load(ctx context.Context) (int64, error)
	Store(ctx context.Context, next int64) error
}

// FileCursor keeps the next id as a single decimal integer in a text file.
type FileCursor struct {
	Path  string
	Start int64 // used when the file does not exist yet
}

func (c *FileCursor) Load(ctx context.Context) (int64, error) {
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return c.Start, nil
	}
	if err != nil {
		return 0, err
	}
	next, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cursor file %s: %w", c.Path, err)
	}
	return next, nil
}

// Store replaces the file through a rename so a crash never leaves it half
// written.
func (c *FileCursor) Store(ctx context.Context, next int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.Path), filepath.Base(c.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strconv.FormatInt(next, 10)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.Path)
}
