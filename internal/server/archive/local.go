package archive

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/eventsignup/internal/filex"
)

// Local writes exports into a directory.
type Local struct {
	dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	return &Local{dir: abs}, nil
}

func (l *Local) Name() string { return "local" }

func (l *Local) Store(_ context.Context, name, _ string, data []byte) (string, error) {
	// names come from the export service, but never let one escape dir
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("archive: bad file name %q", name)
	}
	return filex.WriteFileAtomic(l.dir, base, data)
}
