package stage

import (
	"os"
	"path/filepath"

	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

const (
	// DefaultBaseDir is the root of the state tree on a salt master.
	DefaultBaseDir = "/srv/salt"

	sourceExt   = ".sls"
	compositeFn = "init" + sourceExt
)

// FSLocator maps stage identifiers onto files below a base directory.
// Composite stages live in <base>/<a>/<b>/init.sls, leaf stages in
// <base>/<a>/<b>.sls.
type FSLocator struct {
	BaseDir string
}

// NewFSLocator creates a locator rooted at baseDir, falling back to
// DefaultBaseDir when empty.
func NewFSLocator(baseDir string) *FSLocator {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return &FSLocator{BaseDir: baseDir}
}

// IsComposite reports whether id corresponds to a directory.
func (l *FSLocator) IsComposite(id ID) bool {
	info, err := os.Stat(filepath.Join(l.BaseDir, filepath.FromSlash(id.Path())))
	return err == nil && info.IsDir()
}

// Locate returns the source file that defines id.
func (l *FSLocator) Locate(id ID) (string, error) {
	var path string
	if l.IsComposite(id) {
		path = filepath.Join(l.BaseDir, filepath.FromSlash(id.Path()), compositeFn)
	} else {
		path = filepath.Join(l.BaseDir, filepath.FromSlash(id.Path())+sourceExt)
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", planerrors.NewNotFoundError(string(id), path)
	}
	return path, nil
}
