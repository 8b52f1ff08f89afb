package stage

import (
	"fmt"
	"strings"

	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// ID names a stage definition as a dotted sequence of segments, e.g.
// "ceph.stage.4".
type ID string

// Segments splits the identifier on dots.
func (id ID) Segments() []string {
	if id == "" {
		return nil
	}
	return strings.Split(string(id), ".")
}

// Truncate drops the trailing n segments.
func (id ID) Truncate(n int) ID {
	if n <= 0 {
		return id
	}
	segs := id.Segments()
	if n >= len(segs) {
		return ""
	}
	return ID(strings.Join(segs[:len(segs)-n], "."))
}

// Child appends a segment.
func (id ID) Child(name string) ID {
	if id == "" {
		return ID(name)
	}
	return ID(string(id) + "." + name)
}

// HasPrefix reports whether id starts with the given namespace string.
// The comparison is textual: "ceph.stage" matches "ceph.stage.4" and
// "ceph.stage.prep".
func (id ID) HasPrefix(ns string) bool {
	return strings.HasPrefix(string(id), ns)
}

// Path converts the identifier into a slash separated relative path.
func (id ID) Path() string {
	return strings.ReplaceAll(string(id), ".", "/")
}

func (id ID) String() string {
	return string(id)
}

// Namespace answers whether a stage is backed by a directory-like source.
type Namespace interface {
	IsComposite(id ID) bool
}

// ResolveInclude turns an include reference found in parent into an
// absolute identifier. Every leading dot of ref ascends one naming level.
// A leaf parent's own last segment is not a level, so it costs one extra
// ascent.
//
//	ceph.stage.4 (composite) + "..iscsi"    -> ceph.stage.iscsi
//	ceph.stage.3 (leaf)      + ".iscsi"     -> ceph.stage.iscsi
//	ceph.stage   (composite) + "..openattic" -> ceph.openattic
func ResolveInclude(ns Namespace, parent ID, ref string) (ID, error) {
	dots := 0
	for dots < len(ref) && ref[dots] == '.' {
		dots++
	}
	name := ref[dots:]
	if name == "" {
		return "", planerrors.NewArgumentError(string(parent), fmt.Sprintf("include %q has no stage name", ref))
	}

	if !ns.IsComposite(parent) {
		dots++
	}
	if dots > 1 {
		if dots-1 > len(parent.Segments()) {
			return "", planerrors.NewArgumentError(string(parent), fmt.Sprintf("include %q ascends above the root", ref))
		}
		parent = parent.Truncate(dots - 1)
	}

	return parent.Child(name), nil
}
