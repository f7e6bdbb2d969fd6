// Package namespace provides isolated application namespaces and the loader
// that resolves program objects inside them.
//
// A namespace is a snapshot of the program objects found in an application
// directory at creation time. Each application launch gets a fresh one, so
// objects added or removed later are never visible to an already running
// application. A namespace may have a parent (the kernel namespace) that is
// consulted only when the namespace itself has no match.
package namespace

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/id"
)

// Object is a loadable program unit.
type Object struct {
	// Name is the file name with the object suffix trimmed,
	// e.g. "window_manager-0.1.0".
	Name string `json:"name"`

	// Path is the absolute path of the object file.
	Path string `json:"path"`
}

// Namespace is an isolated resolution context.
type Namespace struct {
	id      id.NamespaceID
	name    string
	dir     string
	objects []Object // sorted by Name, then Path
	byPath  map[string]int
	parent  *Namespace
}

// New creates a namespace over objects. The slice is copied.
func New(name, dir string, objects []Object, parent *Namespace) *Namespace {
	sorted := make([]Object, len(objects))
	copy(sorted, objects)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].Path < sorted[j].Path
	})

	byPath := make(map[string]int, len(sorted))
	for i, o := range sorted {
		byPath[o.Path] = i
	}

	return &Namespace{
		id:      id.NewNamespaceID(),
		name:    name,
		dir:     dir,
		objects: sorted,
		byPath:  byPath,
		parent:  parent,
	}
}

// ID returns the unique namespace ID
func (ns *Namespace) ID() id.NamespaceID { return ns.id }

// Name returns the namespace name
func (ns *Namespace) Name() string { return ns.name }

// Dir returns the directory the namespace was built from
func (ns *Namespace) Dir() string { return ns.dir }

// Parent returns the parent namespace, or nil
func (ns *Namespace) Parent() *Namespace { return ns.parent }

// Len returns the number of objects directly in the namespace
func (ns *Namespace) Len() int { return len(ns.objects) }

// Objects returns a copy of the objects directly in the namespace, in
// name order
func (ns *Namespace) Objects() []Object {
	out := make([]Object, len(ns.objects))
	copy(out, ns.objects)
	return out
}

// ObjectStartingWith returns the object in this namespace (parents are not
// searched) whose name starts with prefix. When several match, the one with
// the lexicographically smallest name wins.
func (ns *Namespace) ObjectStartingWith(prefix string) (Object, bool) {
	i := sort.Search(len(ns.objects), func(i int) bool {
		return ns.objects[i].Name >= prefix
	})
	if i < len(ns.objects) && strings.HasPrefix(ns.objects[i].Name, prefix) {
		return ns.objects[i], true
	}
	return Object{}, false
}

// ObjectAt returns the object stored at path, searching this namespace and
// then its ancestors.
func (ns *Namespace) ObjectAt(path string) (Object, bool) {
	for cur := ns; cur != nil; cur = cur.parent {
		if i, ok := cur.byPath[path]; ok {
			return cur.objects[i], true
		}
	}
	return Object{}, false
}
