// Package catalog loads and indexes the porting catalog: the inventory
// of old-API types and what became of them in the new API.
package catalog

import (
	"sort"
	"strings"

	m "sunset.dev/pkg/sunset/internal/model"
)

// Action tells the import rewriter what to do with one import path.
type Action int

const (
	// Keep leaves the import untouched.
	Keep Action = iota
	// Rename replaces the import path with its successor.
	Rename
	// Remove deletes the import; every type it exported was retired
	// without replacement.
	Remove
)

// Catalog is the indexed porting catalog.
type Catalog struct {
	entries   []m.Mapping
	byName    map[string][]m.Mapping
	byQual    map[string]m.Mapping
	nsRename  map[string]string
	nsRemove  map[string]bool
	protected map[string]bool
}

// New indexes entries and derives the namespace rules. Entries arrive
// validated from the loader.
func New(entries []m.Mapping, renames []m.NamespaceRename, protected []string) *Catalog {
	c := &Catalog{
		entries:   entries,
		byName:    make(map[string][]m.Mapping),
		byQual:    make(map[string]m.Mapping),
		nsRename:  make(map[string]string),
		nsRemove:  make(map[string]bool),
		protected: make(map[string]bool),
	}
	for _, r := range renames {
		c.nsRename[r.Old] = r.New
	}
	for _, fqn := range protected {
		c.protected[fqn] = true
	}
	perNS := make(map[string][]m.Mapping)
	for _, e := range entries {
		c.byName[e.Name] = append(c.byName[e.Name], e)
		c.byQual[e.OldFQN()] = e
		perNS[e.Namespace] = append(perNS[e.Namespace], e)
	}
	for ns, list := range perNS {
		if _, explicit := c.nsRename[ns]; explicit {
			continue
		}
		removable := true
		renameTarget := ""
		renameAgrees := true
		for _, e := range list {
			if e.Category != m.CategoryNoEquivalent {
				removable = false
			}
			if e.Category == m.CategoryRenamed && e.Replacement != nil {
				switch {
				case renameTarget == "":
					renameTarget = e.Replacement.Namespace
				case renameTarget != e.Replacement.Namespace:
					renameAgrees = false
				}
			} else {
				renameAgrees = false
			}
		}
		switch {
		case removable:
			c.nsRemove[ns] = true
		case renameAgrees && renameTarget != "" && renameTarget != ns:
			c.nsRename[ns] = renameTarget
		}
	}
	return c
}

// Entries returns the catalog entries in file order.
func (c *Catalog) Entries() []m.Mapping { return c.entries }

// Len reports the number of type entries.
func (c *Catalog) Len() int { return len(c.entries) }

// LookupName returns every entry sharing the short name.
func (c *Catalog) LookupName(name string) []m.Mapping {
	return c.byName[name]
}

// SoleRenamed returns the entry for name when the catalog holds exactly
// one entry for that short name and it is a rename. Any ambiguity or a
// non-rename category reports false.
func (c *Catalog) SoleRenamed(name string) (m.Mapping, bool) {
	list := c.byName[name]
	if len(list) != 1 || list[0].Category != m.CategoryRenamed {
		return m.Mapping{}, false
	}
	return list[0], true
}

// LookupQualified returns the entry for the exact (namespace, name) pair.
func (c *Catalog) LookupQualified(namespace, name string) (m.Mapping, bool) {
	e, ok := c.byQual[m.FQN(namespace, name)]
	return e, ok
}

// NamespaceAction decides the fate of one import path. Rules match the
// path exactly or as a parent ("old" covers "old/sub"); renames carry
// the sub-path across ("old/sub" becomes "new/sub"). When nested rules
// both match, the longest base wins.
func (c *Catalog) NamespaceAction(path string) (Action, string) {
	action, target, best := Keep, "", -1
	for old, to := range c.nsRename {
		if rest, ok := subPath(path, old); ok && len(old) > best {
			action, target, best = Rename, to+rest, len(old)
		}
	}
	for old := range c.nsRemove {
		if _, ok := subPath(path, old); ok && len(old) > best {
			action, target, best = Remove, "", len(old)
		}
	}
	return action, target
}

// Protected reports whether the fully qualified type must never be
// neutralized.
func (c *Catalog) Protected(fqn string) bool {
	return c.protected[fqn]
}

// CountByCategory tallies entries per category for summaries.
func (c *Catalog) CountByCategory() map[m.Category]int {
	out := make(map[m.Category]int)
	for _, e := range c.entries {
		out[e.Category]++
	}
	return out
}

// Namespaces lists the old namespaces with entries, sorted.
func (c *Catalog) Namespaces() []string {
	seen := make(map[string]bool)
	for _, e := range c.entries {
		seen[e.Namespace] = true
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// subPath reports whether path equals base or is nested under it, and
// returns the remainder ("" or "/rest").
func subPath(path, base string) (string, bool) {
	if path == base {
		return "", true
	}
	if strings.HasPrefix(path, base+"/") {
		return path[len(base):], true
	}
	return "", false
}
