package labels

import (
	"sort"
	"strings"
)

// Label is a named, coloured issue label
type Label struct {
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

// Key returns the case-insensitive identity of the label
func (l Label) Key() string {
	return strings.ToLower(l.Name)
}

// LabelSet maps exact-case label names to colours. It describes either the
// current labels of a repository or a desired specification.
type LabelSet map[string]string

// Names returns the label names in sorted order. This is the iteration order
// used whenever a LabelSet is walked.
func (s LabelSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Labels returns the set as a slice of labels in Names order
func (s LabelSet) Labels() []Label {
	out := make([]Label, 0, len(s))
	for _, name := range s.Names() {
		out = append(out, Label{Name: name, Color: s[name]})
	}
	return out
}

// index builds a lower-cased lookup of the set
func (s LabelSet) index() map[string]Label {
	idx := make(map[string]Label, len(s))
	for name, color := range s {
		idx[strings.ToLower(name)] = Label{Name: name, Color: color}
	}
	return idx
}

// ChangeType represents the type of a label change
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "create"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
)

// LabelChange is a single scheduled label mutation. OldName addresses the
// existing label for updates and deletes; it differs from Name only for a
// case-only rename.
type LabelChange struct {
	Type    ChangeType `json:"type"`
	OldName string     `json:"old_name,omitempty"`
	Name    string     `json:"name"`
	Color   string     `json:"color,omitempty"`
}

// Key returns the lookup key of the change: the lower-cased name of the
// label the change addresses.
func (c LabelChange) Key() string {
	if c.OldName != "" {
		return strings.ToLower(c.OldName)
	}
	return strings.ToLower(c.Name)
}

// ChangeSet holds the creates, updates and deletes computed for one
// repository, each ordered by key.
type ChangeSet struct {
	Create []LabelChange `json:"create,omitempty"`
	Update []LabelChange `json:"update,omitempty"`
	Delete []LabelChange `json:"delete,omitempty"`
}

// Len returns the total number of scheduled changes
func (cs ChangeSet) Len() int {
	return len(cs.Create) + len(cs.Update) + len(cs.Delete)
}

// Empty reports whether nothing needs to change
func (cs ChangeSet) Empty() bool {
	return cs.Len() == 0
}

// ByKey returns the changes of the given type keyed by lookup key
func (cs ChangeSet) ByKey(changeType ChangeType) map[string]LabelChange {
	var changes []LabelChange
	switch changeType {
	case ChangeTypeCreate:
		changes = cs.Create
	case ChangeTypeUpdate:
		changes = cs.Update
	case ChangeTypeDelete:
		changes = cs.Delete
	}

	out := make(map[string]LabelChange, len(changes))
	for _, change := range changes {
		out[change.Key()] = change
	}
	return out
}
