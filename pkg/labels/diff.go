package labels

import (
	"fmt"
	"sort"
	"strings"
)

// Mode selects how a desired specification is reconciled
type Mode string

const (
	// ModeUpdate creates missing labels and fixes names and colours
	ModeUpdate Mode = "update"
	// ModeReplace additionally deletes labels absent from the specification
	ModeReplace Mode = "replace"
)

// ParseMode parses a mode name as given on the command line
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeUpdate:
		return ModeUpdate, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unsupported mode %q: must be one of update, replace", s)
	}
}

// Diff computes the change set for the mode
func (m Mode) Diff(current, desired LabelSet) ChangeSet {
	if m == ModeReplace {
		return ComputeReplaceDiff(current, desired)
	}
	return ComputeUpdateDiff(current, desired)
}

// ComputeUpdateDiff returns the creates and updates that bring current in
// line with desired. Matching is case-insensitive; a case-only rename and a
// colour change of the same label collapse into a single update. Nothing is
// ever deleted.
func ComputeUpdateDiff(current, desired LabelSet) ChangeSet {
	var cs ChangeSet
	existing := current.index()

	for _, name := range desired.Names() {
		color := desired[name]
		found, ok := existing[strings.ToLower(name)]

		switch {
		case !ok:
			cs.Create = append(cs.Create, LabelChange{
				Type:  ChangeTypeCreate,
				Name:  name,
				Color: color,
			})
		case found.Name != name:
			cs.Update = append(cs.Update, LabelChange{
				Type:    ChangeTypeUpdate,
				OldName: found.Name,
				Name:    name,
				Color:   color,
			})
		case found.Color != color:
			cs.Update = append(cs.Update, LabelChange{
				Type:    ChangeTypeUpdate,
				OldName: name,
				Name:    name,
				Color:   color,
			})
		}
	}

	sortChanges(cs.Create)
	sortChanges(cs.Update)
	return cs
}

// ComputeReplaceDiff is ComputeUpdateDiff plus a delete for every current
// label whose exact-case name is not a key of desired. The delete test is
// case-sensitive while matching for updates is not, so a label that only
// differs in case is both renamed and scheduled for deletion.
func ComputeReplaceDiff(current, desired LabelSet) ChangeSet {
	cs := ComputeUpdateDiff(current, desired)

	for _, name := range current.Names() {
		if _, ok := desired[name]; ok {
			continue
		}
		cs.Delete = append(cs.Delete, LabelChange{
			Type:    ChangeTypeDelete,
			OldName: name,
			Name:    name,
			Color:   current[name],
		})
	}

	sortChanges(cs.Delete)
	return cs
}

func sortChanges(changes []LabelChange) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Key() < changes[j].Key()
	})
}
