package gotmt

import "sort"

// ValuesDiff describes how the language values of an entry changed.
// Every slice holds sorted language codes.
type ValuesDiff struct {
	// Added contains languages present only in the new values.
	Added []string

	// Removed contains languages present only in the old values.
	Removed []string

	// Modified contains languages whose value changed.
	Modified []string

	// Unchanged contains languages with identical values.
	Unchanged []string
}

// HasChanges returns true if there are any differences.
func (d ValuesDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// Changed returns every language whose value was added, removed or modified.
func (d ValuesDiff) Changed() []string {
	changed := make([]string, 0, len(d.Added)+len(d.Removed)+len(d.Modified))
	changed = append(changed, d.Added...)
	changed = append(changed, d.Removed...)
	changed = append(changed, d.Modified...)
	sort.Strings(changed)
	return changed
}

// DiffValues compares two language-to-value maps.
func DiffValues(oldValues, newValues map[string]string) ValuesDiff {
	var d ValuesDiff

	for lang, oldValue := range oldValues {
		newValue, exists := newValues[lang]
		switch {
		case !exists:
			d.Removed = append(d.Removed, lang)
		case newValue != oldValue:
			d.Modified = append(d.Modified, lang)
		default:
			d.Unchanged = append(d.Unchanged, lang)
		}
	}

	for lang := range newValues {
		if _, exists := oldValues[lang]; !exists {
			d.Added = append(d.Added, lang)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Modified)
	sort.Strings(d.Unchanged)

	return d
}
