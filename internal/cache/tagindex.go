package cache

import (
	"sort"

	"github.com/starford/muninn/internal/models"
)

// tagIndex maps a tag to the set of note ids carrying it. Entries with an
// empty id set are removed immediately so the key set is exactly the set of
// tags in use.
type tagIndex map[string]map[string]struct{}

func buildTagIndex(notes map[string]models.Note) tagIndex {
	idx := make(tagIndex)
	for id, n := range notes {
		idx.add(id, n.Tags)
	}
	return idx
}

func (ti tagIndex) clone() tagIndex {
	out := make(tagIndex, len(ti))
	for tag, ids := range ti {
		set := make(map[string]struct{}, len(ids))
		for id := range ids {
			set[id] = struct{}{}
		}
		out[tag] = set
	}
	return out
}

func (ti tagIndex) add(id string, tags []string) {
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		set, ok := ti[tag]
		if !ok {
			set = make(map[string]struct{})
			ti[tag] = set
		}
		set[id] = struct{}{}
	}
}

func (ti tagIndex) remove(id string, tags []string) {
	for _, tag := range tags {
		set, ok := ti[tag]
		if !ok {
			continue
		}
		delete(set, id)
		if len(set) == 0 {
			delete(ti, tag)
		}
	}
}

// update reconciles one note's index entries after its tags changed.
func (ti tagIndex) update(id string, oldTags, newTags []string) {
	ti.remove(id, oldTags)
	ti.add(id, newTags)
}

// ids returns the id set for tag. The returned map is shared with the
// index and must not be mutated.
func (ti tagIndex) ids(tag string) map[string]struct{} {
	return ti[tag]
}

// untagged computes the virtual "untagged" set: every cached note id minus
// the union of all indexed id sets.
func (ti tagIndex) untagged(notes map[string]models.Note) map[string]struct{} {
	tagged := make(map[string]struct{})
	for _, ids := range ti {
		for id := range ids {
			tagged[id] = struct{}{}
		}
	}
	out := make(map[string]struct{})
	for id := range notes {
		if _, ok := tagged[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// list returns all indexed tags sorted ascending.
func (ti tagIndex) list() []string {
	out := make([]string, 0, len(ti))
	for tag := range ti {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
