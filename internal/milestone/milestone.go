// Package milestone derives summary facts from the unified table: which
// tractors have crossed the engine-hours threshold, standings, and
// descriptive statistics.
package milestone

import (
	"sort"

	"github.com/fieldworks/hourboard/internal/ingest"
)

// DefaultThreshold is the engine-hours milestone used when no other
// threshold is configured.
const DefaultThreshold = 900

// Entry is the milestone outcome for one identifier. The latest reading
// in insertion order is authoritative when an identifier appears more
// than once.
type Entry struct {
	Identifier string
	Hours      float64
	Crossed    bool
	// Margin is hours minus threshold, negative when under.
	Margin float64
	// Remaining is the hours left to the threshold, floored at zero.
	Remaining  float64
	SourceFile string
}

// Stats are descriptive statistics over rows with non-missing hours.
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// GroupStats are Stats for one value of the group-by metadata key.
type GroupStats struct {
	Key string
	Stats
}

// Result is recomputed on demand from the table and never persisted.
type Result struct {
	Threshold float64
	Entries   []Entry
	Stats     Stats

	Tractors int // unique identifiers with at least one valid reading
	Files    int
	Crossed  int
	Under    int

	// Groups is populated only when a group-by key was given, sorted
	// by key. Rows without the key group under "".
	Groups []GroupStats
}

// Aggregate computes the milestone result for the table. Entries are
// sorted descending by hours, ties broken by identifier ascending. Rows
// with missing hours are excluded from entries and statistics.
func Aggregate(t *ingest.Table, threshold float64, groupBy string) Result {
	res := Result{Threshold: threshold}
	if t == nil {
		return res
	}

	latest := make(map[string]ingest.Row)
	order := make([]string, 0)
	files := make(map[string]struct{})
	groups := make(map[string]*Stats)

	for _, r := range t.Rows {
		files[r.SourceFile] = struct{}{}
		if !r.HasHours {
			continue
		}
		if _, seen := latest[r.Identifier]; !seen {
			order = append(order, r.Identifier)
		}
		latest[r.Identifier] = r
		addSample(&res.Stats, r.Hours)

		if groupBy != "" {
			key := r.Meta[groupBy]
			g, ok := groups[key]
			if !ok {
				g = &Stats{}
				groups[key] = g
			}
			addSample(g, r.Hours)
		}
	}

	for _, id := range order {
		r := latest[id]
		e := Entry{
			Identifier: id,
			Hours:      r.Hours,
			Crossed:    r.Hours >= threshold,
			Margin:     r.Hours - threshold,
			SourceFile: r.SourceFile,
		}
		if rem := threshold - r.Hours; rem > 0 {
			e.Remaining = rem
		}
		res.Entries = append(res.Entries, e)
		if e.Crossed {
			res.Crossed++
		} else {
			res.Under++
		}
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		a, b := res.Entries[i], res.Entries[j]
		if a.Hours != b.Hours {
			return a.Hours > b.Hours
		}
		return a.Identifier < b.Identifier
	})

	res.Tractors = len(latest)
	res.Files = len(files)

	if groupBy != "" {
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Groups = append(res.Groups, GroupStats{Key: k, Stats: *groups[k]})
		}
	}
	return res
}

func addSample(s *Stats, v float64) {
	if s.Count == 0 || v < s.Min {
		s.Min = v
	}
	if s.Count == 0 || v > s.Max {
		s.Max = v
	}
	s.Count++
	s.Mean += (v - s.Mean) / float64(s.Count)
}
