package normalize

// Location is the raw pair of location fields of one source row.
type Location struct {
	Negeri string
	Bandar string
}

// DomainStats aggregates resolver outcomes for one field across a batch.
type DomainStats struct {
	Normalized   int      `json:"normalized"`
	Unrecognized []string `json:"unrecognized"`
	// occurrences of each unrecognized raw value
	UnrecognizedCounts map[string]int    `json:"unrecognizedCounts"`
	Breakdown          map[string]int    `json:"breakdown"`
	Suggestions        map[string]string `json:"suggestions,omitempty"`
}

// Stats is the pre-import normalization report.
type Stats struct {
	Total  int         `json:"total"`
	Negeri DomainStats `json:"negeri"`
	Bandar DomainStats `json:"bandar"`
}

func newDomainStats() DomainStats {
	return DomainStats{Unrecognized: []string{}, UnrecognizedCounts: map[string]int{}, Breakdown: map[string]int{}}
}

// BuildReport resolves every location and counts recognized values per
// canonical name. Unrecognized raw values are listed once each, in first-seen
// order, with their occurrence counts and a suggestion when one is close enough. Empty values count
// towards Total only.
func (n *Normalizer) BuildReport(locs []Location) Stats {
	st := Stats{Total: len(locs), Negeri: newDomainStats(), Bandar: newDomainStats()}
	for _, l := range locs {
		tally(&st.Negeri, n.negeri.Resolve(l.Negeri), l.Negeri, n.negeriDict)
		tally(&st.Bandar, n.bandar.Resolve(l.Bandar), l.Bandar, n.bandarDict)
	}
	return st
}

func tally(ds *DomainStats, o Outcome, raw string, d *Dictionary) {
	switch {
	case o.Matched:
		ds.Normalized++
		ds.Breakdown[o.Value]++
	case o.Value == "":
	default:
		ds.UnrecognizedCounts[raw]++
		if ds.UnrecognizedCounts[raw] > 1 {
			return
		}
		ds.Unrecognized = append(ds.Unrecognized, raw)
		if name, _, ok := d.Suggest(raw); ok {
			if ds.Suggestions == nil {
				ds.Suggestions = map[string]string{}
			}
			ds.Suggestions[raw] = name
		}
	}
}
