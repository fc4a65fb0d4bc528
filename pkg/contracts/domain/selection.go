package domain

// LotSelection is the Platz filter applied before aggregation.
// Rows whose Platz is absent are only kept when IncludeUnassigned is set.
type LotSelection struct {
	Lots              []string `json:"lots"`
	IncludeUnassigned bool     `json:"include_unassigned"`
}

// SelectAll selects every given lot.
func SelectAll(lots []string) LotSelection {
	selected := make([]string, len(lots))
	copy(selected, lots)
	return LotSelection{Lots: selected}
}

// Contains reports whether a record with the given Platz passes the filter.
func (s LotSelection) Contains(platz *string) bool {
	if platz == nil {
		return s.IncludeUnassigned
	}
	for _, lot := range s.Lots {
		if lot == *platz {
			return true
		}
	}
	return false
}
