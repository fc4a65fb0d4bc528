package dataprocessing

import (
	"cmp"
	"slices"
	"sort"

	"lotpulse/pkg/contracts/domain"
)

// DefaultTopN is the number of vehicles listed per customer in the top dwellers view.
const DefaultTopN = 5

// optionalKey turns an optional string into a comparable map key.
type optionalKey struct {
	value   string
	present bool
}

func keyOf(s *string) optionalKey {
	if s == nil {
		return optionalKey{}
	}
	return optionalKey{value: *s, present: true}
}

func (k optionalKey) ptr() *string {
	if !k.present {
		return nil
	}
	v := k.value
	return &v
}

// AvailableLots returns the distinct non-absent Platz values in ascending order.
func AvailableLots(records []domain.VehicleOrder) []string {
	seen := make(map[string]bool)
	lots := []string{}
	for _, r := range records {
		if r.Platz == nil || seen[*r.Platz] {
			continue
		}
		seen[*r.Platz] = true
		lots = append(lots, *r.Platz)
	}
	slices.Sort(lots)
	return lots
}

// Filter keeps the records whose Platz passes the selection, preserving order.
func Filter(records []domain.VehicleOrder, selection domain.LotSelection) []domain.VehicleOrder {
	filtered := []domain.VehicleOrder{}
	for _, r := range records {
		if selection.Contains(r.Platz) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// CategoryCounts counts records per customer and vehicle kind.
func CategoryCounts(records []domain.VehicleOrder) []domain.CategoryCount {
	type group struct{ kunde, art optionalKey }
	counts := make(map[group]int)
	for _, r := range records {
		counts[group{keyOf(r.Kunde), keyOf(r.Fahrzeugart)}]++
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, domain.CategoryCount{
			Kunde:       g.kunde.ptr(),
			Fahrzeugart: g.art.ptr(),
			Anzahl:      n,
		})
	}
	slices.SortFunc(out, func(a, b domain.CategoryCount) int {
		if c := domain.CompareOptional(a.Kunde, b.Kunde); c != 0 {
			return c
		}
		return domain.CompareOptional(a.Fahrzeugart, b.Fahrzeugart)
	})
	return out
}

// DwellAverages averages Standzeit per customer, split by whether a delivery
// date is planned. Records without Standzeit count as vehicles but are left
// out of the mean; a group with no defined Standzeit has a nil average.
func DwellAverages(records []domain.VehicleOrder) []domain.DwellAverage {
	type group struct {
		kunde   optionalKey
		planned bool
	}
	type acc struct {
		sum, defined, vehicles int
	}
	groups := make(map[group]*acc)
	for _, r := range records {
		g := group{keyOf(r.Kunde), r.AuslieferungVorhanden}
		a, ok := groups[g]
		if !ok {
			a = &acc{}
			groups[g] = a
		}
		a.vehicles++
		if r.Standzeit != nil {
			a.sum += *r.Standzeit
			a.defined++
		}
	}

	out := make([]domain.DwellAverage, 0, len(groups))
	for g, a := range groups {
		row := domain.DwellAverage{
			Kunde:                 g.kunde.ptr(),
			AuslieferungVorhanden: g.planned,
			Fahrzeuge:             a.vehicles,
		}
		if a.defined > 0 {
			mean := float64(a.sum) / float64(a.defined)
			row.Standzeit = &mean
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b domain.DwellAverage) int {
		if c := domain.CompareOptional(a.Kunde, b.Kunde); c != 0 {
			return c
		}
		return compareBool(a.AuslieferungVorhanden, b.AuslieferungVorhanden)
	})
	return out
}

// CustomerTotals counts records per customer, largest first.
func CustomerTotals(records []domain.VehicleOrder) []domain.CustomerTotal {
	counts := make(map[optionalKey]int)
	for _, r := range records {
		counts[keyOf(r.Kunde)]++
	}

	out := make([]domain.CustomerTotal, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.CustomerTotal{Kunde: k.ptr(), Gesamtanzahl: n})
	}
	slices.SortFunc(out, func(a, b domain.CustomerTotal) int {
		if c := cmp.Compare(b.Gesamtanzahl, a.Gesamtanzahl); c != 0 {
			return c
		}
		return domain.CompareOptional(a.Kunde, b.Kunde)
	})
	return out
}

// TopDwellers lists, per customer, the n records with the longest Standzeit.
// Records without Standzeit rank last; equal values keep source order.
// n <= 0 selects DefaultTopN.
func TopDwellers(records []domain.VehicleOrder, n int) []domain.TopDweller {
	if n <= 0 {
		n = DefaultTopN
	}

	byKunde := make(map[optionalKey][]domain.VehicleOrder)
	var order []optionalKey
	for _, r := range records {
		k := keyOf(r.Kunde)
		if _, ok := byKunde[k]; !ok {
			order = append(order, k)
		}
		byKunde[k] = append(byKunde[k], r)
	}
	sort.Slice(order, func(i, j int) bool {
		return domain.CompareOptional(order[i].ptr(), order[j].ptr()) < 0
	})

	out := []domain.TopDweller{}
	for _, k := range order {
		group := byKunde[k]
		sort.SliceStable(group, func(i, j int) bool {
			return compareStandzeitDesc(group[i].Standzeit, group[j].Standzeit) < 0
		})
		for i, r := range group {
			if i == n {
				break
			}
			out = append(out, domain.TopDweller{Rank: i + 1, VehicleOrder: r})
		}
	}
	return out
}

func compareStandzeitDesc(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*b, *a)
}

// compareBool orders false before true.
func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
