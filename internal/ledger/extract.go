package ledger

import (
	"sort"
	"strconv"
	"strings"
)

// Update is one extracted (day, value) fact for a single attribute
// kind. Within one extracted series, days are unique and ascending.
type Update struct {
	Day   int
	Value float64
}

// Extract scans the ledger for entries matching the rule's trigger
// and extracts one update per day. It is a pure function of
// (entries, rule).
//
// Entries that match the trigger but yield no value from the pattern
// are excluded and returned in the skipped list, never silently
// dropped.
//
// Same-day duplicates: the entry appearing latest in the original
// ledger sequence wins. This is a documented policy choice, not an
// accident of sort order.
func Extract(entries []Entry, rule Rule) ([]Update, []Skipped) {
	trigger := strings.ToLower(rule.Match)

	type candidate struct {
		position int
		value    float64
	}
	byDay := make(map[int]candidate)
	var skipped []Skipped

	for _, e := range entries {
		if !strings.Contains(strings.ToLower(e.Description), trigger) {
			continue
		}
		m := rule.Pattern.FindStringSubmatch(e.Description)
		if len(m) < 2 {
			skipped = append(skipped, Skipped{
				Position:    e.Position,
				Day:         e.Day,
				Description: e.Description,
				Kind:        rule.Kind,
				Reason:      "matched trigger but no extractable value",
			})
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			skipped = append(skipped, Skipped{
				Position:    e.Position,
				Day:         e.Day,
				Description: e.Description,
				Kind:        rule.Kind,
				Reason:      "extracted value is not numeric: " + m[1],
			})
			continue
		}
		if rule.Decimal {
			v = Round2(v)
		}
		if prev, ok := byDay[e.Day]; ok && prev.position > e.Position {
			continue
		}
		byDay[e.Day] = candidate{position: e.Position, value: v}
	}

	updates := make([]Update, 0, len(byDay))
	for day, c := range byDay {
		updates = append(updates, Update{Day: day, Value: c.value})
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Day < updates[j].Day })
	return updates, skipped
}
