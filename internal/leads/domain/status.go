// Package domain provides core business rules for the leads bounded context.
package domain

import "fmt"

// Status is a lead's position in the sales funnel.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusArchived  Status = "archived"
)

// funnel orders the non-archived statuses. A lead only moves forward.
var funnel = map[Status]int{
	StatusNew:       0,
	StatusContacted: 1,
	StatusQualified: 2,
	StatusConverted: 3,
}

// AllStatuses lists every status in funnel order, archived last.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusArchived}
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := funnel[s]; ok || s == StatusArchived {
		return s, nil
	}
	return "", fmt.Errorf("unknown lead status %q", raw)
}

// IsTerminal reports whether no further status change is possible.
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// CanTransition reports whether a lead may move from one status to another.
// Archiving is allowed from any live status; otherwise moves go forward
// along new, contacted, qualified, converted, skipping steps if needed.
// Staying on the same status is always allowed and is a no-op.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusArchived {
		return true
	}
	fromRank, okFrom := funnel[from]
	toRank, okTo := funnel[to]
	return okFrom && okTo && toRank > fromRank
}
