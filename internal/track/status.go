package track

import "strings"

// Status is the canonical delivery status of a tracked order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusEnroute   Status = "enroute"
	StatusNearby    Status = "nearby"
	StatusCompleted Status = "completed"
)

// statusRule matches free-text fragments of an upstream status against one
// canonical Status. Rules are evaluated in order, first match wins.
type statusRule struct {
	status   Status
	contains []string
	squashed []string // compared against the input with separators removed
}

var statusRules = []statusRule{
	{status: StatusAccepted, contains: []string{"accept", "assigned"}},
	{status: StatusEnroute, contains: []string{"start", "dispatched"}, squashed: []string{"enroute", "ontheway"}},
	{status: StatusNearby, contains: []string{"nearby", "arriving"}},
	{status: StatusCompleted, contains: []string{"delivered", "completed", "success"}},
}

// timelineLabels holds the fixed milestone text appended to an order's
// timeline on a status transition. Raw upstream text never reaches the
// timeline.
var timelineLabels = map[Status]string{
	StatusAccepted:  "Driver accepted your order",
	StatusEnroute:   "Driver is on the way",
	StatusNearby:    "Driver is nearby",
	StatusCompleted: "Order delivered",
}

// Classify maps raw upstream status text onto a canonical Status. Matching is
// case-insensitive; ok is false when no rule applies.
func Classify(raw string) (Status, bool) {
	lower := strings.ToLower(raw)
	squashed := squash(lower)
	for _, rule := range statusRules {
		for _, frag := range rule.contains {
			if strings.Contains(lower, frag) {
				return rule.status, true
			}
		}
		for _, frag := range rule.squashed {
			if strings.Contains(squashed, frag) {
				return rule.status, true
			}
		}
	}
	return "", false
}

// Label returns the timeline milestone text for a status, or "" when the
// status has none.
func Label(s Status) string {
	return timelineLabels[s]
}

// squash drops everything but letters and digits so variants like
// "On the way", "on_the_way" and "en-route" compare equal.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
