package track

import "time"

// TimelineEntry is one human-readable milestone in an order's history.
type TimelineEntry struct {
	TS    time.Time `json:"ts"`
	Label string    `json:"label"`
}

// OrderState is the authoritative record for one order key. Optional fields
// are sticky: a merge that omits them keeps the previous value. UpdatedAt is
// unset until the first write, so a pending view serializes without it.
type OrderState struct {
	Status      Status          `json:"status"`
	DriverName  *string         `json:"driver_name,omitempty"`
	DriverPhone *string         `json:"driver_phone,omitempty"`
	Lat         *float64        `json:"lat,omitempty"`
	Lng         *float64        `json:"lng,omitempty"`
	ETAMinutes  *int            `json:"eta_minutes,omitempty"`
	Timeline    []TimelineEntry `json:"timeline"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// Pending is the view served for keys with no record yet.
func Pending() OrderState {
	return OrderState{Status: StatusPending, Timeline: []TimelineEntry{}}
}

// Patch is a partial update produced by the normalizer. Nil fields are left
// out of the merge entirely.
type Patch struct {
	Status      *Status
	DriverName  *string
	DriverPhone *string
	Lat         *float64
	Lng         *float64
	ETAMinutes  *int
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.Status == nil && p.DriverName == nil && p.DriverPhone == nil &&
		p.Lat == nil && p.Lng == nil && p.ETAMinutes == nil
}

// Apply merges a patch into the state and returns the result. Fields present
// in the patch overwrite, absent ones carry forward; a non-empty label
// appends a timeline entry stamped with now, and UpdatedAt always moves to
// now. The receiver is not mutated: the result owns a fresh timeline slice,
// so callers may keep earlier states around.
func (s OrderState) Apply(p Patch, label string, now time.Time) OrderState {
	next := s
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.DriverName != nil {
		next.DriverName = p.DriverName
	}
	if p.DriverPhone != nil {
		next.DriverPhone = p.DriverPhone
	}
	if p.Lat != nil {
		next.Lat = p.Lat
	}
	if p.Lng != nil {
		next.Lng = p.Lng
	}
	if p.ETAMinutes != nil {
		next.ETAMinutes = p.ETAMinutes
	}

	grow := 0
	if label != "" {
		grow = 1
	}
	timeline := make([]TimelineEntry, len(s.Timeline), len(s.Timeline)+grow)
	copy(timeline, s.Timeline)
	if label != "" {
		timeline = append(timeline, TimelineEntry{TS: now, Label: label})
	}
	next.Timeline = timeline

	ts := now
	next.UpdatedAt = &ts
	return next
}

// Update is the payload pushed to live subscribers: the full order state
// flattened together with the key it belongs to.
type Update struct {
	Order string `json:"order"`
	OrderState
}
