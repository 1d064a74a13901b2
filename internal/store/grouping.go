package store

import (
	"time"

	"welfare-chat/internal/protocol"
)

// Group is a run of consecutive messages that share a calendar day.
type Group struct {
	// Day is midnight in the grouping location, or zero when the run opens
	// with a message whose timestamp cannot be parsed.
	Day      time.Time
	Messages []protocol.Message
}

func (g Group) Label() string {
	if g.Day.IsZero() {
		return "Unknown date"
	}
	return g.Day.Format("Monday, 2 January 2006")
}

func dayOf(ts string, loc *time.Location) (time.Time, bool) {
	t, err := protocol.ParseTimestamp(ts, loc)
	if err != nil {
		return time.Time{}, false
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

// Boundaries reports, per message, whether it opens a date group. Messages
// are compared in the order given, never sorted. The first message always
// opens a group; after that only a message with a parseable timestamp on a
// different day than the last dated message does.
func Boundaries(messages []protocol.Message, loc *time.Location) []bool {
	if loc == nil {
		loc = time.Local
	}

	out := make([]bool, len(messages))
	var last time.Time
	haveLast := false

	for i, m := range messages {
		day, ok := dayOf(m.Timestamp, loc)
		switch {
		case i == 0:
			out[i] = true
		case ok && (!haveLast || !day.Equal(last)):
			out[i] = true
		}
		if ok {
			last, haveLast = day, true
		}
	}
	return out
}

func GroupByDay(messages []protocol.Message, loc *time.Location) []Group {
	if loc == nil {
		loc = time.Local
	}

	var groups []Group
	for i, starts := range Boundaries(messages, loc) {
		if starts {
			day, _ := dayOf(messages[i].Timestamp, loc)
			groups = append(groups, Group{Day: day})
		}
		g := &groups[len(groups)-1]
		g.Messages = append(g.Messages, messages[i])
	}
	return groups
}
