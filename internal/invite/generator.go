// Package invite renders meeting messages as RFC 5545 calendar invites.
package invite

import (
	"fmt"
	"strings"
	"time"

	"welfare-chat/internal/protocol"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const productID = "-//welfare-chat//meeting invite//EN"

var frequencies = map[string]string{
	"daily":   "DAILY",
	"weekly":  "WEEKLY",
	"monthly": "MONTHLY",
	"yearly":  "YEARLY",
}

type Generator struct {
	// Location reads zone-less start and end dates. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

func (g Generator) Generate(m protocol.Meeting) (string, error) {
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	start, err := protocol.ParseTimestamp(m.StartDate, loc)
	if err != nil {
		return "", fmt.Errorf("invite: start date: %w", err)
	}
	end, err := protocol.ParseTimestamp(m.EndDate, loc)
	if err != nil {
		return "", fmt.Errorf("invite: end date: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId(productID)

	ev := cal.AddEvent(uuid.NewString() + "@welfare-chat")
	ev.SetDtStampTime(now().UTC())
	ev.SetStartAt(start.UTC())
	ev.SetEndAt(end.UTC())
	ev.SetSummary(m.Title)
	ev.SetStatus(ics.ObjectStatusConfirmed)

	if m.Description != "" {
		ev.SetDescription(m.Description)
	}
	if m.Location != "" {
		ev.SetLocation(m.Location)
	}
	if m.MeetingLink != "" {
		ev.SetURL(m.MeetingLink)
	}
	if m.Organizer != "" {
		ev.SetOrganizer(m.Organizer, ics.WithCN(m.Organizer))
	}
	for _, a := range m.Attendees {
		ev.AddAttendee(a, ics.WithCN(a), ics.WithRSVP(true))
	}

	if m.IsRecurring {
		freq, ok := frequencies[strings.ToLower(m.RecurringType)]
		if !ok {
			return "", fmt.Errorf("invite: unsupported recurrence %q", m.RecurringType)
		}
		ev.AddRrule("FREQ=" + freq)
	}

	return cal.Serialize(), nil
}
