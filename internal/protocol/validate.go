package protocol

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidMessage = errors.New("invalid message")

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidMessage, field)
}

// WellFormed is the structural check the hub applies before accepting a
// submission.
func (m Message) WellFormed() error {
	switch {
	case m.ID == "":
		return missing("id")
	case m.Type == "":
		return missing("type")
	case m.Text == "":
		return missing("text")
	}
	return nil
}

// Validate checks that a freshly composed message carries every field its
// type requires. Unknown types only need the common fields.
func (m Message) Validate() error {
	if err := m.WellFormed(); err != nil {
		return err
	}
	if m.UserName == "" {
		return missing("userName")
	}
	if m.Timestamp == "" {
		return missing("timestamp")
	}
	if _, err := ParseTimestamp(m.Timestamp, time.UTC); err != nil {
		return fmt.Errorf("%w: timestamp %q: %v", ErrInvalidMessage, m.Timestamp, err)
	}

	switch m.Type {
	case TypeImage, TypeVideo, TypeFile:
		if m.Attachment == nil || m.Attachment.FileURI == "" {
			return missing("fileUri")
		}
		if m.Attachment.FileName == "" {
			return missing("fileName")
		}

	case TypeEvent:
		if m.Event == nil || m.Event.Title == "" {
			return missing("eventTitle")
		}

	case TypeMeeting:
		return m.Meeting.validate()
	}

	return nil
}

func (mt *Meeting) validate() error {
	if mt == nil || mt.Title == "" {
		return missing("title")
	}
	if mt.StartDate == "" {
		return missing("startDate")
	}
	if mt.EndDate == "" {
		return missing("endDate")
	}

	start, err := ParseTimestamp(mt.StartDate, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: startDate %q: %v", ErrInvalidMessage, mt.StartDate, err)
	}
	end, err := ParseTimestamp(mt.EndDate, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: endDate %q: %v", ErrInvalidMessage, mt.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate is before startDate", ErrInvalidMessage)
	}
	if mt.IsRecurring && mt.RecurringType == "" {
		return missing("recurringType")
	}
	return nil
}
