package protocol

import (
	"encoding/json"
)

type Type string

const (
	TypeText    Type = "text"
	TypeImage   Type = "image"
	TypeVideo   Type = "video"
	TypeFile    Type = "file"
	TypeEvent   Type = "event"
	TypeMeeting Type = "meeting"
)

// Known reports whether t is one of the message variants this protocol defines.
func (t Type) Known() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeFile, TypeEvent, TypeMeeting:
		return true
	}
	return false
}

// DisplayKind is the variant a renderer should use. Unknown types fall back
// to text so they are shown through their text field instead of dropped.
func (t Type) DisplayKind() Type {
	if t.Known() {
		return t
	}
	return TypeText
}

func (t Type) IsAttachment() bool {
	return t == TypeImage || t == TypeVideo || t == TypeFile
}

// Identity is the producer snapshot copied into every message at send time.
type Identity struct {
	Name            string `json:"name"`
	ProfileImageURL string `json:"profileImageUrl"`
}

type Attachment struct {
	FileURI  string
	FileName string
}

type EventShare struct {
	Title       string
	Description string
	ImageURI    string
}

type Meeting struct {
	Title          string
	Description    string
	StartDate      string
	EndDate        string
	Location       string
	MeetingLink    string
	IsRecurring    bool
	RecurringType  string
	Organizer      string
	Attendees      []string
	CalendarInvite string
}

// Message is the unit of communication. Exactly one of the payload groups is
// expected to be set, selected by Type; text messages carry none.
type Message struct {
	ID              string
	Type            Type
	Text            string
	UserName        string
	ProfileImageURL string
	Timestamp       string

	Attachment *Attachment
	Event      *EventShare
	Meeting    *Meeting

	// extra keeps received fields the groups above do not carry, so a message
	// is relayed and stored as it arrived.
	extra map[string]json.RawMessage
}

// wireMessage is the flat JSON shape the mobile clients exchange.
type wireMessage struct {
	ID              string `json:"id"`
	Type            Type   `json:"type"`
	Text            string `json:"text"`
	UserName        string `json:"userName,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`

	FileURI  string `json:"fileUri,omitempty"`
	FileName string `json:"fileName,omitempty"`

	EventTitle       string `json:"eventTitle,omitempty"`
	EventDescription string `json:"eventDescription,omitempty"`
	EventImageURI    string `json:"eventImageUri,omitempty"`

	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	StartDate      string   `json:"startDate,omitempty"`
	EndDate        string   `json:"endDate,omitempty"`
	Location       string   `json:"location,omitempty"`
	MeetingLink    string   `json:"meetingLink,omitempty"`
	IsRecurring    bool     `json:"isRecurring,omitempty"`
	RecurringType  string   `json:"recurringType,omitempty"`
	Organizer      string   `json:"organizer,omitempty"`
	Attendees      []string `json:"attendees,omitempty"`
	CalendarInvite string   `json:"calendarInvite,omitempty"`
}

func (m Message) wire() wireMessage {
	w := wireMessage{
		ID:              m.ID,
		Type:            m.Type,
		Text:            m.Text,
		UserName:        m.UserName,
		ProfileImageURL: m.ProfileImageURL,
		Timestamp:       m.Timestamp,
	}
	if a := m.Attachment; a != nil {
		w.FileURI = a.FileURI
		w.FileName = a.FileName
	}
	if e := m.Event; e != nil {
		w.EventTitle = e.Title
		w.EventDescription = e.Description
		w.EventImageURI = e.ImageURI
	}
	if mt := m.Meeting; mt != nil {
		w.Title = mt.Title
		w.Description = mt.Description
		w.StartDate = mt.StartDate
		w.EndDate = mt.EndDate
		w.Location = mt.Location
		w.MeetingLink = mt.MeetingLink
		w.IsRecurring = mt.IsRecurring
		w.RecurringType = mt.RecurringType
		w.Organizer = mt.Organizer
		w.Attendees = mt.Attendees
		w.CalendarInvite = mt.CalendarInvite
	}
	return w
}

// MarshalJSON writes the modelled fields over whatever else the message
// arrived with.
func (m Message) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(m.wire())
	if err != nil || len(m.extra) == 0 {
		return data, err
	}

	var known map[string]json.RawMessage
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage, len(m.extra)+len(known))
	for k, v := range m.extra {
		fields[k] = v
	}
	for k, v := range known {
		fields[k] = v
	}
	return json.Marshal(fields)
}

// UnmarshalJSON always fills the group selected by type. Other groups are
// filled only when their fields are present. Anything left over is kept
// verbatim for MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*m = Message{
		ID:              w.ID,
		Type:            w.Type,
		Text:            w.Text,
		UserName:        w.UserName,
		ProfileImageURL: w.ProfileImageURL,
		Timestamp:       w.Timestamp,
	}

	if w.Type.IsAttachment() || w.FileURI != "" || w.FileName != "" {
		m.Attachment = &Attachment{FileURI: w.FileURI, FileName: w.FileName}
	}
	if w.Type == TypeEvent || w.EventTitle != "" || w.EventDescription != "" || w.EventImageURI != "" {
		m.Event = &EventShare{
			Title:       w.EventTitle,
			Description: w.EventDescription,
			ImageURI:    w.EventImageURI,
		}
	}
	if w.Type == TypeMeeting || w.Title != "" || w.StartDate != "" || w.CalendarInvite != "" {
		m.Meeting = &Meeting{
			Title:          w.Title,
			Description:    w.Description,
			StartDate:      w.StartDate,
			EndDate:        w.EndDate,
			Location:       w.Location,
			MeetingLink:    w.MeetingLink,
			IsRecurring:    w.IsRecurring,
			RecurringType:  w.RecurringType,
			Organizer:      w.Organizer,
			Attendees:      w.Attendees,
			CalendarInvite: w.CalendarInvite,
		}
	}

	return m.keepExtra(data)
}

func (m *Message) keepExtra(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	modelled, err := json.Marshal(m.wire())
	if err != nil {
		return err
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(modelled, &known); err != nil {
		return err
	}

	for k := range known {
		delete(all, k)
	}
	if len(all) > 0 {
		m.extra = all
	}
	return nil
}

// Extra returns a received field the message has no group for.
func (m Message) Extra(key string) (json.RawMessage, bool) {
	v, ok := m.extra[key]
	return v, ok
}

// IsFrom reports whether the message was produced under the given display name.
func (m Message) IsFrom(name string) bool {
	return m.UserName == name
}
