// Package composer turns producer actions (typed text, a picked file, a
// shared event, a scheduled meeting) into complete protocol messages.
package composer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"welfare-chat/internal/protocol"
)

type IdentityProvider interface {
	Identity(ctx context.Context) (protocol.Identity, error)
}

// Uploader publishes a local file and returns the URI other members fetch it
// from.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

type InviteGenerator interface {
	Generate(m protocol.Meeting) (string, error)
}

// PassThrough is an Uploader for files that are already reachable by path.
type PassThrough struct{}

func (PassThrough) Upload(_ context.Context, localPath string) (string, error) {
	return localPath, nil
}

type Options struct {
	Uploader Uploader
	Invites  InviteGenerator
	Now      func() time.Time
}

type Composer struct {
	identity IdentityProvider
	uploader Uploader
	invites  InviteGenerator
	now      func() time.Time
}

func New(identity IdentityProvider, opts Options) *Composer {
	if opts.Uploader == nil {
		opts.Uploader = PassThrough{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Composer{
		identity: identity,
		uploader: opts.Uploader,
		invites:  opts.Invites,
		now:      opts.Now,
	}
}

var imageExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

// Classify maps a file name to the message type it is shared as.
func Classify(fileName string) protocol.Type {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch {
	case imageExts[ext]:
		return protocol.TypeImage
	case ext == "mp4":
		return protocol.TypeVideo
	default:
		return protocol.TypeFile
	}
}

func article(t protocol.Type) string {
	if t == protocol.TypeImage {
		return "an"
	}
	return "a"
}

func (c *Composer) Text(ctx context.Context, text string) (protocol.Message, error) {
	if strings.TrimSpace(text) == "" {
		return protocol.Message{}, fmt.Errorf("composer: %w: text is empty", protocol.ErrInvalidMessage)
	}
	return c.build(ctx, protocol.TypeText, func(id protocol.Identity, m *protocol.Message) {
		m.Text = text
	})
}

// File uploads the file at localPath and shares it.
func (c *Composer) File(ctx context.Context, localPath string) (protocol.Message, error) {
	uri, err := c.uploader.Upload(ctx, localPath)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("composer: upload %s: %w", localPath, err)
	}
	return c.Attachment(ctx, uri, filepath.Base(localPath))
}

// Attachment shares a file that is already uploaded.
func (c *Composer) Attachment(ctx context.Context, uri, fileName string) (protocol.Message, error) {
	kind := Classify(fileName)
	return c.build(ctx, kind, func(id protocol.Identity, m *protocol.Message) {
		m.Text = fmt.Sprintf("%s shared %s %s: %s", id.Name, article(kind), kind, fileName)
		m.Attachment = &protocol.Attachment{FileURI: uri, FileName: fileName}
	})
}

func (c *Composer) Event(ctx context.Context, ev protocol.EventShare) (protocol.Message, error) {
	return c.build(ctx, protocol.TypeEvent, func(id protocol.Identity, m *protocol.Message) {
		m.Text = fmt.Sprintf("%s shared an event: %s", id.Name, ev.Title)
		m.Event = &ev
	})
}

// Meeting keeps every field of mt as given. A missing calendar invite is
// generated when an invite generator is configured.
func (c *Composer) Meeting(ctx context.Context, mt protocol.Meeting) (protocol.Message, error) {
	if mt.CalendarInvite == "" && c.invites != nil {
		invite, err := c.invites.Generate(mt)
		if err != nil {
			return protocol.Message{}, fmt.Errorf("composer: generate invite: %w", err)
		}
		mt.CalendarInvite = invite
	}
	if mt.Attendees != nil {
		mt.Attendees = append([]string(nil), mt.Attendees...)
	}

	return c.build(ctx, protocol.TypeMeeting, func(id protocol.Identity, m *protocol.Message) {
		m.Text = fmt.Sprintf("%s scheduled a meeting: %s", id.Name, mt.Title)
		m.Meeting = &mt
	})
}

func (c *Composer) build(ctx context.Context, t protocol.Type, fill func(protocol.Identity, *protocol.Message)) (protocol.Message, error) {
	id, err := c.identity.Identity(ctx)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("composer: identity: %w", err)
	}

	now := c.now()
	m := protocol.Message{
		ID:              protocol.NewID(now),
		Type:            t,
		UserName:        id.Name,
		ProfileImageURL: id.ProfileImageURL,
		Timestamp:       protocol.FormatTimestamp(now),
	}
	fill(id, &m)

	if err := m.Validate(); err != nil {
		return protocol.Message{}, fmt.Errorf("composer: %w", err)
	}
	return m, nil
}
