package composer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"welfare-chat/internal/identity"
	"welfare-chat/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newComposer(opts Options) *Composer {
	opts.Now = func() time.Time { return fixedNow }
	return New(identity.Static{Name: "Amina", ProfileImageURL: "https://cdn.example/amina.png"}, opts)
}

type fakeUploader struct {
	paths []string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, p string) (string, error) {
	f.paths = append(f.paths, p)
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/u/" + p[strings.LastIndex(p, "/")+1:], nil
}

type fakeInvites struct{ calls int }

func (f *fakeInvites) Generate(m protocol.Meeting) (string, error) {
	f.calls++
	return "BEGIN:VCALENDAR\r\nSUMMARY:" + m.Title + "\r\nEND:VCALENDAR", nil
}

func TestClassify(t *testing.T) {
	cases := map[string]protocol.Type{
		"photo.png":     protocol.TypeImage,
		"PHOTO.JPG":     protocol.TypeImage,
		"scan.jpeg":     protocol.TypeImage,
		"anim.gif":      protocol.TypeImage,
		"pic.WebP":      protocol.TypeImage,
		"clip.mp4":      protocol.TypeVideo,
		"clip.mov":      protocol.TypeFile,
		"minutes.pdf":   protocol.TypeFile,
		"no-extension":  protocol.TypeFile,
		"archive.png.z": protocol.TypeFile,
	}
	for name, want := range cases {
		assert.Equal(t, want, Classify(name), name)
	}
}

func TestPickedImage(t *testing.T) {
	up := &fakeUploader{}
	c := newComposer(Options{Uploader: up})

	m, err := c.File(context.Background(), "/sdcard/DCIM/photo.png")
	require.NoError(t, err)

	assert.Equal(t, protocol.TypeImage, m.Type)
	require.NotNil(t, m.Attachment)
	assert.Equal(t, "photo.png", m.Attachment.FileName)
	assert.Equal(t, "https://cdn.example/u/photo.png", m.Attachment.FileURI)
	assert.Contains(t, m.Text, "shared an image: photo.png")
	assert.Equal(t, []string{"/sdcard/DCIM/photo.png"}, up.paths)
	assert.NoError(t, m.Validate())
}

func TestAttachmentCaptions(t *testing.T) {
	c := newComposer(Options{})
	ctx := context.Background()

	video, err := c.Attachment(ctx, "https://cdn.example/clip.mp4", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "Amina shared a video: clip.mp4", video.Text)

	file, err := c.Attachment(ctx, "https://cdn.example/minutes.pdf", "minutes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Amina shared a file: minutes.pdf", file.Text)
	assert.Equal(t, protocol.TypeFile, file.Type)
}

func TestPassThroughUploaderKeepsPath(t *testing.T) {
	m, err := newComposer(Options{}).File(context.Background(), "/tmp/minutes.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/minutes.pdf", m.Attachment.FileURI)
}

func TestUploadFailure(t *testing.T) {
	c := newComposer(Options{Uploader: &fakeUploader{err: errors.New("offline")}})
	_, err := c.File(context.Background(), "photo.png")
	assert.ErrorContains(t, err, "offline")
}

func TestText(t *testing.T) {
	c := newComposer(Options{})

	m, err := c.Text(context.Background(), "Habari za jioni")
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeText, m.Type)
	assert.Equal(t, "Habari za jioni", m.Text)
	assert.Equal(t, "Amina", m.UserName)
	assert.Equal(t, "https://cdn.example/amina.png", m.ProfileImageURL)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", m.Timestamp)
	assert.True(t, strings.HasPrefix(m.ID, "1704103200000-"))

	_, err = c.Text(context.Background(), "   ")
	assert.ErrorIs(t, err, protocol.ErrInvalidMessage)
}

func TestEveryMessageGetsFreshID(t *testing.T) {
	c := newComposer(Options{})
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		m, err := c.Text(context.Background(), "hi")
		require.NoError(t, err)
		require.False(t, seen[m.ID])
		seen[m.ID] = true
	}
}

func TestEvent(t *testing.T) {
	c := newComposer(Options{})

	m, err := c.Event(context.Background(), protocol.EventShare{
		Title:       "Harambee fundraiser",
		Description: "Saturday at the hall",
		ImageURI:    "https://cdn.example/poster.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeEvent, m.Type)
	assert.Equal(t, "Amina shared an event: Harambee fundraiser", m.Text)
	assert.Equal(t, "https://cdn.example/poster.jpg", m.Event.ImageURI)

	_, err = c.Event(context.Background(), protocol.EventShare{})
	assert.ErrorIs(t, err, protocol.ErrInvalidMessage)
}

func meeting() protocol.Meeting {
	return protocol.Meeting{
		Title:       "AGM",
		Description: "Annual general meeting",
		StartDate:   "2024-02-01T14:00:00.000Z",
		EndDate:     "2024-02-01T16:00:00.000Z",
		Location:    "Hall",
		MeetingLink: "https://meet.example/agm",
		Organizer:   "Amina",
		Attendees:   []string{"juma@welfare.example"},
	}
}

func TestMeetingPreservesFieldsAndGeneratesInvite(t *testing.T) {
	inv := &fakeInvites{}
	c := newComposer(Options{Invites: inv})

	in := meeting()
	m, err := c.Meeting(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Amina scheduled a meeting: AGM", m.Text)
	require.NotNil(t, m.Meeting)
	got := *m.Meeting
	assert.Contains(t, got.CalendarInvite, "SUMMARY:AGM")
	got.CalendarInvite = ""
	assert.Equal(t, in, got)
	assert.Equal(t, 1, inv.calls)
}

func TestMeetingKeepsGivenInvite(t *testing.T) {
	inv := &fakeInvites{}
	c := newComposer(Options{Invites: inv})

	in := meeting()
	in.CalendarInvite = "BEGIN:VCALENDAR\r\nEND:VCALENDAR"
	m, err := c.Meeting(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.CalendarInvite, m.Meeting.CalendarInvite)
	assert.Zero(t, inv.calls)
}

func TestMeetingValidation(t *testing.T) {
	c := newComposer(Options{})

	in := meeting()
	in.EndDate = "2024-02-01T13:00:00.000Z"
	_, err := c.Meeting(context.Background(), in)
	assert.ErrorIs(t, err, protocol.ErrInvalidMessage)
}

func TestIdentityFailure(t *testing.T) {
	c := New(identity.Static{}, Options{})
	_, err := c.Text(context.Background(), "hi")
	assert.ErrorIs(t, err, identity.ErrNoName)
}
