package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"welfare-chat/internal/client"
	"welfare-chat/internal/composer"
	"welfare-chat/internal/config"
	"welfare-chat/internal/db"
	"welfare-chat/internal/hashing"
	"welfare-chat/internal/identity"
	"welfare-chat/internal/invite"
	"welfare-chat/internal/notify"
	"welfare-chat/internal/protocol"
	"welfare-chat/internal/repository"
	"welfare-chat/internal/session"
	"welfare-chat/internal/storage"
	"welfare-chat/internal/store"

	"github.com/google/uuid"
)

const help = `Commands:
  <text>                                   send a message
  /file <path>                             share a file, image or video
  /event <title> | <description> | <image> share an event
  /meeting <title> | <start> | <end> | <location> | <link>
  /history                                 print the conversation by day
  /status                                  show connection status
  /reconnect                               connect again after a drop
  /quit`

// printer writes each message once, in store order.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

func (p *printer) update(messages []protocol.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(messages) <= p.printed {
		return
	}
	for _, m := range messages[p.printed:] {
		fmt.Fprintln(p.w, render(m))
	}
	p.printed = len(messages)
}

func render(m protocol.Message) string {
	when := m.Timestamp
	if t, err := protocol.ParseTimestamp(m.Timestamp, time.Local); err == nil {
		when = t.Local().Format("15:04")
	}

	line := fmt.Sprintf("[%s] %s: %s", when, m.UserName, m.Text)
	switch m.Type.DisplayKind() {
	case protocol.TypeImage, protocol.TypeVideo, protocol.TypeFile:
		if m.Attachment != nil {
			line += " <" + m.Attachment.FileURI + ">"
		}
	case protocol.TypeEvent:
		if m.Event != nil && m.Event.Description != "" {
			line += " (" + m.Event.Description + ")"
		}
	case protocol.TypeMeeting:
		if m.Meeting != nil {
			line += fmt.Sprintf(" 📅 %s → %s", m.Meeting.StartDate, m.Meeting.EndDate)
			if m.Meeting.MeetingLink != "" {
				line += " " + m.Meeting.MeetingLink
			}
		}
	}
	return line
}

func fields(s string, n int) []string {
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	for len(parts) < n {
		parts = append(parts, "")
	}
	return parts
}

func identityProvider(ctx context.Context, cfg *config.ClientConfig) (composer.IdentityProvider, func(), error) {
	if cfg.MemberID == "" {
		return identity.Static{Name: cfg.UserName, ProfileImageURL: cfg.ProfileImageURL}, func() {}, nil
	}

	id, err := uuid.Parse(cfg.MemberID)
	if err != nil {
		return nil, nil, fmt.Errorf("CHAT_MEMBER_ID: %w", err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewMemberRepo(pool, id), pool.Close, nil
}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ids, closeIDs, err := identityProvider(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to set up identity:", err)
	}
	defer closeIDs()

	me, err := ids.Identity(ctx)
	if err != nil {
		log.Fatal("Failed to resolve identity:", err)
	}

	history, err := storage.OpenSQLite(cfg.HistoryPath)
	if err != nil {
		log.Fatal("Failed to open local history:", err)
	}
	defer history.Close()

	st := store.New(history, store.Options{
		Key:      cfg.HistoryKey,
		Self:     me.Name,
		Location: time.Local,
		Notifier: notify.NewTerminal(os.Stdout, true),
	})
	out := &printer{w: os.Stdout}
	st.Subscribe(out.update)

	comp := composer.New(ids, composer.Options{
		Invites: invite.Generator{Location: time.Local},
	})
	hubURL := hashing.NewRing(hashing.DefaultReplicas, cfg.HubURLs...).Get(me.Name)
	app := client.New(st, comp, session.Options{URL: hubURL, Room: cfg.Room})
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		log.Printf("[CLIENT] Offline: %v (use /reconnect)", err)
	}

	fmt.Printf("Signed in as %s. Type /help for commands.\n", me.Name)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var err error
		switch cmd {
		case "/help":
			fmt.Println(help)
		case "/quit":
			return
		case "/status":
			if app.Connected() {
				fmt.Println("🟢 online")
			} else {
				fmt.Println("🔴 offline")
			}
		case "/reconnect":
			err = app.Start(ctx)
		case "/history":
			for _, g := range st.Groups() {
				fmt.Printf("── %s ──\n", g.Label())
				for _, m := range g.Messages {
					fmt.Println(render(m))
				}
			}
		case "/file":
			_, err = app.ShareFile(ctx, rest)
		case "/event":
			f := fields(rest, 3)
			_, err = app.ShareEvent(ctx, protocol.EventShare{Title: f[0], Description: f[1], ImageURI: f[2]})
		case "/meeting":
			f := fields(rest, 5)
			_, err = app.ShareMeeting(ctx, protocol.Meeting{
				Title:       f[0],
				StartDate:   f[1],
				EndDate:     f[2],
				Location:    f[3],
				MeetingLink: f[4],
				Organizer:   me.Name,
			})
		default:
			_, err = app.SendText(ctx, line)
		}

		if err != nil {
			fmt.Printf("⚠️  %v\n", err)
		}
	}
}
