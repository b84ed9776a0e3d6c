package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/wayfare-social/wayfare-chat/cmd/wayfare-chat/internal"
	"github.com/wayfare-social/wayfare-chat/pkg/client"
	"github.com/wayfare-social/wayfare-chat/pkg/conversation"
	"github.com/wayfare-social/wayfare-chat/pkg/logger"
	"github.com/wayfare-social/wayfare-chat/pkg/session"
)

func chatCmd(peer, group string, debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("🔍 Debug mode enabled")
	}

	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Chat.ServerURL == "" {
		return errors.New("chat server URL is not configured (WAYFARE_CHAT_URL)")
	}

	sess, err := session.Load(internal.GetConfigDir())
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return errors.New("not logged in; run: wayfare-chat login <user-id>")
		}
		return err
	}

	svc := client.NewService(cfg, sess)
	defer svc.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("starting connection: %w", err)
	}

	printer := newMessagePrinter(sess.UserID)
	opt := conversation.WithUpdateFunc(printer.flush)

	var binding *conversation.Binding
	var title string
	if group != "" {
		binding = svc.OpenGroup(ctx, group, opt)
		title = "group " + group
	} else {
		binding = svc.OpenDirect(ctx, peer, opt)
		title = peer
	}
	printer.setBinding(binding)
	defer svc.CloseConversation(binding)

	fmt.Printf("%s Conversation with %s (Ctrl+C to leave)\n\n", internal.Logo, title)
	interactiveLoop(binding, svc, peer)
	return nil
}

func interactiveLoop(binding *conversation.Binding, svc *client.Service, peer string) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".wayfare_chat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nLeaving conversation")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Leaving conversation")
			return
		}
		if input == "/status" {
			fmt.Printf("connection: %s", svc.State())
			if peer != "" {
				fmt.Printf(" | %s online: %v", peer, svc.Presence.IsOnline(peer))
			}
			fmt.Println()
			continue
		}

		if _, err := binding.Send(input); err != nil {
			fmt.Printf("✗ Send failed (%v) — message kept, resend manually\n", err)
		}
	}
}

// messagePrinter prints entries it has not shown yet. The update callback
// runs on the transport goroutine, so printing is serialized here.
type messagePrinter struct {
	mu      sync.Mutex
	self    string
	binding *conversation.Binding
	printed map[string]struct{}
}

func newMessagePrinter(self string) *messagePrinter {
	return &messagePrinter{self: self, printed: make(map[string]struct{})}
}

func (p *messagePrinter) setBinding(b *conversation.Binding) {
	p.mu.Lock()
	p.binding = b
	p.mu.Unlock()
	p.flush()
}

func (p *messagePrinter) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.binding == nil {
		return
	}
	for _, e := range p.binding.Messages() {
		if e.Status != conversation.Confirmed || e.SenderID == p.self {
			continue
		}
		key := e.ID
		if key == "" {
			key = e.ClientID
		}
		if _, done := p.printed[key]; done {
			continue
		}
		p.printed[key] = struct{}{}
		name := e.SenderName
		if name == "" {
			name = e.SenderID
		}
		fmt.Printf("\r%s: %s\n> ", name, e.Content)
	}
}
