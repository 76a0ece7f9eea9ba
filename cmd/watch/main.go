// Package main is a terminal client for watching a live shopping
// session: it joins the realtime channel, prints chat and showcase
// activity, and accepts chat input and slash commands on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/config"
	"github.com/sharat789/steam-bazaar-fev2/internal/api"
	"github.com/sharat789/steam-bazaar-fev2/internal/reactions"
	"github.com/sharat789/steam-bazaar-fev2/internal/realtime"
	"github.com/sharat789/steam-bazaar-fev2/internal/session"
)

func main() {
	sessionID := flag.String("session", "demo-session", "session id to watch")
	userID := flag.Int64("user", 0, "viewer user id (0 = anonymous)")
	userName := flag.String("name", "", "viewer display name")
	asCreator := flag.Bool("creator", false, "enable stream controls")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	client := api.NewClient(cfg.API.BaseURL, logger)
	channel := realtime.NewChannel(cfg.Realtime.URL, logger)
	overlay := reactions.NewOverlay(reactions.DefaultTTL, logger)
	viewer := realtime.Viewer{UserID: *userID, UserName: *userName}

	p := &printer{}
	var view *session.View
	view = session.NewView(client, channel, overlay, viewer, session.Options{
		Creator:  *asCreator,
		OnChange: func() { p.render(view) },
	}, logger)

	ctx := context.Background()
	if err := view.Load(ctx, *sessionID); err != nil {
		logger.Fatal("load session", zap.Error(err))
	}
	if view.Phase() == session.PhaseFailed {
		logger.Fatal("session unavailable", zap.Error(view.LoadErr()))
	}
	printHeader(view)

	go readInput(ctx, view)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	view.Close()
	fmt.Println("\nbye")
}

// printer diffs view snapshots on each change notification and prints
// only what is new, so the terminal reads as a rolling activity feed.
type printer struct {
	mu          sync.Mutex
	chatSeen    int
	viewerCount int
	showcaseID  string
	overlaySeen map[string]bool
	trendingKey string
}

func (p *printer) render(v *session.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chat := v.Chat()
	for _, m := range chat[min(p.chatSeen, len(chat)):] {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04:05"), m.UserName, m.Message)
	}
	p.chatSeen = len(chat)

	if n := v.ViewerCount(); n != p.viewerCount {
		p.viewerCount = n
		fmt.Printf("  viewers: %d\n", n)
	}

	if p.overlaySeen == nil {
		p.overlaySeen = make(map[string]bool)
	}
	for _, inst := range v.Overlay().Active() {
		if !p.overlaySeen[inst.ID] {
			p.overlaySeen[inst.ID] = true
			fmt.Printf("  %s\n", reactions.Emoji(inst.Type))
		}
	}

	id := v.ActiveProductID()
	if id != p.showcaseID {
		p.showcaseID = id
		if id == "" {
			fmt.Println("  showcase cleared")
		} else if prod := v.ActiveProduct(); prod != nil {
			fmt.Printf("  ★ now showing: %s ($%.2f)\n", prod.Name, prod.Price)
		} else {
			fmt.Printf("  ★ now showing: %s\n", id)
		}
	}

	if tr := v.Trending(); tr != nil {
		key := fmt.Sprintf("%v", tr.Trending)
		if key != p.trendingKey {
			p.trendingKey = key
			for _, t := range tr.Trending {
				fmt.Printf("  #%d %s (%d clicks)\n", t.Rank, t.ProductName, t.ClickCount)
			}
		}
	}

	if b := v.Banner(); b != "" {
		fmt.Printf("  ! %s\n", b)
	}
}

func printHeader(v *session.View) {
	s := v.Session()
	if s == nil {
		return
	}
	fmt.Printf("── %s by %s [%s]\n", s.Title, s.Creator.Username, s.Status)
	for _, p := range s.Products {
		fmt.Printf("   · %s ($%.2f)\n", p.Name, p.Price)
	}
}

func readInput(ctx context.Context, view *session.View) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/react "):
			if !view.React(strings.TrimPrefix(line, "/react ")) {
				fmt.Println("  ! not connected")
			}
		case strings.HasPrefix(line, "/showcase"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/showcase"))
			if !view.Showcase(id) {
				fmt.Println("  ! showcase rejected")
			}
		case strings.HasPrefix(line, "/click "):
			if !view.ClickProduct(strings.TrimPrefix(line, "/click ")) {
				fmt.Println("  ! click rejected (sign in first)")
			}
		case line == "/start":
			if err := view.StartStream(ctx); err != nil {
				fmt.Printf("  ! %v\n", err)
			}
		case line == "/end":
			if err := view.EndStream(ctx); err != nil {
				fmt.Printf("  ! %v\n", err)
			}
		default:
			if !view.SendMessage(line) {
				fmt.Println("  ! message rejected (sign in first)")
			}
		}
	}
}
