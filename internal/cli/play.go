package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mindmaze-client/internal/app"
	"mindmaze-client/internal/config"
	"mindmaze-client/internal/domain"
	"mindmaze-client/internal/infra/memory"
	redisstore "mindmaze-client/internal/infra/redis"
	"mindmaze-client/internal/transport/httpapi"
	"mindmaze-client/internal/transport/ws"
)

// NewPlayCmd builds the interactive play subcommand.
func NewPlayCmd(configPath, apiFlag *string) *cobra.Command {
	var (
		username string
		password string
		signup   bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Log in and play realtime trivia",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, *apiFlag, username, password, signup)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username to log in with")
	cmd.Flags().StringVar(&password, "password", "", "password to log in with")
	cmd.Flags().BoolVar(&signup, "signup", false, "create the account instead of logging in")
	return cmd
}

func runPlay(ctx context.Context, configPath, apiFlag, username, password string, signup bool) error {
	d, err := buildDeps(configPath, apiFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store app.SessionStore = memory.NewSessionStore()
	if d.redis != nil {
		ttl := config.TTLDuration(d.cfg.Redis.TTL, 24*time.Hour)
		store = redisstore.NewSessionStore(d.redis, ttl)
	}

	boardTTL := config.TTLDuration(d.cfg.Leaderboard.TTL, 15*time.Second)
	fetcher := httpapi.NewCachedFetcher(d.api, boardTTL)

	dialer := ws.NewDialer(d.cfg.WSBase(), d.log)
	dial := func(ctx context.Context, username string) (app.Channel, error) {
		return dialer.Dial(ctx, username)
	}

	ctrl := app.NewController(dial, store, fetcher, clockwork.NewRealClock(), d.log)

	// Explicit credentials replace whatever session was persisted.
	if username != "" {
		var identity domain.Identity
		if signup {
			identity, err = d.api.Signup(ctx, httpapi.Profile{Username: username, Password: password})
		} else {
			identity, err = d.api.Login(ctx, httpapi.Credentials{Username: username, Password: password})
		}
		if err != nil {
			return err
		}
		ctrl.Login(identity)
	}

	listCategories := func() {
		cats, err := d.api.Categories(ctx)
		if err != nil {
			fmt.Printf("categories unavailable: %v\n", err)
			return
		}
		for _, c := range cats {
			fmt.Printf("  %d: %s\n", c.ID, c.Name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })
	g.Go(func() error { return renderLoop(ctx, ctrl) })
	g.Go(func() error {
		defer stop()
		return inputLoop(ctx, ctrl, listCategories)
	})
	return g.Wait()
}

// inputLoop reads player commands from stdin and posts them as actions.
func inputLoop(ctx context.Context, ctrl *app.Controller, listCategories func()) error {
	fmt.Println("commands: search | pick <id> | answer <text> | cancel | home | again | lb | stats | logout | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
		case "search":
			ctrl.StartSearch()
			listCategories()
		case "pick":
			id, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				fmt.Println("usage: pick <category id>")
				continue
			}
			ctrl.SelectCategory(id)
		case "answer":
			ctrl.SubmitAnswer(rest)
		case "cancel":
			ctrl.CancelSearch()
		case "home":
			ctrl.ReturnHome()
		case "again":
			ctrl.PlayAgain()
		case "lb":
			ctrl.RefreshLeaderboard()
		case "stats":
			ctrl.RefreshStats()
		case "logout":
			ctrl.Logout()
		case "quit", "exit":
			return nil
		default:
			fmt.Printf("unknown command %q\n", cmd)
		}
	}
	return scanner.Err()
}

// renderLoop prints the session whenever the snapshot changes.
func renderLoop(ctx context.Context, ctrl *app.Controller) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			line := renderSnapshot(ctrl.Snapshot())
			if line != last {
				fmt.Println(line)
				last = line
			}
		}
	}
}

func renderSnapshot(s app.Snapshot) string {
	var b strings.Builder
	if s.Identity == nil {
		b.WriteString("[logged out]")
	} else {
		fmt.Fprintf(&b, "[%s | %d pts | %s]", s.Identity.Username, s.Identity.Score, s.Conn)
	}
	switch s.View {
	case domain.ViewMenu:
		b.WriteString(" menu")
	case domain.ViewCategorySelect:
		b.WriteString(" pick a category")
	case domain.ViewWaiting:
		fmt.Fprintf(&b, " waiting %d/%d players", s.Lobby.PlayerCount, s.Lobby.MaxPlayers)
	case domain.ViewActive:
		fmt.Fprintf(&b, " Q%d/%d (%ds): %s", s.Game.QuestionIndex+1, s.Game.TotalQuestions, s.Countdown, s.Game.Question)
		switch s.Submission.Outcome {
		case domain.OutcomePending:
			b.WriteString(" [submitted]")
		case domain.OutcomeCorrect:
			fmt.Fprintf(&b, " [correct +%d]", s.Submission.Awarded)
		case domain.OutcomeIncorrect:
			fmt.Fprintf(&b, " [wrong, answer: %s]", s.Submission.CorrectAnswer)
		}
	case domain.ViewFinished:
		fmt.Fprintf(&b, " finished, winner %s", s.Game.Winner)
		for _, r := range s.Game.Results {
			fmt.Fprintf(&b, " | %s %d", r.Username, r.Score)
		}
	}
	if s.Message != "" {
		fmt.Fprintf(&b, " (%s)", s.Message)
	}
	return b.String()
}
