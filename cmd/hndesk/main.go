package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/hndesk/hndesk/internal/adapter"
	"github.com/hndesk/hndesk/internal/cache"
	"github.com/hndesk/hndesk/internal/domain"
	"github.com/hndesk/hndesk/internal/enrich"
	"github.com/hndesk/hndesk/internal/feed"
	"github.com/hndesk/hndesk/internal/hidden"
	"github.com/hndesk/hndesk/internal/hn"
	"github.com/hndesk/hndesk/internal/nav"
	"github.com/hndesk/hndesk/internal/session"
	"github.com/hndesk/hndesk/internal/store"
	"github.com/hndesk/hndesk/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	clearCache := flag.Bool("clear-cache", false, "delete the local cache and exit")
	flag.Parse()

	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting hndesk", "version", "1.0.0")

	if *clearCache {
		if err := adapter.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	}

	db, err := store.Open(adapter.GetCachePath())
	if err != nil {
		logger.Warn("persistent store unavailable, running memory-only", "error", err)
		db, err = store.Open("")
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
	}
	defer db.Close()

	metadataCache, err := cache.New[string](512, db.MetadataTier(), logger)
	if err != nil {
		return fmt.Errorf("failed to create metadata cache: %w", err)
	}
	imageCache, err := cache.New[[]byte](128, db.ImageTier(), logger)
	if err != nil {
		return fmt.Errorf("failed to create image cache: %w", err)
	}
	if n := metadataCache.ClearExpired() + imageCache.ClearExpired(); n > 0 {
		logger.Debug("swept expired cache entries", "count", n)
	}

	items := hn.NewFirebaseClient(cfg.Endpoints.Firebase, logger)
	feeds := hn.NewAlgoliaClient(cfg.Endpoints.Algolia, logger)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}

	creds := session.NewFileCredentialStore(adapter.GetCredentialsPath())
	sess := session.NewManager(cfg.Endpoints.Site, items, creds, jar, logger)
	tracker := hidden.NewTracker(cfg.Endpoints.Site, jar, logger)

	og := enrich.NewOpenGraph(metadataCache, logger)
	images := enrich.NewImages(imageCache, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := sess.RestoreSession(ctx); err != nil {
		logger.Warn("session restore failed", "error", err)
	}
	cancel()

	if args := flag.Args(); len(args) > 0 {
		return runAccountCommand(args, sess, tracker, logger)
	}

	if sess.IsLoggedIn() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if err := tracker.SyncFromServer(ctx, sess.Username()); err != nil {
				logger.Warn("hidden sync failed", "error", err)
			}
		}()
	}

	defaultView := domain.ViewMode(cfg.Preferences.DefaultView)
	switch defaultView {
	case domain.ViewPost, domain.ViewComments, domain.ViewBoth:
	default:
		defaultView = domain.ViewBoth
	}

	engine := feed.NewEngine(feeds, db, sess, defaultView, logger)
	navctl := nav.NewController(engine)

	model := tui.NewModel(engine, navctl, tracker, sess, og, images)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

// runAccountCommand handles the non-TUI account subcommands: login, logout,
// create-account, reset-password.
func runAccountCommand(args []string, sess *session.Manager, tracker *hidden.Tracker, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch args[0] {
	case "login":
		username, password, err := promptCredentials()
		if err != nil {
			return err
		}
		if err := sess.Login(ctx, username, password); err != nil {
			return fmt.Errorf("login failed: %s", sess.LoginError())
		}
		fmt.Printf("✓ Logged in as %s (karma %d)\n", sess.Username(), sess.Karma())

		// Pull the server's hidden list so the local view starts in sync.
		if err := tracker.SyncFromServer(ctx, sess.Username()); err != nil {
			logger.Warn("hidden sync failed", "error", err)
		} else {
			fmt.Printf("✓ Synced %d hidden items\n", tracker.Len())
		}
		return nil

	case "create-account":
		username, password, err := promptCredentials()
		if err != nil {
			return err
		}
		if err := sess.CreateAccount(ctx, username, password); err != nil {
			return fmt.Errorf("account creation failed: %s", sess.LoginError())
		}
		fmt.Printf("✓ Account created, logged in as %s\n", sess.Username())
		return nil

	case "logout":
		tracker.ClearOnLogout()
		if err := sess.Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("✓ Logged out")
		return nil

	case "reset-password":
		fmt.Print("Username: ")
		reader := bufio.NewReader(os.Stdin)
		username, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		if err := sess.ResetPassword(ctx, strings.TrimSpace(username)); err != nil {
			return fmt.Errorf("reset failed: %s", sess.ResetError())
		}
		fmt.Println("✓ Reset email requested, check your inbox")
		return nil
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

func promptCredentials() (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}

	return strings.TrimSpace(username), string(password), nil
}
