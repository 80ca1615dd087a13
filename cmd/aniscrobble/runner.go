package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shurizzle/aniscrobble/internal/anilist"
	"github.com/shurizzle/aniscrobble/internal/config"
	"github.com/shurizzle/aniscrobble/internal/daemon"
	"github.com/shurizzle/aniscrobble/internal/domain"
	"github.com/shurizzle/aniscrobble/internal/service"
	"github.com/shurizzle/aniscrobble/internal/store"
	"github.com/urfave/cli/v3"
)

// Runner holds the collaborators shared by all commands.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

func (r *Runner) openStore() (*store.Store, error) {
	return store.Open(r.cfg.Database.Dir)
}

func (r *Runner) tracker() domain.Tracker {
	return anilist.NewClient(r.cfg.API.Endpoint, r.logger)
}

// Login runs the implicit-grant flow: open the authorization URL in the
// browser and read the resulting token from stdin until one validates.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	accounts := service.NewAccountService(st, r.tracker(), r.logger)

	if cmd.Bool("force") {
		if err := accounts.Logout(); err != nil {
			return err
		}
	}
	if acct, err := accounts.Current(); err != nil {
		return err
	} else if acct != nil {
		fmt.Fprintln(os.Stderr, "Already logged in")
		return nil
	}

	loginURL := r.cfg.API.LoginURL()
	if err := openBrowser(loginURL); err != nil {
		fmt.Printf("Please open %s in your browser and paste the given token here.\n", loginURL)
	} else {
		fmt.Printf("Paste here the token from your browser, or manually open %s.\n", loginURL)
	}

	scanner := bufio.NewScanner(os.Stdin)
	// Tokens are long JWTs, well past the default scanner buffer.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("token> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return errors.New("no token provided")
		}
		token := strings.TrimSpace(scanner.Text())
		if token == "" {
			continue
		}

		if _, err := accounts.Login(ctx, token); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid token: %v\n", err)
			continue
		}
		fmt.Println("Logged in.")
		return nil
	}
}

func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	return service.NewAccountService(st, r.tracker(), r.logger).Logout()
}

// Track records a watched episode, then syncs inline, in the background, or
// not at all depending on the flags.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
	id, err := parseUintArg(cmd, "media-id")
	if err != nil {
		return err
	}
	episode, err := parseUintArg(cmd, "episode")
	if err != nil {
		return err
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	if err := service.NewScrobbleService(st, r.logger).Track(id, episode); err != nil {
		st.Close()
		return err
	}

	switch {
	case cmd.Bool("local-only"):
		return st.Close()

	case cmd.Bool("background"):
		// The child opens the database itself; release it first so the
		// sync transaction does not have to wait on us.
		if err := st.Close(); err != nil {
			return err
		}
		return daemon.Spawn("sync")

	default:
		defer st.Close()
		return r.runSync(ctx, st)
	}
}

func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	return r.runSync(ctx, st)
}

// runSync drains the queue once. Per-entry remote failures are diagnostics,
// not a failed run.
func (r *Runner) runSync(ctx context.Context, st *store.Store) error {
	res, err := service.NewSyncService(st, r.tracker(), r.logger).Run(ctx)
	if err != nil {
		return err
	}
	if res.Reconciled > 0 {
		fmt.Printf("Reconciled %d entries.\n", res.Reconciled)
	}
	if res.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d entries could not be reconciled and remain queued.\n", res.Failed)
	}
	return nil
}

func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	acct, err := st.Login()
	if err != nil {
		return err
	}
	if acct == nil {
		fmt.Println("Not logged in.")
	} else {
		fmt.Printf("Logged in as user %d.\n", acct.UserID)
	}

	pending, err := st.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("Nothing pending.")
		return nil
	}

	fmt.Printf("%d entries pending:\n", len(pending))
	for _, id := range pending {
		episode, ok, err := st.Progress(id)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("  %d  episode %d\n", id, episode)
		} else {
			fmt.Printf("  %d  (no local progress)\n", id)
		}
	}
	return nil
}

func parseUintArg(cmd *cli.Command, name string) (uint64, error) {
	raw := cmd.StringArg(name)
	if raw == "" {
		return 0, fmt.Errorf("missing required argument %q", name)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// openBrowser opens the default system browser at the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
