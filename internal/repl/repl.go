// Package repl is the interactive admin console: registration dialogue,
// per-user stats, the leaderboard, and manual reset/reconciliation
// triggers, over the same core operations the daemon uses.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reconcile"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/tracker"
)

// ErrDialogueTimeout means a registration dialogue got no reply in time.
var ErrDialogueTimeout = errors.New("dialogue timed out")

// dialogueTimeout bounds how long a registration dialogue waits for a
// reply before canceling with no partial state.
const dialogueTimeout = 10 * time.Minute

// Config wires a console.
type Config struct {
	Ledger   *ledger.Ledger
	Feed     htb.Feed
	Notifier notify.Notifier
	Engine   *reset.Engine
	Job      *reconcile.Job
	Goals    reset.Goals
}

type lineResult struct {
	line string
	err  error
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// REPL is the interactive shell. A single reader goroutine feeds lines
// to both the command loop and dialogue prompts, so reads never race.
type REPL struct {
	cfg      Config
	rl       *readline.Instance
	out      io.Writer
	lines    chan lineResult
	commands map[string]command
	order    []string

	askTimeout time.Duration
}

// New creates a console over the given wiring.
func New(cfg Config) (*REPL, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Feed == nil {
		return nil, fmt.Errorf("feed is required")
	}
	r := &REPL{cfg: cfg, out: os.Stdout, lines: make(chan lineResult), askTimeout: dialogueTimeout}
	r.registerCommands()
	return r, nil
}

func (r *REPL) registerCommands() {
	r.commands = map[string]command{
		"track": {
			usage: "track <discord-id>",
			help:  "register a member (asks for their HTB user id)",
			run:   r.cmdTrack,
		},
		"untrack": {
			usage: "untrack <discord-id>",
			help:  "stop tracking a member",
			run:   r.cmdUntrack,
		},
		"stats": {
			usage: "stats <discord-id>",
			help:  "show a member's weekly progress and streak",
			run:   r.cmdStats,
		},
		"top": {
			usage: "top",
			help:  "show the weekly leaderboard",
			run:   r.cmdTop,
		},
		"reset": {
			usage: "reset",
			help:  "run the weekly goal check and reset now",
			run:   r.cmdReset,
		},
		"reconcile": {
			usage: "reconcile",
			help:  "rebuild counters from full activity history",
			run:   r.cmdReconcile,
		},
		"help": {
			usage: "help",
			help:  "show this help",
			run:   r.cmdHelp,
		},
	}
	r.order = []string{"track", "untrack", "stats", "top", "reset", "reconcile", "help"}
}

// Run starts the shell and blocks until quit, EOF, or context cancel.
func (r *REPL) Run(ctx context.Context) error {
	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cyan("htb> "),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	r.rl = rl
	r.out = rl.Stdout()
	defer rl.Close()

	go func() {
		for {
			line, err := rl.Readline()
			select {
			case r.lines <- lineResult{line, err}:
			case <-ctx.Done():
				return
			}
			if err != nil && err != readline.ErrInterrupt {
				return
			}
		}
	}()

	fmt.Fprintln(r.out, "HTB progress tracker console. Type 'help' for commands, 'quit' to leave.")

	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-r.lines:
			if res.err == readline.ErrInterrupt {
				continue
			}
			if res.err != nil {
				if res.err == io.EOF {
					return nil
				}
				return res.err
			}

			fields := strings.Fields(res.line)
			if len(fields) == 0 {
				continue
			}
			name, args := fields[0], fields[1:]
			if name == "quit" || name == "exit" {
				return nil
			}

			cmd, ok := r.commands[name]
			if !ok {
				fmt.Fprintf(r.out, "unknown command %q, try 'help'\n", name)
				continue
			}
			if err := cmd.run(ctx, args); err != nil {
				red := color.New(color.FgRed).SprintFunc()
				fmt.Fprintf(r.out, "%s %v\n", red("error:"), err)
			}
		}
	}
}

// ask prints a question and waits up to the dialogue timeout for the
// next input line.
func (r *REPL) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintln(r.out, question)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(r.askTimeout):
		return "", ErrDialogueTimeout
	case res := <-r.lines:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}

func (r *REPL) cmdTrack(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: track <discord-id>")
	}
	discordID := args[0]

	htbID, err := r.ask(ctx, "👋 Reply with the HackTheBox user id (numbers only).")
	if err != nil {
		if errors.Is(err, ErrDialogueTimeout) {
			fmt.Fprintln(r.out, "⏰ Timed out, nothing registered.")
			return nil
		}
		return err
	}

	fmt.Fprintf(r.out, "🔍 Verifying id %s...\n", htbID)
	name, err := tracker.Register(ctx, r.cfg.Ledger, r.cfg.Feed, r.cfg.Notifier, htbID, discordID)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(r.out, "%s Tracking %s (HTB id %s).\n", green("✓"), name, htbID)
	return nil
}

func (r *REPL) cmdUntrack(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: untrack <discord-id>")
	}
	htbID, err := r.cfg.Ledger.Unregister(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "🗑️ Stopped tracking HTB id %s.\n", htbID)
	return nil
}

func (r *REPL) cmdStats(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: stats <discord-id>")
	}
	snap, ok := r.cfg.Ledger.SnapshotByOwner(args[0])
	if !ok {
		return ledger.ErrNotTracked
	}
	fmt.Fprintf(r.out, "📊 %s\n  🖥️ %d/%d machines\n  🧩 %d/%d challenges\n  🔥 %d week streak\n",
		snap.Name,
		snap.Machines, r.cfg.Goals.Machines,
		snap.Challenges, r.cfg.Goals.Challenges,
		snap.Streak)
	return nil
}

func (r *REPL) cmdTop(_ context.Context, _ []string) error {
	rows := r.cfg.Ledger.Leaderboard()
	if len(rows) == 0 {
		fmt.Fprintln(r.out, "📉 No users are being tracked yet!")
		return nil
	}

	medals := []string{"🥇", "🥈", "🥉"}
	for rank, row := range rows {
		if rank >= 10 {
			break
		}
		icon := fmt.Sprintf("#%d", rank+1)
		if rank < len(medals) {
			icon = medals[rank]
		}
		fmt.Fprintf(r.out, "%s %s  🖥️ %d  🧩 %d  |  🔥 %d\n",
			icon, row.Name, row.Machines, row.Challenges, row.Streak)
	}
	fmt.Fprintf(r.out, "Total tracked hackers: %d\n", len(rows))
	return nil
}

func (r *REPL) cmdReset(ctx context.Context, _ []string) error {
	if r.cfg.Engine == nil {
		return fmt.Errorf("reset engine not configured")
	}
	report, err := r.cfg.Engine.Perform()
	if err != nil {
		return err
	}
	console := notify.NewConsole(r.out)
	if err := console.ResetReport(ctx, report); err != nil {
		return err
	}
	if r.cfg.Notifier != nil {
		if err := r.cfg.Notifier.ResetReport(ctx, report); err != nil {
			fmt.Fprintf(r.out, "report delivery failed: %v\n", err)
		}
	}
	return nil
}

func (r *REPL) cmdReconcile(ctx context.Context, _ []string) error {
	if r.cfg.Job == nil {
		return fmt.Errorf("reconcile job not configured")
	}
	summary, err := r.cfg.Job.Run(ctx)
	if err != nil {
		return err
	}
	reconcile.PrintSummary(r.out, summary)
	return nil
}

func (r *REPL) cmdHelp(_ context.Context, _ []string) error {
	for _, name := range r.order {
		cmd := r.commands[name]
		fmt.Fprintf(r.out, "  %-22s %s\n", cmd.usage, cmd.help)
	}
	return nil
}
