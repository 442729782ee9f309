package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/config"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/htb"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/ledger"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/notify"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reconcile"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/reset"
	"github.com/UniversityOfAthens/HTB-Progress-Tracker/internal/store"
)

// app is the wiring every command shares: config, data file, ledger,
// API client, and the configured notification sink.
type app struct {
	cfg      config.Config
	ledger   *ledger.Ledger
	feed     *htb.Client
	notifier notify.Notifier
	log      *zap.Logger
}

// buildApp loads the config and the data file and wires the core.
// Console output is used for notifications unless a webhook is set.
func buildApp(log *zap.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	st := store.NewFile(cfg.Store.Path, log)
	users, lastReset, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Store.Path, err)
	}

	var notifier notify.Notifier
	if cfg.Discord.WebhookURL != "" {
		notifier = notify.NewWebhook(cfg.Discord.WebhookURL, log)
	} else {
		notifier = notify.NewConsole(os.Stdout)
	}

	return &app{
		cfg:      cfg,
		ledger:   ledger.New(users, lastReset, st),
		feed:     htb.New(cfg.HTB.APIURL, cfg.HTB.Token, log),
		notifier: notifier,
		log:      log,
	}, nil
}

func (a *app) goals() reset.Goals { return a.cfg.GoalSet() }

func (a *app) engine() *reset.Engine {
	return reset.NewEngine(a.ledger, a.goals(), a.log)
}

func (a *app) reconcileJob() *reconcile.Job {
	return reconcile.New(a.ledger, a.feed, a.log)
}

func (a *app) pollInterval() time.Duration {
	return time.Duration(a.cfg.Poll.Interval)
}

// fatal prints the error the way every subcommand reports failures.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
