package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"homescout-engine/internal/config"
	"homescout-engine/internal/extract"
	"homescout-engine/internal/gmaps"
	"homescout-engine/internal/logging"
	"homescout-engine/internal/mailscan"
	"homescout-engine/internal/notify"
	"homescout-engine/internal/report"
	"homescout-engine/internal/run"
	"homescout-engine/internal/scheduler"
	"homescout-engine/internal/scout"
	"homescout-engine/internal/secrets"
	"homescout-engine/internal/store"
)

func main() {
	specificAddress := flag.String("specific-address", "", "scout one address and print it, skipping email")
	printOnly := flag.Bool("print-only", false, "print the report instead of emailing it")
	forceRun := flag.Bool("force-run", false, "run even if a run completed recently")
	daemon := flag.Bool("daemon", false, "keep running on the configured interval")
	configPath := flag.String("config", "", "path to config.yml (default: <data_dir>/config.yml)")
	flag.Parse()

	log := logging.NewStderr()

	if err := godotenv.Load(); err != nil {
		log.Infof("[main] no .env file found, using system env vars")
	}

	dataDir := os.Getenv("HOMESCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Errorf("[main] data dir: %v", err)
		os.Exit(1)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			log.Errorf("[main] config bootstrap failed: %v", err)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Errorf("[main] config load failed (%s): %v", cfgPath, err)
		os.Exit(1)
	}
	if cfg.App.DataDir == "." {
		cfg.App.DataDir = dataDir
	}
	if err := config.Validate(cfg); err != nil {
		log.Errorf("[main] %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiKey, err := secrets.Get("google-api-key", cfg.Google.APIKeyEnv)
	if err != nil {
		log.Errorf("[main] google api key: %v", err)
		os.Exit(1)
	}

	maps := gmaps.NewClient(apiKey, cfg.Google.RequestsPerSecond, cfg.Google.Burst, cfg.CallTimeout())
	evaluator := scout.NewEvaluator(
		maps,
		scout.NewShopFinder(maps, maps),
		cfg.DomainConstraints(),
		log,
		cfg.Scout.MaxParallelListings,
	)

	// Scouting one ad-hoc address needs no mail source, lock or storage.
	if *specificAddress != "" {
		loc, err := evaluator.ScoutAddress(ctx, *specificAddress)
		if err != nil {
			log.Errorf("[main] scouting %s: %v", *specificAddress, err)
			os.Exit(1)
		}
		fmt.Println(report.RenderLocation(*loc))
		return
	}

	// One batch at a time, across processes.
	lock := flock.New(filepath.Join(cfg.App.DataDir, "scout.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Errorf("[main] run lock: %v", err)
		os.Exit(1)
	}
	if !locked {
		log.Infof("[main] another run is in progress, exiting")
		return
	}
	defer lock.Unlock()

	db, err := store.Open(filepath.Join(cfg.App.DataDir, "homescout.db"))
	if err != nil {
		log.Errorf("[main] storage: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	source, cleanup, err := buildMailSource(ctx, cfg)
	if err != nil {
		log.Errorf("[main] mail source: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	var mailer *notify.Mailer
	if cfg.Notify.Enabled {
		password, err := secrets.Get("smtp:"+cfg.Notify.From, "GMAIL_APP_PASSWORD")
		if err != nil {
			log.Errorf("[main] smtp password: %v", err)
			os.Exit(1)
		}
		mailer = notify.NewMailer(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.From, password, log)
	}

	pipeline := &run.Pipeline{
		Cfg:       cfg,
		Source:    source,
		Scanner:   extract.NewScanner(log),
		Evaluator: evaluator,
		DB:        db,
		Mailer:    mailer,
		Log:       log,
	}
	opts := run.Options{PrintOnly: *printOnly, Force: *forceRun}

	if *daemon {
		interval := time.Duration(cfg.App.DaemonSeconds) * time.Second
		if interval <= 0 {
			interval = time.Hour
		}
		scheduler.Every(ctx, interval, "scout", log, func(ctx context.Context) error {
			return pipeline.RunOnce(ctx, opts)
		})
		return
	}

	if err := pipeline.RunOnce(ctx, opts); err != nil {
		log.Errorf("[main] run failed: %v", err)
		os.Exit(1)
	}
}

func buildMailSource(ctx context.Context, cfg config.Config) (mailscan.Source, func(), error) {
	switch cfg.Mail.Provider {
	case "imap":
		password, err := secrets.Get("imap:"+cfg.Mail.IMAP.Username, "IMAP_PASSWORD")
		if err != nil {
			return nil, nil, err
		}
		src := &mailscan.IMAPSource{
			Addr:     fmt.Sprintf("%s:%d", cfg.Mail.IMAP.Host, cfg.Mail.IMAP.Port),
			Username: cfg.Mail.IMAP.Username,
			Password: password,
			Mailbox:  cfg.Mail.IMAP.Mailbox,
		}
		return src, src.Close, nil
	default: // gmail
		src, err := mailscan.NewGmailSource(ctx,
			cfg.Mail.Gmail.CredentialsFile, cfg.Mail.Gmail.TokenFile, cfg.Mail.Gmail.DeliveredTo)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
}
