package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"yieldpool/internal/boltstore"
	"yieldpool/internal/config"
	"yieldpool/internal/database"
	"yieldpool/internal/entropy"
	"yieldpool/internal/handlers"
	"yieldpool/internal/notifier"
	"yieldpool/internal/repositories"
	"yieldpool/internal/schedulers"
	"yieldpool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

var log = config.InitLogger()

func main() {
	app := &cli.App{
		Name:  "yieldpool",
		Usage: "escrow, burn and reward pool ledger",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background jobs",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply postgres migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back the last migration"},
				},
				Action: migrateDB,
			},
			{
				Name:   "draw",
				Usage:  "run the monthly lottery draw once",
				Action: draw,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// deps holds everything opened for one command; closers run in reverse order.
type deps struct {
	cfg     *config.Config
	ledger  *services.Ledger
	closers []func() error
}

func (a *deps) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("Failed to close resource: ", err)
		}
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.SetLogLevel(cfg.AppLogLevel); err != nil {
		log.Warn("Invalid log level, keeping default: ", err)
	}
	return cfg, nil
}

func openStore(a *deps) (services.Store, error) {
	switch a.cfg.StoreDriver {
	case config.StoreDriverBolt:
		st, err := boltstore.Open(a.cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		log.Infoln("Bolt store opened:", a.cfg.BoltPath)
		return st, nil
	default:
		psql, err := database.NewPostgres(&a.cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, psql.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := psql.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := database.Migrate(psql.Db); err != nil {
			return nil, err
		}
		log.Infoln("Database initialized")
		return repositories.NewStore(psql.Db, repositories.WithIsolation(sql.LevelSerializable)), nil
	}
}

func openBus(ctx context.Context, a *deps) *notifier.Bus {
	bus := notifier.NewBus(notifier.LogPublisher{})

	if a.cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, events will not be published there: ", err)
		} else {
			a.closers = append(a.closers, rdb.Close)
			bus.Add(notifier.NewRedisPublisher(rdb, a.cfg.RedisEventsChannel))
		}
	}

	if a.cfg.TelegramBotToken != "" {
		tg, err := notifier.DialTelegram(a.cfg.TelegramBotToken, a.cfg.TelegramChatId, a.cfg.Ledger.DepositToken)
		if err != nil {
			log.Warn("Telegram unavailable, notifications disabled: ", err)
		} else {
			bus.Add(tg)
		}
	}

	return bus
}

func openLedger(ctx context.Context) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &deps{cfg: cfg}

	params, err := services.ParamsFromConfig(&cfg.Ledger)
	if err != nil {
		return nil, err
	}

	st, err := openStore(a)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []services.Option{services.WithPublisher(openBus(ctx, a))}
	if cfg.TonEntropyEnabled {
		src, err := entropy.DialTon(ctx, cfg.TonConfigURL)
		if err != nil {
			log.Warn("TON entropy unavailable, draws use ledger state only: ", err)
		} else {
			opts = append(opts, services.WithEntropy(src))
		}
	}

	ledger, err := services.NewLedger(st, params, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ledger = ledger
	return a, nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler, err := schedulers.NewScheduler(a.cfg, a.ledger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.AppLogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHTTPHandler(a.ledger, a.cfg.AdminToken).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infoln("HTTP server listening on", a.cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateDB(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations only apply to the postgres store")
	}

	psql, err := database.NewPostgres(&cfg.Postgres)
	if err != nil {
		return err
	}
	defer psql.Close()

	if c.Bool("down") {
		return database.Rollback(psql.Db)
	}
	return database.Migrate(psql.Db)
}

func draw(c *cli.Context) error {
	a, err := openLedger(c.Context)
	if err != nil {
		return err
	}
	defer a.Close()

	receipt, err := a.ledger.Lottery.RunMonthlyDraw(c.Context, schedulers.Caller)
	if err != nil {
		return err
	}
	for _, e := range receipt.Events {
		log.WithField("type", e.Type).WithField("account", e.Account).Info("Draw event, amount ", e.Amount.Decimal())
	}
	return nil
}
