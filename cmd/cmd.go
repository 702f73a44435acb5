package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/urfave/cli/v2"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/infra/pubsub"
	"github.com/webitel/admin-notify-service/infra/telemetry"
	pubsubadapter "github.com/webitel/admin-notify-service/internal/adapter/pubsub"
	"github.com/webitel/admin-notify-service/internal/client/alert"
	"github.com/webitel/admin-notify-service/internal/client/dashboard"
	"github.com/webitel/admin-notify-service/internal/client/inbox"
	"github.com/webitel/admin-notify-service/internal/client/session"
	"github.com/webitel/admin-notify-service/internal/client/stream"
	"github.com/webitel/admin-notify-service/internal/client/transport"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"golang.org/x/sync/errgroup"
)

const (
	ServiceName      = "admin-notify-service"
	ServiceNamespace = "webitel"
)

var (
	version = "0.0.0"
	commit  = "hash"
)

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Live administrator notifications for vehicle rental and sale",
		Version: version + " (" + commit + ")",
		Commands: []*cli.Command{
			serverCmd(),
			watchCmd(),
			emitCmd(),
		},
	}

	return app.Run(os.Args)
}

// [FLAGS] every command hands its raw args to config.Load so flags, env and file share one schema.
func serverCmd() *cli.Command {
	return &cli.Command{
		Name:            "server",
		Aliases:         []string{"s"},
		Usage:           "Run the notification stream server",
		ArgsUsage:       "[--config_file path] [--address :8080] [--grpc_address :9090]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.Args().Slice())
			if err != nil {
				return err
			}
			if cfg.Service.Version == "0.0.0" {
				cfg.Service.Version = version
			}
			app := NewApp(cfg)

			startCtx, cancel := context.WithTimeout(c.Context, cfg.Service.ShutdownTimeout)
			defer cancel()
			if err := app.Start(startCtx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:            "watch",
		Aliases:         []string{"w"},
		Usage:           "Follow live notifications as an administrator",
		ArgsUsage:       "--server_url http://host:8080 --token <session> [--transport sse|ws] [--headless]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.Args().Slice())
			if err != nil {
				return err
			}
			return watch(c.Context, cfg)
		},
	}
}

func watch(ctx context.Context, cfg *config.Config) error {
	cl := cfg.Client

	// the dashboard owns stdout; logs go to a file or nowhere
	var logOut io.Writer = os.Stdout
	if !cl.Headless {
		logOut = io.Discard
		if cl.LogFile != "" {
			f, err := os.OpenFile(cl.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			logOut = f
		}
	}
	logger := telemetry.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format, nil, ServiceName)

	dialer, err := transport.New(transport.Config{
		ServerURL: cl.ServerURL,
		Token:     cl.Token,
		Transport: cl.Transport,
	})
	if err != nil {
		return err
	}

	player, err := alert.NewPlayer(cl)
	if err != nil {
		return err
	}
	trigger := alert.NewTrigger(player, alert.Config{
		Sound:           alert.Sound{Path: cl.SoundPath, Volume: cl.Volume},
		PlaybackTimeout: cl.PlaybackTimeout,
	}, logger)
	defer trigger.Close()

	box := inbox.New(inbox.Config{
		Capacity:      cl.DedupCapacity,
		MaxAge:        cl.DedupMaxAge,
		RetryInterval: cl.RetryInterval,
	}, inbox.WithLogger(logger))

	status := dashboard.NewStatus()
	sess := session.New(dialer, box, trigger, stream.Config{
		RetryInterval:    cl.RetryInterval,
		MaxRetryInterval: cl.MaxRetryInterval,
		LivenessTimeout:  cl.LivenessTimeout,
		WarnAfter:        cl.WarnAfter,
	}, logger, status.Hooks()...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return sess.Run(ctx)
	})
	if !cl.Headless {
		g.Go(func() error {
			// quitting the dashboard ends the session
			defer cancel()
			return dashboard.New(box, status, cl.ServerURL).Run(ctx)
		})
	}
	return g.Wait()
}

func emitCmd() *cli.Command {
	return &cli.Command{
		Name:            "emit",
		Usage:           "Publish one notification through the broker",
		ArgsUsage:       "--kind SYSTEM|RESERVATION_CREATED|RESERVATION_UPDATED --payload '{...}' [--id <id>]",
		SkipFlagParsing: true,
		Action: func(c *cli.Context) error {
			fs := pflag.NewFlagSet("emit", pflag.ContinueOnError)
			kind := fs.String("kind", event.System.String(), "Notification kind")
			payload := fs.String("payload", "{}", "JSON payload")
			id := fs.String("id", "", "Notification id (generated when empty)")

			cfg, err := config.Load(c.Args().Slice(), fs)
			if err != nil {
				return err
			}
			if cfg.Broker.Driver != pubsub.DriverAMQP {
				return errors.New("emit requires broker.driver=amqp: the memory broker lives inside the server process")
			}

			k, err := event.ParseKind(*kind)
			if err != nil {
				return err
			}
			n := event.NewNotification(k, json.RawMessage(*payload))
			if *id != "" {
				n.ID = *id
			}

			logger := telemetry.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format, nil, ServiceName)
			factory, err := pubsub.NewFactory(cfg, pubsub.NewWatermillLogger(logger))
			if err != nil {
				return err
			}
			defer factory.Close()

			pub, err := factory.Publisher()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()
			if err := pubsubadapter.NewEventDispatcher(pub, logger).Publish(ctx, n); err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.App.Writer, n.ID)
			return err
		},
	}
}
