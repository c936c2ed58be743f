package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/memory"
	"github.com/tutumagi/soul/metrics"
	"github.com/tutumagi/soul/monitor"
	"github.com/tutumagi/soul/persona"
	"github.com/tutumagi/soul/scheduler"
	"github.com/tutumagi/soul/world"
	"go.uber.org/zap"
)

const serverType = "soulsim"

func main() {
	configPath := flag.String("config", "", "config file (yaml, toml or json)")
	ticks := flag.Int("ticks", 0, "number of ticks to run, 0 runs until interrupted")
	servePersona := flag.Bool("serve-persona", false, "answer persona requests on nats with the offline heuristic")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %q: %v\n", *configPath, err)
		os.Exit(1)
	}
	logger.Init(serverType, cfg.Viper())
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporters := configureMetrics(cfg)

	if *servePersona {
		sub, err := startPersonaServer(cfg.Persona())
		if err != nil {
			logger.Fatal("failed to start persona server", zap.Error(err))
		}
		defer func() { _ = sub.Unsubscribe() }()
	}

	sink, err := memory.NewSink(cfg.Memory(), reporters...)
	if err != nil {
		logger.Fatal("failed to open memory sink", zap.String("sink", cfg.Memory().Sink), zap.Error(err))
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn("close memory sink", zap.Error(err))
		}
	}()

	client, err := persona.NewClient(cfg.Persona(), reporters...)
	if err != nil {
		logger.Fatal("failed to create persona client", zap.String("driver", cfg.Persona().Driver), zap.Error(err))
	}
	defer client.Close()

	sched := scheduler.New(cfg.Scheduler(), scheduler.WithReporters(reporters...))
	defer sched.Close()

	opts := []world.Option{world.WithSink(sink), world.WithReporters(reporters...)}
	if mc := cfg.Monitor(); mc.Enabled {
		hub := monitor.NewHub()
		opts = append(opts, world.WithListener(hub.Publish))
		go func() {
			if err := monitor.ListenAndServe(ctx, mc.Addr, hub); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("monitor stopped", zap.Error(err))
			}
		}()
	}

	w, err := buildDemo(cfg, sched, client, opts...)
	if err != nil {
		logger.Fatal("failed to build the demo world", zap.Error(err))
	}
	logger.Info("simulation started",
		zap.Int("agents", len(w.Alive())),
		zap.Duration("tick", cfg.World().TickInterval),
		zap.String("persona", cfg.Persona().Driver))

	n := run(ctx, w, cfg.World().TickInterval, *ticks)
	logger.Info("simulation stopped", zap.Int("ticks", n), zap.Int("alive", len(w.Alive())))
}

func configureMetrics(cfg *config.Config) metrics.Reporters {
	mc := cfg.Metrics()
	constTags := cfg.GetStringMapString("soul.metrics.consttags")
	var reporters metrics.Reporters

	if mc.PrometheusEnabled {
		logger.Infof("prometheus is enabled, configuring reporter on port %d", mc.PrometheusPort)
		reporters = append(reporters, metrics.GetPrometheusReporter(mc.PrometheusPort, constTags))
	} else {
		logger.Info("prometheus is disabled, reporter will not be enabled")
	}

	if mc.StatsdEnabled {
		logger.Infof("statsd is enabled, configuring the metrics reporter with host: %s", mc.StatsdHost)
		r, err := metrics.NewStatsdReporter(mc, serverType, constTags)
		if err != nil {
			logger.Errorf("failed to start statsd metrics reporter, skipping %v", err)
		} else {
			reporters = append(reporters, r)
		}
	}
	return reporters
}

func startPersonaServer(cfg config.PersonaConfig) (*nats.Subscription, error) {
	conn, err := nats.Connect(cfg.NatsURL, nats.MaxReconnects(cfg.MaxRetry))
	if err != nil {
		return nil, err
	}
	sub, err := persona.Serve(conn, cfg.NatsSubject, persona.NewOfflineClient())
	if err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("persona server listening", zap.String("url", cfg.NatsURL), zap.String("subject", cfg.NatsSubject))
	return sub, nil
}

// run steps the world every interval until ctx is done or ticks ran, and
// returns the number of steps taken.
func run(ctx context.Context, w *world.World, interval time.Duration, ticks int) int {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n := 0
	for ticks <= 0 || n < ticks {
		select {
		case <-ctx.Done():
			return n
		case now := <-ticker.C:
			drivePlayer(w, n, now)
			w.Step(now)
			n++
		}
	}
	return n
}
