package command

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Niro-Programe/Fergando-MD/internal/bot"
	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/buildinfo"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/confloader"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/shutdown"
	"github.com/Niro-Programe/Fergando-MD/internal/infra/tlsroots"
	"github.com/Niro-Programe/Fergando-MD/internal/pairing"
	"github.com/Niro-Programe/Fergando-MD/internal/server/config"
	"github.com/Niro-Programe/Fergando-MD/internal/server/httpserver"
	"github.com/Niro-Programe/Fergando-MD/internal/storage"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/logger"
	"github.com/Niro-Programe/Fergando-MD/internal/telemetry/metric"
	"github.com/Niro-Programe/Fergando-MD/internal/transport/wsbridge"
)

const (
	shutdownTimeout = 15 * time.Second
	qrPNGSize       = 320
)

// RunCommand starts the daemon in the foreground.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Connect the session and serve commands until interrupted",
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	flags, cfg, err := configFromContext(c)
	if err != nil {
		return err
	}

	log, err := initLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	info := buildinfo.Get()
	log.Info("starting fergando-md",
		"version", info.Version,
		"commit", info.Commit,
		"config", flags.ConfigFile)

	d, err := newDaemon(cfg, log, c.App.Writer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancelCause(c.Context)
	defer cancel(nil)
	d.onFatal = func(err error) { cancel(err) }

	if err := d.start(ctx, flags.ConfigFile); err != nil {
		d.shutdown.Run()
		return err
	}
	if err := d.shutdown.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	// A terminated session (logged out, replaced) is a failed run.
	if err := d.manager.Err(); err != nil {
		return err
	}
	log.Info("fergando-md stopped")
	return nil
}

// initLogger builds the process logger and installs it as the default.
func initLogger(cfg *config.Config, w io.Writer) (logger.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: w,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// daemon holds the assembled components of a run.
type daemon struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metric.Registry
	store    storage.Store
	certs    *tlsroots.Watcher
	manager  *service.SessionManager
	http     *httpserver.Server
	shutdown *shutdown.Handler

	onFatal func(error)
}

// newDaemon wires every component without starting anything.
func newDaemon(cfg *config.Config, log logger.Logger, out io.Writer) (*daemon, error) {
	slogger := log.Slog()
	d := &daemon{
		cfg:      cfg,
		log:      log,
		metrics:  metric.NewRegistry(),
		shutdown: shutdown.NewHandler(shutdownTimeout, slogger),
	}

	store, err := storage.Open(storageConfig(cfg), slogger, d.metrics.Prometheus())
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	d.store = store
	d.shutdown.OnShutdown("store", func(context.Context) error { return store.Close() })

	tlsCfg, certs, err := tlsroots.ClientConfig(tlsroots.ClientOptions{
		CAFile:   cfg.Transport.TLSCAFile,
		CertFile: cfg.Transport.TLSCertFile,
		KeyFile:  cfg.Transport.TLSKeyFile,
	}, slogger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("transport tls: %w", err)
	}
	d.certs = certs

	transport, err := wsbridge.New(transportConfig(cfg, tlsCfg), slogger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("transport: %w", err)
	}

	var presenterOpts []pairing.Option
	if cfg.Pairing.QRFile != "" {
		presenterOpts = append(presenterOpts, pairing.WithPNG(cfg.Pairing.QRFile, qrPNGSize))
	}
	presenter := pairing.NewPresenter(out, slogger, presenterOpts...)

	settings := bot.Settings{
		Name:   cfg.Bot.Name,
		Prefix: cfg.Bot.CommandPrefix,
		Mode:   cfg.Bot.Mode,
		Owners: cfg.Bot.Owners,
	}
	dispatcher := service.NewDispatcher(slogger, d.metrics)
	if err := bot.Register(dispatcher, settings); err != nil {
		store.Close()
		return nil, err
	}
	router := service.NewEventRouter(routerConfig(cfg), dispatcher, bot.NewReceiptLogger(slogger), slogger, d.metrics)
	welcomer := bot.NewWelcomer(settings, slogger)

	manager, err := service.NewSessionManager(service.ManagerDeps{
		Transport: transport,
		Store:     store,
		Policy:    service.NewReconnectPolicy(policyConfig(cfg)),
		Router:    router,
		Presenter: presenter,
		Notifier:  welcomer,
		Fatal:     service.FatalFunc(d.reportFatal),
		Logger:    slogger,
		Metrics:   d.metrics,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	welcomer.Bind(manager)
	d.manager = manager
	d.metrics.MustRegister(metric.NewCollector(manager.Snapshot))

	if cfg.HTTP.Enabled {
		d.http = httpserver.New(cfg.HTTP.Addr, httpserver.NewRouter(httpserver.RouterConfig{
			Name:    buildinfo.Name,
			Status:  manager,
			Metrics: d.metrics.Handler(),
			Logger:  slogger,
		}), slogger)
	}
	return d, nil
}

func (d *daemon) reportFatal(reason domain.DisconnectReason, err error) {
	d.log.Error("session cannot continue", "reason", reason.String(), "error", err)
	if d.onFatal != nil {
		d.onFatal(err)
	}
}

// start launches the background pieces and registers their shutdown hooks.
// Hooks run in reverse, so the session closes before the HTTP server and
// the store.
func (d *daemon) start(ctx context.Context, configFile string) error {
	if d.http != nil {
		if err := d.http.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		d.shutdown.OnShutdown("http", d.http.Shutdown)
	}

	bg, stopBG := context.WithCancel(context.WithoutCancel(ctx))
	d.shutdown.OnShutdown("watchers", func(context.Context) error {
		stopBG()
		return nil
	})
	if d.certs != nil {
		go func() {
			if err := d.certs.Run(bg); err != nil {
				d.log.Error("client certificate watcher stopped", "error", err)
			}
		}()
	}
	if configFile != "" {
		if err := d.watchConfig(bg, configFile); err != nil {
			d.log.Warn("config hot reload disabled", "error", err)
		}
	}

	if err := d.manager.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	d.shutdown.OnShutdown("session", d.manager.Shutdown)
	return nil
}

// watchConfig re-reads the configuration file on change and applies the
// settings that can change at runtime, which today is the log level.
func (d *daemon) watchConfig(ctx context.Context, path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(d.log.Slog()))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(func(string) {
		cfg, err := loadConfig(path)
		if err != nil {
			d.log.Warn("ignoring invalid configuration change", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			d.log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}

func storageConfig(cfg *config.Config) storage.Config {
	badger := storage.DefaultBadgerConfig()
	badger.GCInterval = cfg.Session.Storage.BadgerGCInterval
	return storage.Config{
		Backend:    cfg.Session.Storage.Backend,
		Path:       cfg.Session.Storage.Path,
		Passphrase: cfg.Session.Storage.Passphrase,
		Badger:     badger,
	}
}

func transportConfig(cfg *config.Config, tlsCfg *tls.Config) wsbridge.Config {
	tc := wsbridge.DefaultConfig()
	tc.URL = cfg.Transport.URL
	tc.TLSConfig = tlsCfg
	tc.SendRate = cfg.Transport.SendRate
	tc.SendBurst = cfg.Transport.SendBurst
	tc.HandshakeTimeout = cfg.Transport.HandshakeTimeout
	tc.PingInterval = cfg.Transport.PingInterval
	tc.ReadTimeout = cfg.Transport.ReadTimeout
	tc.PairingMethod = cfg.Pairing.Method
	tc.PairingPhone = cfg.Pairing.Phone
	if cfg.Transport.Token != "" {
		tc.Header = http.Header{"Authorization": []string{"Bearer " + cfg.Transport.Token}}
	}
	return tc
}

func routerConfig(cfg *config.Config) service.RouterConfig {
	return service.RouterConfig{
		Prefix:       cfg.Bot.CommandPrefix,
		Mode:         service.Mode(cfg.Bot.Mode),
		Owners:       cfg.Bot.Owners,
		DedupWindow:  cfg.Bot.DedupWindow,
		DedupMaxSize: cfg.Bot.DedupMaxSize,
	}
}

func policyConfig(cfg *config.Config) service.PolicyConfig {
	return service.PolicyConfig{
		BaseDelay:         cfg.Session.Reconnect.BaseDelay,
		MaxDelay:          cfg.Session.Reconnect.MaxDelay,
		RateLimitMinDelay: cfg.Session.Reconnect.RateLimitMinDelay,
	}
}
