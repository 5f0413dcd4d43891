package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	html2pdf "github.com/alnah/go-html2pdf"
	"github.com/alnah/go-html2pdf/internal/config"
	"github.com/alnah/go-html2pdf/internal/conversion"
	"github.com/alnah/go-html2pdf/internal/hints"
	"github.com/alnah/go-html2pdf/internal/httpapi"
	"github.com/alnah/go-html2pdf/internal/logging"
	"github.com/alnah/go-html2pdf/internal/storage"
	"github.com/alnah/go-html2pdf/internal/yamlutil"
)

// readHeaderTimeout bounds slow clients independently of upload size.
const readHeaderTimeout = 10 * time.Second

// runServe parses flags, builds the configuration and serves until ctx is
// canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Fprintf(env.Stdout, "html2pdf-server %s\n", Version)
		return nil
	}

	cfg, unknown, err := loadServerConfig(f, env)
	if err != nil {
		return err
	}

	if f.printConfig {
		out, err := yamlutil.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = env.Stdout.Write(out)
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, env.Stderr)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	for _, name := range unknown {
		log.Warn("unknown environment variable (typo?)", zap.String("name", name))
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply.
	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Infof))

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListen, err)
	}

	return serve(ctx, cfg, log, ln)
}

// loadServerConfig layers defaults, the config file, dotenv, the process
// environment and flags, then validates the result. It also returns the
// unrecognized HTML2PDF_* variable names.
func loadServerConfig(f *serverFlags, env *Environment) (*config.Config, []string, error) {
	envFile, required := ".env", false
	if f.fs.Changed("env-file") {
		envFile, required = f.envFile, true
	}
	dotenv, err := readDotenv(envFile, required)
	if err != nil {
		return nil, nil, err
	}
	lookup := layeredLookup(env, dotenv)

	cfgPath := f.config
	if cfgPath == "" {
		cfgPath, _ = lookup(envConfigPath)
	}

	cfg := config.DefaultConfig()
	if cfgPath != "" {
		if cfg, err = config.LoadConfig(cfgPath); err != nil {
			return nil, nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, nil, err
	}
	applyFlags(f, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, unknownEnvVars(env.Environ(), dotenv), nil
}

// serve wires storage, the renderer and the HTTP API onto ln and blocks until
// ctx is canceled or the server fails. In-flight requests get
// server.shutdownTimeout to finish.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, ln net.Listener) error {
	registry, err := storage.NewRegistry(cfg.Storage.OutputDir)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("%w%s", err, hints.ForDirectory())
	}
	staging := storage.NewStaging(cfg.Storage.UploadDir)

	renderer := html2pdf.NewRenderer(
		html2pdf.WithTimeout(cfg.Render.Timeout),
		html2pdf.WithNavigationTimeout(cfg.Render.NavigationTimeout),
		html2pdf.WithSettleDelay(cfg.Render.SettleDelay),
		html2pdf.WithMaxConcurrent(cfg.Render.MaxConcurrent),
		html2pdf.WithBrowser(cfg.Browser.Bin, cfg.Browser.NoSandbox),
		html2pdf.WithHTMLOptions(cfg.Render.HTMLOptions()),
		html2pdf.WithURLOptions(cfg.Render.URLOptions()),
		html2pdf.WithLogger(log.Named("render")),
	)
	svc := conversion.New(renderer, staging, registry, log.Named("conversion"))
	api := httpapi.New(svc, registry, cfg.Server.MaxUploadBytes, log.Named("http"))

	srv := &http.Server{
		Handler:           api.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          zap.NewStdLog(log.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fields := []zap.Field{
			zap.String("addr", ln.Addr().String()),
			zap.String("output_dir", registry.Dir()),
			zap.String("upload_dir", staging.Dir()),
		}
		if lan := lanAddress(ln.Addr()); lan != "" {
			fields = append(fields, zap.String("lan", lan))
		}
		log.Info("server listening", fields...)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// lanAddress returns a URL reachable from the local network when addr listens
// on all interfaces, or "".
func lanAddress(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return ""
	}
	ifaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range ifaceAddrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.To4() == nil {
			continue
		}
		return "http://" + net.JoinHostPort(ipNet.IP.String(), strconv.Itoa(tcp.Port))
	}
	return ""
}
