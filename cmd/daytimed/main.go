package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/logger"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	slogctx "github.com/veqryn/slog-context"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	root "github.com/openkcm/daytime"
	"github.com/openkcm/daytime/internal/config"
	"github.com/openkcm/daytime/internal/daemon"
	"github.com/openkcm/daytime/internal/daytime"
	"github.com/openkcm/daytime/internal/interceptor"
	"github.com/openkcm/daytime/internal/sandbox"
	"github.com/openkcm/daytime/internal/server"
	"github.com/openkcm/daytime/internal/service"
)

const appName = "daytimed"

func main() {
	flags, err := config.ParseFlags(appName, os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(1)
	}

	ctx := context.Background()

	cfg := loadConfig(flags)
	err = cfg.Validate()
	handleErr("validating config", err)

	// The detached child has no terminal to report to, so the invoking
	// process checks the bind and the account first.
	if !cfg.DebugMode && !daemon.IsChild() {
		err = preflight(ctx, cfg)
		handleErr("checking listen addresses and account", err)
	}

	role, err := daemon.Detach(cfg)
	handleErr("daemonizing", err)

	if role == daemon.Parent {
		return
	}

	initLogger(cfg)

	initOTLP(ctx, cfg)

	healthSrv := grpchealth.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	// Sockets are bound before the sandbox takes the privileges away
	grpcServer := startGRPCServer(ctx, cfg, healthSrv)

	// Status server initialization
	go startStatusServer(cfg, ctx)

	ln, err := server.Listen(ctx, cfg.ListenAddress())
	handleErr("starting daytime listener", err)

	err = sandbox.Reduce(ctx, cfg)
	handleErr("reducing privileges", err)

	srv := setupServer(ctx, cfg)

	startDaytimeServer(ctx, srv, ln, healthSrv, grpcServer)
}

// preflight binds and releases every listen address and resolves the
// unprivileged account.
func preflight(ctx context.Context, cfg *config.Config) error {
	addresses := []string{cfg.ListenAddress()}
	if cfg.GRPCServer.Address != "" {
		addresses = append(addresses, cfg.GRPCServer.Address)
	}

	for _, address := range addresses {
		ln, err := server.Listen(ctx, address)
		if err != nil {
			return err
		}

		err = ln.Close()
		if err != nil {
			return err
		}
	}

	_, err := sandbox.LookupAccount(cfg.Daytime.User)

	return err
}

func setupServer(ctx context.Context, cfg *config.Config) *server.Server {
	meter := otel.Meter(
		cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	serviceMeters, err := service.InitMeters(ctx, &cfg.Application, meter)
	handleErr("initializing meters", err)

	connMeters, err := interceptor.InitMeters(ctx, &cfg.Application, meter)
	handleErr("initializing connection meters", err)

	responder := service.NewResponder(cfg.Daytime, daytime.SystemClock{}, os.Stdout, serviceMeters)

	handler := interceptor.Chain(responder.Respond,
		connMeters.ConnInterceptor,
		interceptor.NewRecover().ConnInterceptor,
	)

	srv, err := server.New(handler, cfg.Daytime.MaxConnections)
	handleErr("initializing daytime server", err)

	err = srv.InitMeters(ctx, &cfg.Application, meter)
	handleErr("initializing server meters", err)

	return srv
}

func startDaytimeServer(ctx context.Context, srv *server.Server, ln net.Listener, healthSrv *grpchealth.Server, grpcServer *grpc.Server) {
	// Handle server shutdown gracefully when the process is terminated.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	slogctx.Info(ctx, "daytime server is listening", "address", ln.Addr().String())

	err := srv.Serve(ctx, ln)

	healthSrv.Shutdown()

	if grpcServer != nil {
		grpcServer.GracefulStop()
		slogctx.Info(ctx, "gRPC server is stopped")
	}

	handleErr("serving daytime connections", err)
	slogctx.Info(ctx, "daytime server is stopped")
}

func startGRPCServer(ctx context.Context, cfg *config.Config, healthSrv *grpchealth.Server) *grpc.Server {
	if cfg.GRPCServer.Address == "" {
		return nil
	}

	var lc net.ListenConfig

	lis, err := lc.Listen(ctx, "tcp", cfg.GRPCServer.Address)
	handleErr("starting gRPC server", err)

	keepaliveParams := keepalive.ServerParameters{
		MaxConnectionIdle:     cfg.GRPCServer.Attributes.MaxConnectionIdle,
		MaxConnectionAge:      cfg.GRPCServer.Attributes.MaxConnectionAge,
		MaxConnectionAgeGrace: cfg.GRPCServer.Attributes.MaxConnectionAgeGrace,
		Time:                  cfg.GRPCServer.Attributes.Time,
		Timeout:               cfg.GRPCServer.Attributes.Timeout,
	}

	enforcementPolicy := keepalive.EnforcementPolicy{
		MinTime:             cfg.GRPCServer.EfPolMinTime,
		PermitWithoutStream: cfg.GRPCServer.EfPolPermitWithoutStream,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otlp.NewServerHandler()),
		grpc.KeepaliveParams(keepaliveParams),
		grpc.KeepaliveEnforcementPolicy(enforcementPolicy),
	)

	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	enableReflection(cfg, grpcServer)

	go func() {
		slogctx.Info(ctx, "gRPC health server is listening", "address", cfg.GRPCServer.Address)

		err := grpcServer.Serve(lis)
		if err != nil {
			slogctx.Error(ctx, "gRPC health server failed", "error", err)
		}
	}()

	return grpcServer
}

func enableReflection(cfg *config.Config, grpcServer *grpc.Server) {
	// Reflection is used by debugging tools like grpcurl or grpcui.
	if cfg.DebugMode {
		slog.Info("enabling gRPC reflection")
		reflection.Register(grpcServer)
	}
}

func initOTLP(ctx context.Context, cfg *config.Config) {
	err := otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger, otlp.WithLogger(slog.Default()))
	handleErr("starting OpenTelemetry", err)
}

// initLogger prints diagnostics on the terminal in debug mode and uses the
// configured logger otherwise.
func initLogger(cfg *config.Config) {
	if cfg.DebugMode {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))

		return
	}

	err := logger.InitAsDefault(cfg.Logger, cfg.Application)
	handleErr("initializing logger", err)
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error %s: %v", msg, err)
	}
}

func loadConfig(flags config.Flags) *config.Config {
	cfg := &config.Config{}
	loader := commoncfg.NewLoader(cfg,
		commoncfg.WithPaths(
			"/etc/daytimed",
			"."),
		commoncfg.WithEnvOverride(""))
	err := loader.LoadConfig()
	handleErr("loading config", err)

	err = commoncfg.UpdateConfigVersion(&cfg.BaseConfig, root.BuildVersion)
	handleErr("loading build version into config", err)

	cfg.ApplyFlags(flags)

	return cfg
}

func startStatusServer(cfg *config.Config, ctx context.Context) {
	liveness := status.WithLiveness(
		health.NewHandler(
			health.NewChecker(health.WithDisabledAutostart()),
		),
	)

	healthOptions := make([]health.Option, 0)
	healthOptions = append(healthOptions,
		health.WithDisabledAutostart(),
		health.WithStatusListener(func(ctx context.Context, state health.State) {
			slogctx.Info(ctx, "readiness status changed", "status", state.Status, "checkStates", state.CheckState)
		}),
	)

	// The gRPC health service reports NOT_SERVING until the daytime listener runs
	if cfg.GRPCServer.Address != "" {
		grpcCfg := commoncfg.GRPCClient{
			Address:    cfg.GRPCServer.Address,
			Attributes: cfg.GRPCServer.ClientAttributes,
			Pool: commoncfg.GRPCPool{
				InitialCapacity: 1,
				MaxCapacity:     3,
			},
		}
		healthOptions = append(healthOptions, health.WithGRPCServerChecker(grpcCfg))
	}

	readiness := status.WithReadiness(
		health.NewHandler(
			health.NewChecker(healthOptions...),
		),
	)

	// Start the status server
	err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness)
	if err != nil {
		slogctx.Error(ctx, "Failure on the status server", "error", err)

		_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
	}
}
