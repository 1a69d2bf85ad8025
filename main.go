package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"xorm.io/xorm"

	_ "github.com/a-runebou/DD2480-CI-V/docs"
	"github.com/a-runebou/DD2480-CI-V/pipeline"
	"github.com/a-runebou/DD2480-CI-V/server"
	"github.com/a-runebou/DD2480-CI-V/status"
)

func getEnv(key string, defaultValue string) string {
	v := os.Getenv(key)
	if len(v) == 0 {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// @title Maven CI Server
// @version 1.0
// @description Continuous integration server building Maven projects on GitHub pushes
// @contact.name DD2480 Group V
// @BasePath /api
func main() {
	addr := flag.String("addr", getEnv("ADDRESS", "127.0.0.1:8080"), "Address to bind [$ADDRESS]")
	driver := flag.String("driver", getEnv("DB_DRIVER", "sqlite3"), "Database driver, sqlite3 or postgres [$DB_DRIVER]")
	dsn := flag.String("dsn", getEnv("DB_DSN", "file:builds.db?cache=shared"), "Database data source name [$DB_DSN]")
	workers := flag.Int("workers", getEnvInt("WORKERS", 2), "Number of concurrent CI runs [$WORKERS]")
	queueSize := flag.Int("queue-size", getEnvInt("QUEUE_SIZE", 16), "Number of jobs waiting for a worker before pushes are rejected [$QUEUE_SIZE]")
	workspaceRoot := flag.String("workspace-root", getEnv("WORKSPACE_ROOT", os.TempDir()), "Parent directory of checkouts [$WORKSPACE_ROOT]")
	checkoutBackend := flag.String("checkout", getEnv("CHECKOUT_BACKEND", "git"), "Checkout backend, git or gogit [$CHECKOUT_BACKEND]")
	wrapper := flag.String("wrapper", getEnv("TEST_WRAPPER", pipeline.DefaultTestCommand.Wrapper), "Build wrapper preferred when present in the checkout [$TEST_WRAPPER]")
	fallback := flag.String("fallback", getEnv("TEST_FALLBACK", pipeline.DefaultTestCommand.Fallback), "Build tool used without a wrapper [$TEST_FALLBACK]")
	testArgs := flag.StringSlice("test-args", strings.Split(getEnv("TEST_ARGS", "test"), ","), "Arguments of the test command [$TEST_ARGS]")
	testTimeout := flag.Duration("test-timeout", getEnvDuration("TEST_TIMEOUT", 0), "Upper bound of a single run, 0 for none [$TEST_TIMEOUT]")
	statusConfig := flag.String("status-config", getEnv("STATUS_CONFIG", ""), "YAML file configuring GitHub commit statuses, empty to disable [$STATUS_CONFIG]")
	staleAfter := flag.Duration("stale-after", getEnvDuration("STALE_AFTER", 2*time.Hour), "Age after which pending builds are marked as errored [$STALE_AFTER]")
	staleCheck := flag.String("stale-check", getEnv("STALE_CHECK", "@every 5m"), "Cron spec of the stale build check [$STALE_CHECK]")
	cacheDuration := flag.Duration("cache-duration", getEnvDuration("CACHE_DURATION", 5*time.Second), "How long build listings are cached [$CACHE_DURATION]")
	drainTimeout := flag.Duration("drain-timeout", getEnvDuration("DRAIN_TIMEOUT", 0), "How long shutdown waits for running builds, 0 to wait for all [$DRAIN_TIMEOUT]")
	logLevel := flag.String("log-level", getEnv("LOG_LEVEL", "info"), "Log level [$LOG_LEVEL]")
	logFormat := flag.String("log-format", getEnv("LOG_FORMAT", "text"), "Log format, text or json [$LOG_FORMAT]")
	pruneWorkspaces := flag.Bool("prune-workspaces", false, "Remove leftover checkouts in the workspace root and exit")
	flag.Parse()

	if err := configureLogging(*logLevel, *logFormat); err != nil {
		log.Fatal(err)
	}

	if *pruneWorkspaces {
		pruneWorkspaceDirectories(*workspaceRoot)
		os.Exit(0)
	}

	if len(*addr) == 0 {
		log.Fatal("Missing address")
	}
	if len(*driver) == 0 {
		log.Fatal("Missing database driver")
	}
	if len(*dsn) == 0 {
		log.Fatal("Missing database data source name")
	}

	executor := pipeline.NewProcessExecutor(log.StandardLogger())

	workspaces, err := newWorkspaceProvider(*checkoutBackend, *workspaceRoot, executor)
	if err != nil {
		log.Fatal(err)
	}

	reporter, err := newStatusReporter(*statusConfig)
	if err != nil {
		log.Fatal(err)
	}

	engine := createDatabaseEngine(driver, dsn)
	defer engine.Close()

	builds := server.NewBuildStore(engine)
	if err := builds.Sync(); err != nil {
		log.Fatal("Failed to sync structs to database tables: " + err.Error())
	}

	ci := pipeline.New(workspaces, executor, reporter, builds, pipeline.Config{
		Command: pipeline.TestCommand{
			Wrapper:  *wrapper,
			Fallback: *fallback,
			Args:     *testArgs,
		},
		Timeout: *testTimeout,
	}, log.StandardLogger())

	dispatcher := pipeline.NewDispatcher(ci, *workers, *queueSize, log.StandardLogger())

	srv := server.Server{
		Builds:        builds,
		Dispatcher:    dispatcher,
		StaleAfter:    *staleAfter,
		CacheDuration: *cacheDuration,
		Log:           log.StandardLogger(),
	}

	c := cron.New()
	if _, err := c.AddFunc(*staleCheck, srv.CheckStaleBuilds); err != nil {
		log.Fatal("Invalid stale check schedule: " + err.Error())
	}
	c.Start()

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv.NewRouter(),
	}

	go func() {
		log.Printf("Starting CI server on %s\n", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Println("Shutting down, waiting for running builds")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Println("Error: Failed to shut down HTTP server,", err.Error())
	}

	<-c.Stop().Done()

	drainCtx := context.Background()
	if *drainTimeout > 0 {
		var cancelDrain context.CancelFunc
		drainCtx, cancelDrain = context.WithTimeout(drainCtx, *drainTimeout)
		defer cancelDrain()
	}
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Println("Error: Builds still running at shutdown,", err.Error())
	}
}

func configureLogging(level, format string) error {
	parsedLevel, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsedLevel)

	switch format {
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func newWorkspaceProvider(backend, root string, executor pipeline.CommandExecutor) (pipeline.WorkspaceProvider, error) {
	switch backend {
	case "git":
		return &pipeline.GitWorkspaceProvider{Executor: executor, Root: root, Log: log.StandardLogger()}, nil
	case "gogit":
		return &pipeline.GoGitWorkspaceProvider{Root: root, Log: log.StandardLogger()}, nil
	default:
		return nil, fmt.Errorf("unknown checkout backend %q", backend)
	}
}

// newStatusReporter returns a nil interface when no config is given, which
// turns status reporting off.
func newStatusReporter(configPath string) (pipeline.StatusReporter, error) {
	if len(configPath) == 0 {
		log.Println("No status config given, commit statuses are disabled")
		return nil, nil
	}
	config, err := status.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Reporting commit statuses to %s/%s", config.Owner, config.Repo)
	return status.NewGitHubReporter(context.Background(), *config, log.StandardLogger()), nil
}

func createDatabaseEngine(driver *string, dsn *string) *xorm.Engine {
	engine, err := xorm.NewEngine(*driver, *dsn)
	if err != nil {
		log.Fatal("Failed to open database connection: " + err.Error())
	}

	return engine
}

func pruneWorkspaceDirectories(root string) {
	dirs, err := pipeline.ListWorkspaces(root)
	if err != nil {
		log.Fatal("Failed to list workspaces: " + err.Error())
	}

	log.Printf("Removing %d leftover workspaces", len(dirs))
	bar := pb.StartNew(len(dirs))
	for _, dir := range dirs {
		bar.Increment()

		workspace := pipeline.Workspace{Dir: dir}
		if err := workspace.Destroy(); err != nil {
			log.Printf("Failed to remove %s: %s", dir, err)
		}
	}

	bar.Finish()
}
