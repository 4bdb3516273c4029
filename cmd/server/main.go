package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/slopezm/go-umlcollab/internal/api"
	"github.com/slopezm/go-umlcollab/internal/assistant"
	"github.com/slopezm/go-umlcollab/internal/config"
	"github.com/slopezm/go-umlcollab/internal/database"
	"github.com/slopezm/go-umlcollab/internal/diagram"
	"github.com/slopezm/go-umlcollab/internal/server"
	"github.com/slopezm/go-umlcollab/internal/stats"
)

const defaultSigningKey = "c2VjcmV0LXNpZ25pbmcta2V5LWNoYW5nZS1tZQ=="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	agentURL       string
	agentToken     string
	agentModel     string
	agentMock      bool
	agentTimeout   time.Duration
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&agentURL, "agent-url", os.Getenv("AGENT_URL"), "base URL of the diagram assistant API")
	flag.StringVar(&agentToken, "agent-token", os.Getenv("AGENT_TOKEN"), "API token for the diagram assistant")
	flag.StringVar(&agentModel, "agent-model", "", "model name for the diagram assistant")
	flag.BoolVar(&agentMock, "agent-mock", false, "serve canned assistant responses without calling the agent API")
	flag.DurationVar(&agentTimeout, "agent-timeout", 0, "timeout for assistant API calls")
	flag.Parse()

	logger := log.New(os.Stderr, "[umlcollab] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, config.AgentConfig{
		URL:     agentURL,
		Token:   agentToken,
		Model:   agentModel,
		Mock:    agentMock,
		Timeout: agentTimeout,
	})
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgCollabRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	collabServer, err := server.NewCollabServer(logger, dbConn, statsUpdater)
	if err != nil {
		logger.Fatal("new collab server:", err)
	}

	coordinator := diagram.NewCoordinator(logger, dbConn, collabServer, statsUpdater)
	agent := assistant.NewClient(logger, cfg.Agent)

	srv := api.NewCollabApp(mux, logger, collabServer, dbConn, coordinator, agent, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go collabServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down collab server...")
	if err := collabServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("collab server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
