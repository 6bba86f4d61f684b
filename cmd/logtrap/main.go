package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coffersTech/logtrap/sink"
)

func main() {
	port := flag.Int("port", 0, "TCP port to listen on (0 = OS-assigned)")
	snapshot := flag.String("snapshot", "", "Write captured records to this file on exit")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	svc, err := sink.New(sink.WithPort(*port), sink.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create log sink", "error", err)
		os.Exit(1)
	}

	if err := svc.Start(context.Background()); err != nil {
		logger.Error("failed to start log sink", "error", err)
		os.Exit(1)
	}
	fmt.Printf("logtrap listening on %s (from containers: %s:%d)\n",
		svc.Addr(), svc.ContainerHost(), svc.Port())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received signal, shutting down", "signal", sig.String())

	if err := svc.Stop(); err != nil {
		logger.Error("failed stopping log sink", "error", err)
		os.Exit(1)
	}

	records := svc.Records()
	stats := records.Stats()
	fmt.Printf("captured %d records\n", records.Len())
	for _, name := range []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL", "UNKNOWN"} {
		if count := stats[name]; count > 0 {
			fmt.Printf("  %-7s %d\n", name, count)
		}
	}

	if *snapshot != "" {
		if err := records.WriteSnapshot(*snapshot); err != nil {
			logger.Error("failed writing snapshot", "path", *snapshot, "error", err)
			os.Exit(1)
		}
		logger.Info("snapshot written", "path", *snapshot, "records", records.Len())
	}
}
