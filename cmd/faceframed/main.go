// Command faceframed runs the FaceFrame host daemon: it supervises the face
// detection worker process and exposes control over a Unix socket.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"faceframe/internal/config"
	"faceframe/internal/daemon"
	"faceframe/internal/ipc"
	"faceframe/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, logCloser, err := logging.NewTee(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}, cfg.LogPath())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logCloser.Close()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		logger.Error("start ipc server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-ctx.Done()
	logger.Info("faceframed shutting down")
}
