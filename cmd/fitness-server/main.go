// batfit: partition fitness engine for bit-chromosome populations
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batfit/internal/api"
	"batfit/internal/config"
	"batfit/internal/logging"
	"batfit/internal/mcp"
	"batfit/internal/metrics"
	"batfit/internal/rpc"
	"batfit/internal/service"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
)

var (
	httpAddr     = flag.String("http", "", "HTTP API listen address (overrides FITNESS_HTTP_ADDR)")
	grpcAddr     = flag.String("grpc", "", "gRPC listen address (overrides FITNESS_GRPC_ADDR)")
	mcpAddr      = flag.String("mcp", "", "MCP listen address, empty to disable (overrides FITNESS_MCP_ADDR)")
	method       = flag.String("method", "", "preferred fitness method: software or kernel")
	workers      = flag.Int("workers", 0, "software method worker count, 0 for one per CPU")
	memo         = flag.Bool("memo", false, "cache scores of repeated chromosomes")
	logLevel     = flag.String("log-level", "", "debug, info, warn or error")
	methodConfig = flag.String("method-config", "", "path of the method factory JSON")
	showMethods  = flag.Bool("methods", false, "print the method detection report and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	mc, err := cfg.FactoryConfig()
	if err != nil {
		logger.Fatal("method config: %v", err)
	}
	f := factory.NewMethodFactory(mc)

	if *showMethods {
		printReport(f.GetDetectionReport())
		return
	}

	best, err := initializeMethod(f)
	if err != nil {
		logger.Fatal("%v", err)
	}
	defer f.ShutdownAll()

	m := metrics.New()
	svc := service.New(best, f.GetDetectionReport(), m)
	logger.Info("fitness method %s ready (max_genes=%d max_dim=%d max_bats=%d)", best.Name(), cfg.MaxGenes, cfg.MaxDim, cfg.MaxBats)

	errCh := make(chan error, 3)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(svc, m),
	}
	go func() {
		logger.Info("API server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("API server: %w", err)
		}
	}()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("failed to listen on %s: %v", cfg.GRPCAddr, err)
	}
	grpcServer := rpc.NewGRPCServer(svc)
	go func() {
		logger.Info("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(listener); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	var mcpServer *mcp.Server
	if cfg.MCPAddr != "" {
		mcpServer = mcp.NewServer(svc, cfg.MCPAddr)
		go func() {
			if err := mcpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("MCP server: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or a server failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("received %s, shutting down", sig)
	case err := <-errCh:
		logger.Error("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("API server shutdown: %v", err)
	}
	if mcpServer != nil {
		if err := mcpServer.Shutdown(ctx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}
	grpcServer.GracefulStop()

	logger.Info("server stopped")
}

// applyFlags lets explicitly set flags override the loaded config
// initializeMethod initializes the factory's selection and returns it
func initializeMethod(f *factory.MethodFactory) (core.FitnessMethod, error) {
	if err := f.InitializeBestMethod(); err != nil {
		return nil, fmt.Errorf("initialize fitness method: %w", err)
	}
	return f.GetBestMethod(), nil
}

func applyFlags(cfg *config.ServerConfig) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "grpc":
			cfg.GRPCAddr = *grpcAddr
		case "mcp":
			cfg.MCPAddr = *mcpAddr
		case "method":
			cfg.Method = *method
		case "workers":
			cfg.Workers = *workers
		case "memo":
			cfg.Memo = *memo
		case "log-level":
			cfg.LogLevel = *logLevel
		case "method-config":
			cfg.MethodConfig = *methodConfig
		}
	})
}

func printReport(report *factory.DetectionReport) {
	h := report.Host
	fmt.Printf("Host: %s (%s), %d cores / %d threads, SIMD: %v\n",
		h.Brand, h.Arch, h.PhysicalCores, h.LogicalCores, h.SIMD())
	fmt.Printf("Methods (%d of %d available, best: %s, memo: %v)\n",
		report.AvailableCount, report.TotalMethods, report.BestMethod, report.MemoEnabled)
	for _, ms := range report.Methods {
		mark := "✗"
		if ms.Available {
			mark = "✓"
		}
		fmt.Printf("  %s %-10s priority=%d  %s\n", mark, ms.Name, ms.Priority, ms.Description)
		if ms.Capabilities != nil && ms.Capabilities.Reason != "" {
			fmt.Printf("      %s\n", ms.Capabilities.Reason)
		}
	}
}
