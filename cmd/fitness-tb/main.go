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
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"batfit/internal/config"
	"batfit/internal/logging"
	"batfit/internal/rpc"
	"batfit/pkg/fitness/core"
	"batfit/pkg/fitness/factory"
	"batfit/pkg/fitness/testbench"
)

func main() {
	defaults := testbench.DefaultParams()

	seed := flag.Int64("seed", defaults.Seed, "random seed for the generated dataset")
	chromoLen := flag.Int("len", defaults.ChromoLen, "genes per chromosome")
	dim := flag.Int("dim", defaults.Dim, "vector dimension")
	numBats := flag.Int("bats", defaults.NumBats, "chromosomes per batch")
	tol := flag.Float64("tol", defaults.Tol, "absolute tolerance")
	relTol := flag.Float64("rel-tol", defaults.RelTol, "relative tolerance")
	methodName := flag.String("method", "", "local method to test: software or kernel (default: best available)")
	remote := flag.String("remote", "", "gRPC address of a fitness server to test instead of a local method")
	runs := flag.Int("runs", 1, "number of runs, each with seed+i")
	jsonOut := flag.Bool("json", false, "print reports as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	method, cleanup, err := openMethod(cfg, *methodName, *remote)
	if err != nil {
		logger.Fatal("%v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := testbench.Params{
		Seed:      *seed,
		ChromoLen: *chromoLen,
		Dim:       *dim,
		NumBats:   *numBats,
		Low:       defaults.Low,
		High:      defaults.High,
		Tol:       *tol,
		RelTol:    *relTol,
	}

	failed := 0
	start := time.Now()
	for i := 0; i < *runs; i++ {
		p.Seed = *seed + int64(i)
		report, err := testbench.Run(ctx, method, p)
		if err != nil {
			logger.Error("run %d: %v", i, err)
			os.Exit(1)
		}
		if !report.Passed() {
			failed++
		}

		switch {
		case *jsonOut:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(report)
		case *runs == 1 || !report.Passed():
			report.Write(os.Stdout)
		default:
			logger.ProgressBar(i+1, *runs, method.Name(), fmt.Sprintf("failed=%d %s", failed, time.Since(start).Round(time.Millisecond)))
		}
	}

	if *runs > 1 {
		fmt.Printf("\n%d/%d runs passed\n", *runs-failed, *runs)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// openMethod returns an initialized method and a function releasing it
func openMethod(cfg *config.ServerConfig, name, remote string) (core.FitnessMethod, func(), error) {
	if remote != "" {
		client, err := rpc.Dial(remote)
		if err != nil {
			return nil, nil, err
		}
		m := rpc.NewRemoteMethod(client)
		if err := m.Initialize(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return m, func() { m.Shutdown() }, nil
	}

	if name != "" {
		cfg.Method = name
	}
	mc, err := cfg.FactoryConfig()
	if err != nil {
		return nil, nil, err
	}
	f := factory.NewMethodFactory(mc)
	if _, ok := f.GetAvailableMethods()[name]; name != "" && !ok {
		return nil, nil, fmt.Errorf("method %q is not available on this host", name)
	}
	if err := f.InitializeBestMethod(); err != nil {
		return nil, nil, err
	}
	return f.GetBestMethod(), func() { f.ShutdownAll() }, nil
}
