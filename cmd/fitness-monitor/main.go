// batfit: partition fitness engine for bit-chromosome populations
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"batfit/internal/client"
	"batfit/internal/config"
	"batfit/internal/monitor"
)

func main() {
	addr := flag.String("addr", "", "fitness server HTTP address (default: FITNESS_HTTP_ADDR)")
	interval := flag.Duration("interval", time.Second, "poll interval")
	flag.Parse()

	target := *addr
	if target == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		target = cfg.HTTPAddr
		if len(target) > 0 && target[0] == ':' {
			target = "localhost" + target
		}
	}

	model := monitor.NewModel(client.NewAPIClient(target), target, *interval)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
