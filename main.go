package main

import (
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldworks/hourboard/internal/config"
	"github.com/fieldworks/hourboard/internal/store"
	"github.com/fieldworks/hourboard/internal/tui"
	"github.com/fieldworks/hourboard/internal/web"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: hourboard [file.csv ...]")
	fmt.Fprintln(os.Stderr, "       hourboard serve [addr]")
	os.Exit(2)
}

func main() {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "serve" {
		addr := cfg.ListenAddr
		if len(args) > 1 {
			addr = args[1]
		}
		if len(args) > 2 {
			usage()
		}
		runServe(cfg, addr)
		return
	}
	for _, a := range args {
		if len(a) > 0 && a[0] == '-' {
			usage()
		}
	}

	runTUI(cfg, args)
}

func runTUI(cfg *config.Config, paths []string) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	app := tui.NewApp(s, cfg.Schema(), paths)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cfg *config.Config, addr string) {
	srv := web.NewServer(cfg.Schema(), cfg.Threshold)
	fmt.Fprintf(os.Stderr, "hourboard listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
