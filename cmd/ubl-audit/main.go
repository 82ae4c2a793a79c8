// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// ubl-audit is an offline companion to ubl-core: it opens a storage
// backend directly (no running server required) and either prints a
// human-readable verification report or exports a portable,
// zstd-compressed bundle of one for a third party to re-check.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/danvoulez/UBL-Containers/internal/audit"
	"github.com/danvoulez/UBL-Containers/internal/ledger"
	"github.com/danvoulez/UBL-Containers/internal/storage"
	"github.com/danvoulez/UBL-Containers/internal/storage/sqlitestore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ubl-audit: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ubl-audit <verify|export> --db PATH --container ID [--lo N] [--hi N] [--out FILE]")
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case "verify":
		return runVerify(rest)
	case "export":
		return runExport(rest)
	default:
		return fmt.Errorf("unknown subcommand %q", sub)
	}
}

type flags struct {
	dbPath      string
	containerID string
	lo, hi      uint64
	out         string
}

func parseFlags(name string, args []string, needOut bool) (flags, error) {
	var f flags
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(&f.dbPath, "db", "", "SQLite database path (required)")
	flagSet.StringVar(&f.containerID, "container", "", "container id (required)")
	flagSet.Uint64Var(&f.lo, "lo", 0, "range start sequence")
	flagSet.Uint64Var(&f.hi, "hi", 0, "range end sequence (inclusive)")
	if needOut {
		flagSet.StringVar(&f.out, "out", "", "output file path (required)")
	}
	if err := flagSet.Parse(args); err != nil {
		return flags{}, err
	}
	if f.dbPath == "" || f.containerID == "" {
		return flags{}, fmt.Errorf("--db and --container are required")
	}
	if needOut && f.out == "" {
		return flags{}, fmt.Errorf("--out is required")
	}
	return f, nil
}

func openReadOnlyStore(path string) (storage.Store, func(), error) {
	store, err := sqlitestore.Open(sqlitestore.Config{Path: path, PoolSize: 1})
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runVerify(args []string) error {
	f, err := parseFlags("verify", args, false)
	if err != nil {
		return err
	}

	store, closeStore, err := openReadOnlyStore(f.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	engine := ledger.New(store, nil, nil)
	report, err := engine.VerifyRange(context.Background(), f.containerID, f.lo, f.hi)
	if err != nil {
		return err
	}

	fmt.Println(renderReport(report))
	if !report.Valid {
		os.Exit(2)
	}
	return nil
}

func runExport(args []string) error {
	f, err := parseFlags("export", args, true)
	if err != nil {
		return err
	}

	store, closeStore, err := openReadOnlyStore(f.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	engine := ledger.New(store, nil, nil)
	report, err := engine.VerifyRange(ctx, f.containerID, f.lo, f.hi)
	if err != nil {
		return err
	}
	records, err := store.Range(ctx, f.containerID, f.lo, f.hi)
	if err != nil {
		return err
	}

	out, err := os.Create(f.out)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := audit.WriteTo(out, audit.Bundle{Report: report, Records: records}); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Println(renderReport(report))
	fmt.Printf("exported %d record(s) to %s\n", len(records), f.out)
	return nil
}

var (
	styleOK   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	styleFail = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderReport(r ledger.VerificationReport) string {
	status := styleOK.Render("VALID")
	if !r.Valid {
		status = styleFail.Render("INVALID: " + r.FirstError)
	}
	return fmt.Sprintf("%s  container=%s range=[%d,%d] entries=%d merkle_root=%s",
		status, r.ContainerID, r.Lo, r.Hi, r.Count, styleDim.Render(r.MerkleRoot))
}
