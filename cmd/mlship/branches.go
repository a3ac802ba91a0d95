package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/mlship/mlship/internal/gitx"
)

func cmdBranches(args []string) error {
	fs := flag.NewFlagSet("branches", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default is $HOME/.config/mlship/config.yml)")
	dir := fs.String("C", ".", "project working directory")
	remote := fs.String("remote", "", "remote URL to push the branches to (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	author := gitx.Signature{Name: cfg.GitAuthorName, Email: cfg.GitAuthorEmail}

	var opts []gitx.BootstrapOption
	if cfg.GitUsername != "" || cfg.GitPassword != "" {
		opts = append(opts, gitx.WithBasicAuth(cfg.GitUsername, cfg.GitPassword))
	}

	report, err := gitx.NewBootstrapper(*dir, *remote, author, opts...).Run(ctx)
	if err != nil {
		return err
	}

	if report.InitializedRepo {
		fmt.Printf("initialized repository in %s\n", *dir)
	}
	if report.CreatedCommit {
		fmt.Println("created initial commit")
	}
	if len(report.CreatedBranches) > 0 {
		fmt.Printf("created branches: %s\n", strings.Join(report.CreatedBranches, ", "))
	} else {
		fmt.Println("all delivery branches already exist")
	}
	if len(report.PushedBranches) > 0 {
		fmt.Printf("pushed: %s\n", strings.Join(report.PushedBranches, ", "))
	}
	fmt.Println("checked out master")
	return nil
}
