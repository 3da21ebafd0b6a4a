// Package command provides CLI command definitions for tabsess-cli.
package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tabsess-go/internal/cli/connection"
	"github.com/yndnr/tabsess-go/internal/cli/output"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "System management commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check server readiness",
				Action: systemReady,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	return probe(c, "/health", "healthy")
}

func systemReady(c *cli.Context) error {
	return probe(c, "/ready", "ready")
}

// probe hits an unauthenticated status endpoint and reports the result.
func probe(c *cli.Context, path, wantState string) error {
	client, err := EnsureConnected(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, path)
	if err != nil {
		PrintError("check failed: %v", err)
		return fmt.Errorf("server not %s", wantState)
	}

	var result struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := connection.ParseResponse(resp, &result); err != nil {
		return err
	}

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		formatter := &output.JSONFormatter{}
		return formatter.Format(os.Stdout, result)
	case output.FormatYAML:
		formatter := &output.YAMLFormatter{}
		return formatter.Format(os.Stdout, result)
	default:
		fmt.Printf("Server is %s (%s)\n", result.Status, client.BaseURL())
		return nil
	}
}
