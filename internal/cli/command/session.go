// Package command provides CLI command definitions for tabsess-cli.
package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tabsess-go/internal/cli/connection"
	"github.com/yndnr/tabsess-go/internal/cli/output"
)

// Response shapes mirrored from the server API.

type columnSpec struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type sessionState struct {
	SessionID  string       `json:"session_id"`
	DatasetID  string       `json:"dataset_id"`
	Schema     []columnSpec `json:"schema"`
	RowCount   int          `json:"row_count"`
	ColCount   int          `json:"col_count"`
	Position   int          `json:"position"`
	CanUndo    bool         `json:"can_undo"`
	CanRedo    bool         `json:"can_redo"`
	ExpiresAt  time.Time    `json:"expires_at"`
	LastActive time.Time    `json:"last_active"`
}

type operationRecord struct {
	Index        int               `json:"index"`
	Type         string            `json:"type"`
	Params       map[string]string `json:"params"`
	Timestamp    time.Time         `json:"timestamp"`
	RowsAffected int               `json:"rows_affected"`
	Warnings     int               `json:"warnings"`
}

type seekResult struct {
	Position int          `json:"position"`
	Stepped  int          `json:"stepped"`
	Schema   []columnSpec `json:"schema"`
	RowCount int          `json:"row_count"`
	ColCount int          `json:"col_count"`
	CanUndo  bool         `json:"can_undo"`
	CanRedo  bool         `json:"can_redo"`
}

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage editing sessions",
		Subcommands: []*cli.Command{
			{
				Name:    "open",
				Aliases: []string{"init"},
				Usage:   "Open an editing session over a dataset",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "dataset",
						Aliases:  []string{"d"},
						Usage:    "Dataset ID to edit",
						Required: true,
					},
					&cli.DurationFlag{
						Name:    "ttl",
						Aliases: []string{"t"},
						Usage:   "Session TTL (e.g., 30m, 2h); server default when omitted",
					},
				},
				Action: sessionOpen,
			},
			{
				Name:      "status",
				Aliases:   []string{"get"},
				Usage:     "Show session state",
				ArgsUsage: "SESSION_ID",
				Action:    sessionStatus,
			},
			{
				Name:      "history",
				Usage:     "List applied operations and the undo pointer",
				ArgsUsage: "SESSION_ID",
				Action:    sessionHistory,
			},
			{
				Name:      "apply",
				Usage:     "Apply a transformation to the working frame",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Operation type (e.g., rename_column, sort_rows)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Operation parameter as KEY=VALUE (repeatable)",
					},
				},
				Action: sessionApply,
			},
			{
				Name:      "undo",
				Usage:     "Step backward through session history",
				ArgsUsage: "SESSION_ID",
				Flags:     seekFlags(),
				Action:    sessionUndo,
			},
			{
				Name:      "redo",
				Usage:     "Step forward through session history",
				ArgsUsage: "SESSION_ID",
				Flags:     seekFlags(),
				Action:    sessionRedo,
			},
			{
				Name:      "close",
				Usage:     "Close a session, optionally committing the working frame",
				ArgsUsage: "SESSION_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "persist",
						Aliases: []string{"p"},
						Usage:   "Commit the working frame as a new dataset version",
					},
				},
				Action: sessionClose,
			},
		},
	}
}

func seekFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "steps",
			Aliases: []string{"n"},
			Value:   1,
			Usage:   "Number of steps to move",
		},
	}
}

func sessionOpen(c *cli.Context) error {
	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := map[string]any{"dataset_id": c.String("dataset")}
	if ttl := c.Duration("ttl"); ttl > 0 {
		body["ttl_seconds"] = int64(ttl.Seconds())
	}

	resp, err := client.Post(ctx, "/sessions", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		SessionID string       `json:"session_id"`
		DatasetID string       `json:"dataset_id"`
		Schema    []columnSpec `json:"schema"`
		RowCount  int          `json:"row_count"`
		ColCount  int          `json:"col_count"`
		ExpiresAt time.Time    `json:"expires_at"`
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
		fmt.Printf("Session opened\n\n")
		fmt.Printf("Session ID: %s\n", result.SessionID)
		fmt.Printf("Dataset:    %s\n", result.DatasetID)
		fmt.Printf("Shape:      %d rows x %d columns\n", result.RowCount, result.ColCount)
		fmt.Printf("Expires:    %s\n", result.ExpiresAt.Format("2006-01-02 15:04:05"))
		return nil
	}
}

func sessionStatus(c *cli.Context) error {
	sessionID, err := requireSessionArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/sessions/"+sessionID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result sessionState
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
		fmt.Printf("Session:     %s\n", result.SessionID)
		fmt.Printf("Dataset:     %s\n", result.DatasetID)
		fmt.Printf("Shape:       %d rows x %d columns\n", result.RowCount, result.ColCount)
		fmt.Printf("Position:    %d (undo: %s, redo: %s)\n",
			result.Position, yesNo(result.CanUndo), yesNo(result.CanRedo))
		fmt.Printf("Expires:     %s\n", result.ExpiresAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Last active: %s\n", result.LastActive.Format("2006-01-02 15:04:05"))

		if len(result.Schema) > 0 {
			fmt.Printf("\n")
			table := &output.Table{Headers: []string{"COLUMN", "TYPE", "NULLABLE"}}
			for _, col := range result.Schema {
				table.AddRow(col.Name, col.Type, yesNo(col.Nullable))
			}
			return table.Render(os.Stdout)
		}
		return nil
	}
}

func sessionHistory(c *cli.Context) error {
	sessionID, err := requireSessionArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/sessions/"+sessionID+"/history")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Entries  []operationRecord `json:"entries"`
		Pointer  int               `json:"pointer"`
		Position int               `json:"position"`
		CanUndo  bool              `json:"can_undo"`
		CanRedo  bool              `json:"can_redo"`
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
		table := &output.Table{
			Headers: []string{"", "#", "OPERATION", "PARAMS", "ROWS", "WHEN"},
		}
		for _, entry := range result.Entries {
			marker := " "
			if entry.Index == result.Position {
				marker = "*"
			}
			table.AddRow(
				marker,
				fmt.Sprintf("%d", entry.Index),
				entry.Type,
				formatParams(entry.Params),
				fmt.Sprintf("%d", entry.RowsAffected),
				entry.Timestamp.Format("15:04:05"),
			)
		}
		if err := table.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Printf("\nPosition %d of %d (undo: %s, redo: %s)\n",
			result.Position, len(result.Entries), yesNo(result.CanUndo), yesNo(result.CanRedo))
		return nil
	}
}

func sessionApply(c *cli.Context) error {
	sessionID, err := requireSessionArg(c)
	if err != nil {
		return err
	}

	params, err := parseParams(c.StringSlice("param"))
	if err != nil {
		return err
	}

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body := map[string]any{
		"type":   c.String("type"),
		"params": params,
	}

	resp, err := client.Post(ctx, "/sessions/"+sessionID+"/operations", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Operation operationRecord `json:"operation"`
		Schema    []columnSpec    `json:"schema"`
		RowCount  int             `json:"row_count"`
		ColCount  int             `json:"col_count"`
		CanUndo   bool            `json:"can_undo"`
		CanRedo   bool            `json:"can_redo"`
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
		fmt.Printf("Applied %s (step %d)\n", result.Operation.Type, result.Operation.Index)
		fmt.Printf("Rows affected: %d", result.Operation.RowsAffected)
		if result.Operation.Warnings > 0 {
			fmt.Printf(" (%d warnings)", result.Operation.Warnings)
		}
		fmt.Printf("\nShape: %d rows x %d columns\n", result.RowCount, result.ColCount)
		return nil
	}
}

func sessionUndo(c *cli.Context) error {
	return sessionSeek(c, "undo")
}

func sessionRedo(c *cli.Context) error {
	return sessionSeek(c, "redo")
}

func sessionSeek(c *cli.Context, direction string) error {
	sessionID, err := requireSessionArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var body any
	if steps := c.Int("steps"); steps != 1 {
		body = map[string]int{"steps": steps}
	}

	resp, err := client.Post(ctx, "/sessions/"+sessionID+"/"+direction, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result seekResult
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
		fmt.Printf("Stepped %d (%s), now at position %d\n", result.Stepped, direction, result.Position)
		fmt.Printf("Shape: %d rows x %d columns (undo: %s, redo: %s)\n",
			result.RowCount, result.ColCount, yesNo(result.CanUndo), yesNo(result.CanRedo))
		return nil
	}
}

func sessionClose(c *cli.Context) error {
	sessionID, err := requireSessionArg(c)
	if err != nil {
		return err
	}

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var body any
	if c.Bool("persist") {
		body = map[string]bool{"persist": true}
	}

	resp, err := client.Post(ctx, "/sessions/"+sessionID+"/close", body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result struct {
		Closed       bool   `json:"closed"`
		NewDatasetID string `json:"new_dataset_id"`
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
		fmt.Printf("Session %s closed\n", truncateID(sessionID))
		if result.NewDatasetID != "" {
			fmt.Printf("Committed as dataset: %s\n", result.NewDatasetID)
		}
		return nil
	}
}

// requireSessionArg extracts the SESSION_ID positional argument.
func requireSessionArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("session ID required")
	}
	return c.Args().First(), nil
}

// parseParams converts KEY=VALUE pairs into a parameter map.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected KEY=VALUE", pair)
		}
		params[key] = value
	}
	return params, nil
}

// formatParams renders a parameter map as a compact key=value list.
func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for k, v := range params {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
