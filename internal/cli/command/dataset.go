// Package command provides CLI command definitions for tabsess-cli.
package command

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tabsess-go/internal/cli/connection"
	"github.com/yndnr/tabsess-go/internal/cli/output"
)

type datasetInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	State     string    `json:"state"`
	ParentID  string    `json:"parent_id"`
	RowCount  int       `json:"row_count"`
	ColCount  int       `json:"col_count"`
	CreatedAt time.Time `json:"created_at"`
}

type columnUpload struct {
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Values []*string `json:"values"`
}

// DatasetCommand returns the dataset subcommand group.
func DatasetCommand() *cli.Command {
	return &cli.Command{
		Name:    "dataset",
		Aliases: []string{"ds"},
		Usage:   "Manage datasets",
		Subcommands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register a dataset from a CSV file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "CSV file with a header row",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "Dataset name (defaults to the file name)",
					},
					&cli.StringSliceFlag{
						Name:  "type",
						Usage: "Column type override as COLUMN=TYPE (repeatable); unlisted columns default to string",
					},
				},
				Action: datasetRegister,
			},
			{
				Name:      "get",
				Usage:     "Show dataset details",
				ArgsUsage: "DATASET_ID",
				Action:    datasetGet,
			},
		},
	}
}

func datasetRegister(c *cli.Context) error {
	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	name := c.String("name")
	if name == "" {
		name = baseName(path)
	}

	types, err := parseParams(c.StringSlice("type"))
	if err != nil {
		return err
	}

	columns, err := readCSVColumns(path, types)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	spinner := output.NewSpinner(os.Stderr, "Uploading "+name)
	spinner.Start()

	resp, err := client.Post(ctx, "/datasets", map[string]any{
		"name":    name,
		"columns": columns,
	})
	if err != nil {
		spinner.Fail("Upload failed")
		return fmt.Errorf("request failed: %w", err)
	}

	var result datasetInfo
	if err := connection.ParseResponse(resp, &result); err != nil {
		spinner.Fail("Upload failed")
		return err
	}
	spinner.Success(fmt.Sprintf("Registered %s (%d rows, %d columns)",
		result.ID, result.RowCount, result.ColCount))

	flags := ParseGlobalFlags(c)
	switch output.Format(flags.Output) {
	case output.FormatJSON:
		formatter := &output.JSONFormatter{}
		return formatter.Format(os.Stdout, result)
	case output.FormatYAML:
		formatter := &output.YAMLFormatter{}
		return formatter.Format(os.Stdout, result)
	default:
		return nil
	}
}

func datasetGet(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("dataset ID required")
	}
	datasetID := c.Args().First()

	client, err := EnsureUser(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.Get(ctx, "/datasets/"+datasetID)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var result datasetInfo
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
		fmt.Printf("Dataset: %s\n", result.ID)
		fmt.Printf("Name:    %s\n", result.Name)
		fmt.Printf("Owner:   %s\n", result.OwnerID)
		fmt.Printf("State:   %s\n", result.State)
		if result.ParentID != "" {
			fmt.Printf("Parent:  %s\n", result.ParentID)
		}
		fmt.Printf("Shape:   %d rows x %d columns\n", result.RowCount, result.ColCount)
		fmt.Printf("Created: %s\n", result.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	}
}

// readCSVColumns reads a CSV file with a header row into the columnar
// upload payload. Empty cells become nulls.
func readCSVColumns(path string, types map[string]string) ([]columnUpload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}

	header := records[0]
	columns := make([]columnUpload, len(header))
	for i, colName := range header {
		colType := "string"
		if t, ok := types[colName]; ok {
			colType = t
		}
		columns[i] = columnUpload{
			Name:   colName,
			Type:   colType,
			Values: make([]*string, 0, len(records)-1),
		}
	}

	for rowNum, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%s: row %d has %d cells, want %d",
				path, rowNum+2, len(record), len(header))
		}
		for i, cell := range record {
			if cell == "" {
				columns[i].Values = append(columns[i].Values, nil)
				continue
			}
			v := cell
			columns[i].Values = append(columns[i].Values, &v)
		}
	}

	return columns, nil
}

// baseName strips directory and extension from a file path.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
