package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/toolscout/prospector/internal/events"
	"github.com/toolscout/prospector/internal/model"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search \"query\"",
	Short: "Run a one-shot prospect search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "search", false)
		if err != nil {
			return err
		}
		defer env.Close()

		result := env.Runner.Run(ctx, args[0], events.NewRecorder(cfg.Events.Retention))

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printResult(os.Stdout, result)
		return nil
	},
}

func printResult(out io.Writer, result *model.SearchResult) {
	for _, ev := range result.Events {
		fmt.Fprintf(out, "[%s] %s\n", ev.Kind, ev.Message)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, result.Summary)

	if result.TableData == nil {
		return
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(result.TableData.Columns, "\t")))
	for _, row := range result.TableData.Rows {
		cells := make([]string, len(result.TableData.Columns))
		for i, col := range result.TableData.Columns {
			cells[i] = row[col]
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(searchCmd)
}
