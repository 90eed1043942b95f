package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"studynotes/internal/logger"
	"studynotes/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or delete stored notes",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored note",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyDeleteCmd)

	historyListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history-cmd")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := createContextWithTimeout(30*time.Second, log)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	notes, err := st.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		data, err := json.MarshalIndent(notes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		return writeOutput(data, "", log)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tKIND\tTRUNCATED\tCREATED")
	for _, n := range notes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", n.ID, n.Filename, n.Kind, n.Truncated, n.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("history-cmd")

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid note id %q", args[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := createContextWithTimeout(30*time.Second, log)
	defer cancel()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("note %d not found", id)
		}
		return err
	}
	fmt.Printf("Deleted note %d\n", id)
	return nil
}
