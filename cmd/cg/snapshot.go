package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/storage"
)

var (
	snapshotLimit  int
	snapshotOutput string
	snapshotKeep   int
)

func init() {
	snapshotListCmd.Flags().IntVar(&snapshotLimit, "limit", 20, "Maximum snapshots to list (0 for all)")
	snapshotExportCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "", "Output file path (default: stdout)")
	snapshotPruneCmd.Flags().IntVar(&snapshotKeep, "keep", -1, "Snapshots to keep (default from config)")

	snapshotCmd.AddCommand(snapshotListCmd, snapshotExportCmd, snapshotImportCmd, snapshotPruneCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the local snapshot cache",
	Long: `Every graph fetched from the backend is cached locally so it can be
rendered with --offline. Snapshots can be exported to and imported from
JSONL (one node or link per line).`,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenCache(cfg)
		defer db.Close()

		infos, err := db.ListSnapshots(cmd.Context(), snapshotLimit)
		if err != nil {
			return fmt.Errorf("listing snapshots: %w", err)
		}
		if !humanOutput {
			if infos == nil {
				infos = []storage.SnapshotInfo{}
			}
			return outputJSON(infos)
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots cached")
			return nil
		}
		rows := make([][]string, len(infos))
		for i, info := range infos {
			rows[i] = []string{
				info.ID,
				info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				strconv.Itoa(info.Nodes),
				strconv.Itoa(info.Links),
				info.Source,
			}
		}
		printTable([]string{"ID", "CREATED", "NODES", "LINKS", "SOURCE"}, rows)
		return nil
	},
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Export a snapshot as JSONL (latest if no id)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		db := mustOpenCache(cfg)
		defer db.Close()

		var snap *storage.Snapshot
		var err error
		if len(args) == 1 {
			snap, err = db.GetSnapshot(cmd.Context(), args[0])
		} else {
			snap, err = db.LatestSnapshot(cmd.Context())
		}
		if err != nil {
			exitWithError(exitCodeFor(err), "loading snapshot: %v", err)
		}

		if snapshotOutput == "" {
			return storage.WriteGraph(os.Stdout, snap.Data)
		}
		if err := storage.WriteGraphFile(snapshotOutput, snap.Data); err != nil {
			return fmt.Errorf("exporting snapshot: %w", err)
		}
		if humanOutput {
			fmt.Printf("%s %s to %s\n", successStyle.Sprint("Exported"), snap.ID, snapshotOutput)
			return nil
		}
		return outputJSON(map[string]string{"id": snap.ID, "output": snapshotOutput})
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add a JSONL export to the cache as the newest snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := storage.ReadGraphFile(args[0])
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", args[0], err)
		}

		cfg := mustLoadConfig()
		db := mustOpenCache(cfg)
		defer db.Close()
		db.SetSource("file:" + args[0])

		id, err := db.SaveSnapshot(cmd.Context(), data)
		if err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		if humanOutput {
			fmt.Printf("%s %s (%d nodes, %d links)\n", successStyle.Sprint("Imported"), id, len(data.Nodes), len(data.Links))
			return nil
		}
		return outputJSON(storage.SnapshotInfo{ID: id, Source: "file:" + args[0], Nodes: len(data.Nodes), Links: len(data.Links)})
	},
}

var snapshotPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		keep := cfg.KeepSnapshots
		if snapshotKeep >= 0 {
			keep = snapshotKeep
		}
		db := mustOpenCache(cfg)
		defer db.Close()

		n, err := db.Prune(cmd.Context(), keep)
		if err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		if humanOutput {
			fmt.Printf("Deleted %d snapshot(s), kept at most %d\n", n, keep)
			return nil
		}
		return outputJSON(map[string]int{"deleted": n, "kept": keep})
	},
}

// pruneCache trims the cache after a fetch. keep 0 leaves it unbounded.
func pruneCache(ctx context.Context, db *storage.DB, keep int, logger *zap.Logger) {
	if keep <= 0 {
		return
	}
	n, err := db.Prune(ctx, keep)
	if err != nil {
		logger.Warn("pruning snapshot cache", zap.Error(err))
		return
	}
	if n > 0 {
		logger.Debug("pruned snapshot cache", zap.Int("deleted", n))
	}
}
