package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citegraph/internal/app"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/matsen/citegraph/internal/viz"
)

// DefaultSettleTicks bounds the layout run before a static render.
const DefaultSettleTicks = 500

var (
	renderOutput  string
	renderOffline bool
	renderInput   string
	renderLayout  string
	renderNoLabel bool
	renderTicks   int
)

func init() {
	for _, cmd := range []*cobra.Command{renderCmd, vizCmd} {
		cmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file path (default: stdout)")
		cmd.Flags().BoolVar(&renderOffline, "offline", false, "Use the last cached snapshot instead of the backend")
		cmd.Flags().StringVar(&renderInput, "input", "", "Read the graph from a JSONL export instead of the backend")
		cmd.Flags().StringVar(&renderLayout, "layout", "", "Layout: force or circular (default from config)")
		cmd.Flags().BoolVar(&renderNoLabel, "no-labels", false, "Hide node labels")
		cmd.Flags().IntVar(&renderTicks, "ticks", DefaultSettleTicks, "Maximum simulation ticks before rendering")
		rootCmd.AddCommand(cmd)
	}
	statsCmd.Flags().BoolVar(&renderOffline, "offline", false, "Use the last cached snapshot instead of the backend")
	rootCmd.AddCommand(statsCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the citation graph to SVG",
	Long: `Fetch the citation graph, run the layout until it settles and write
the result as SVG.

Examples:
  # Render to stdout
  cg render > graph.svg

  # Circular layout without labels
  cg render --layout circular --no-labels -o graph.svg

  # Render the last graph fetched, without contacting the backend
  cg render --offline -o graph.svg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := mustLoadGraph(cmd, renderLayout, !renderNoLabel)
		defer ctrl.Close()

		ctrl.Settle(renderTicks)
		svg, err := ctrl.SVG()
		if err != nil {
			return fmt.Errorf("rendering SVG: %w", err)
		}
		writeOutput(renderOutput, svg)
		return nil
	},
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Generate a standalone HTML view of the citation graph",
	Long: `Generate a static HTML page with the settled graph and its statistics.
Use 'cg serve' for the interactive viewer.

Examples:
  cg viz --output graph.html
  cg viz --offline --layout circular > graph.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := mustLoadGraph(cmd, renderLayout, !renderNoLabel)
		defer ctrl.Close()

		ctrl.Settle(renderTicks)
		page, err := ctrl.Page(false)
		if err != nil {
			return fmt.Errorf("building page: %w", err)
		}
		html, err := viz.GenerateHTML(page)
		if err != nil {
			return fmt.Errorf("generating HTML: %w", err)
		}
		writeOutput(renderOutput, []byte(html))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show paper, author, journal and citation counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl := mustLoadGraph(cmd, "", true)
		defer ctrl.Close()

		stats := ctrl.Stats()
		if humanOutput {
			printStatsHuman(stats)
			return nil
		}
		return outputJSON(stats)
	},
}

// mustLoadGraph builds a controller and fills it from the backend, the
// snapshot cache (--offline) or a JSONL file (--input). Graphs fetched
// from the backend are cached.
func mustLoadGraph(cmd *cobra.Command, layout string, labels bool) *app.Controller {
	cfg := mustLoadConfig()
	if layout != "" {
		cfg.Layout = layout
	}
	cfg.ShowLabels = labels
	logger := newLogger()

	switch {
	case renderInput != "":
		ctrl := mustNewController(cfg, logger, nil)
		data, err := storage.ReadGraphFile(renderInput)
		if err != nil {
			exitWithError(ExitDataError, "reading %s: %v", renderInput, err)
		}
		if err := ctrl.Load(data); err != nil {
			exitWithError(ExitDataError, "loading %s: %v", renderInput, err)
		}
		return ctrl

	case renderOffline:
		db := mustOpenCache(cfg)
		defer db.Close()
		snap, err := db.LatestSnapshot(cmd.Context())
		if err != nil {
			exitWithError(exitCodeFor(err), "loading cached snapshot: %v", err)
		}
		logger.Debug("using cached snapshot", zap.String("id", snap.ID), zap.Time("created", snap.CreatedAt))
		ctrl := mustNewController(cfg, logger, nil)
		if err := ctrl.Load(snap.Data); err != nil {
			exitWithError(ExitDataError, "loading snapshot %s: %v", snap.ID, err)
		}
		return ctrl
	}

	db := mustOpenCache(cfg)
	defer db.Close()
	ctrl := mustNewController(cfg, logger, db)
	if err := ctrl.Reload(cmd.Context()); err != nil {
		exitOnRequestError(err, ctrl.Notification().Message)
	}
	pruneCache(cmd.Context(), db, cfg.KeepSnapshots, logger)
	return ctrl
}
