package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/app"
	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/forms"
	"github.com/matsen/citegraph/internal/notify"
)

var (
	addTitle   string
	addAuthors string
	addJournal string
	addYear    string
	addCited   string
)

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Paper title (required)")
	addCmd.Flags().StringVarP(&addAuthors, "authors", "a", "", "Comma-separated author names")
	addCmd.Flags().StringVarP(&addJournal, "journal", "j", "", "Journal name")
	addCmd.Flags().StringVarP(&addYear, "year", "y", "", "Publication year")
	addCmd.Flags().StringVarP(&addCited, "cites", "c", "", "Comma-separated titles of cited papers")
	rootCmd.AddCommand(addCmd, uploadCmd)
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a paper to the citation graph",
	Long: `Add a paper and its citations through the backend, then reload the graph.

Examples:
  cg add --title "Deep Learning" --authors "LeCun, Bengio, Hinton" \
    --journal Nature --year 2015 --cites "Backpropagation"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		logger := newLogger()
		db := mustOpenCache(cfg)
		defer db.Close()
		ctrl := mustNewController(cfg, logger, db)
		defer ctrl.Close()

		err := ctrl.Handle(cmd.Context(), events.Event{
			Name: events.SubmitPaper,
			Values: map[string]string{
				"title":        addTitle,
				"authors":      addAuthors,
				"journal":      addJournal,
				"year":         addYear,
				"cited_papers": addCited,
			},
		})
		return reportMutation(ctrl, err, forms.MsgPaperAdded)
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a CSV or JSON bibliography",
	Long: `Upload a CSV or JSON file of papers to the backend, then reload the graph.

Examples:
  cg upload references.csv
  cg upload --human papers.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			exitWithError(ExitError, "reading %s: %v", path, err)
		}
		file := forms.File{
			Name:     filepath.Base(path),
			MIMEType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		}

		cfg := mustLoadConfig()
		logger := newLogger()
		db := mustOpenCache(cfg)
		defer db.Close()
		ctrl := mustNewController(cfg, logger, db)
		defer ctrl.Close()

		if err := ctrl.Handle(cmd.Context(), events.Event{Name: events.FileSelect, Files: []forms.File{file}}); err != nil {
			return reportMutation(ctrl, err, "")
		}
		err = ctrl.Handle(cmd.Context(), events.Event{Name: events.Upload})
		return reportMutation(ctrl, err, "")
	},
}

// reportMutation prints the outcome of an add or upload. On success the
// backend's message is reported even if the follow-up reload failed;
// successMsg overrides it when set.
func reportMutation(ctrl *app.Controller, err error, successMsg string) error {
	n := ctrl.Notification()
	if err != nil {
		code := exitCodeFor(err)
		if errors.Is(err, forms.ErrValidation) || errors.Is(err, forms.ErrUnsupportedFile) || errors.Is(err, forms.ErrNoFile) {
			code = ExitDataError
		}
		exitWithError(code, "%s", n.Message)
	}

	msg := successMsg
	if msg == "" && n.Kind == notify.KindSuccess {
		msg = n.Message
	}
	if msg == "" {
		msg = "Done"
	}
	if n.Kind == notify.KindError {
		// The mutation went through; the reload that followed did not.
		fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Sprint("warning:"), n.Message)
	}

	if humanOutput {
		printNotification(notify.Notification{Message: msg, Kind: notify.KindSuccess})
		printStatsHuman(ctrl.Stats())
		return nil
	}
	return outputJSON(MessageResponse{Message: msg, Kind: notify.KindSuccess, Stats: ctrl.Stats()})
}
