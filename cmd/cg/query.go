package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citegraph/internal/api"
	"github.com/matsen/citegraph/internal/events"
	"github.com/matsen/citegraph/internal/graph"
	"github.com/matsen/citegraph/internal/query"
)

var queryHTML bool

func init() {
	queryCmd.PersistentFlags().BoolVar(&queryHTML, "html", false, "Print the results area as an HTML fragment")
	queryCmd.AddCommand(queryAuthorCmd, queryCitationsCmd, queryInfluentialCmd)
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the citation backend",
	Long: `Look up an author's papers, a paper's citations, or the most cited papers.

Examples:
  cg query author "Geoffrey Hinton"
  cg query citations "Deep Learning" --human
  cg query influential --html > influential.html`,
}

var queryAuthorCmd = &cobra.Command{
	Use:   "author <name>",
	Short: "List papers by an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryHTML {
			return runQueryHTML(cmd, query.KindAuthor, events.QueryAuthor, args[0])
		}
		name := strings.TrimSpace(args[0])
		if name == "" {
			exitWithError(ExitDataError, "%s", query.MsgEnterAuthor)
		}
		cfg := mustLoadConfig()
		res, err := newClient(cfg, newLogger()).PapersByAuthor(cmd.Context(), name)
		exitOnRequestError(err, api.UserMessage(err, "Query failed"))
		if !humanOutput {
			return outputJSON(res)
		}
		headerStyle.Printf("Papers by %s (%d found)\n", res.Author, res.Count)
		for i, p := range res.Papers {
			fmt.Printf("%d. %s\n", i+1, graph.Truncate(p.Title, ListTitleMaxLen))
			subtleStyle.Printf("   %s\n", paperMeta(p.Year, p.Journal, p.Authors))
		}
		return nil
	},
}

var queryCitationsCmd = &cobra.Command{
	Use:   "citations <title>",
	Short: "Show what a paper cites and what cites it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryHTML {
			return runQueryHTML(cmd, query.KindCitations, events.QueryCitations, args[0])
		}
		title := strings.TrimSpace(args[0])
		if title == "" {
			exitWithError(ExitDataError, "%s", query.MsgEnterTitle)
		}
		cfg := mustLoadConfig()
		res, err := newClient(cfg, newLogger()).Citations(cmd.Context(), title)
		exitOnRequestError(err, api.UserMessage(err, "Query failed"))
		if !humanOutput {
			return outputJSON(res)
		}
		headerStyle.Println(res.Paper)
		fmt.Printf("Cites %d paper(s):\n", res.CitationsCount)
		for _, t := range res.Cites {
			fmt.Printf("  - %s\n", t)
		}
		fmt.Printf("Cited by %d paper(s):\n", res.CitedByCount)
		for _, t := range res.CitedBy {
			fmt.Printf("  - %s\n", t)
		}
		return nil
	},
}

var queryInfluentialCmd = &cobra.Command{
	Use:   "influential",
	Short: "Rank papers by citation count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryHTML {
			return runQueryHTML(cmd, query.KindInfluential, events.QueryInfluential, "")
		}
		cfg := mustLoadConfig()
		papers, err := newClient(cfg, newLogger()).Influential(cmd.Context())
		exitOnRequestError(err, api.UserMessage(err, "Query failed"))
		if !humanOutput {
			if papers == nil {
				papers = []api.InfluentialPaper{}
			}
			return outputJSON(papers)
		}
		rows := make([][]string, len(papers))
		for i, p := range papers {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(p.CitationCount),
				graph.Truncate(p.Title, ListTitleMaxLen),
				p.Year.String(),
			}
		}
		printTable([]string{"#", "CITED", "TITLE", "YEAR"}, rows)
		return nil
	},
}

// runQueryHTML runs a lookup through the viewer's query panel and prints
// its results area. Backend rejections are part of the fragment.
func runQueryHTML(cmd *cobra.Command, kind query.Kind, name events.Name, input string) error {
	cfg := mustLoadConfig()
	ctrl := mustNewController(cfg, newLogger(), nil)
	defer ctrl.Close()

	err := ctrl.Handle(cmd.Context(), events.Event{Name: name, Value: input})
	if err != nil && !api.IsAPIError(err) {
		exitOnRequestError(err, ctrl.Notification().Message)
	}
	fmt.Println(ctrl.Result(kind).HTML)
	return nil
}

// paperMeta joins year, journal and authors for a one-line summary.
func paperMeta(year graph.FlexString, journal string, authors graph.StringList) string {
	var parts []string
	if y := year.String(); y != "" {
		parts = append(parts, y)
	}
	if journal != "" {
		parts = append(parts, journal)
	}
	if len(authors) > 0 {
		parts = append(parts, authors.Join())
	}
	return strings.Join(parts, " | ")
}
