package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/fulltext/pkg/core"
	"github.com/rubiojr/fulltext/pkg/iiif"
	"github.com/rubiojr/fulltext/pkg/search"
	"github.com/rubiojr/fulltext/pkg/storage"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	itemStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	matchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("220"))

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("32")).
			Padding(0, 1)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

var titleCaser = cases.Title(language.English)

// granularityLabel returns the plural display label, e.g. "Lines".
func granularityLabel(g core.Granularity) string {
	return titleCaser.String(strings.ToLower(g.String())) + "s"
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the full text of a record",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "dataset",
				Usage:    "Dataset id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "local",
				Usage:    "Local id of the record",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "query",
				Usage:    "Search query",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Maximum number of annotations (0 for the configured default)",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Comma separated granularities to match, e.g. Line,Word",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the IIIF search response instead of a summary",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "IIIF version of the --json output (2 or 3)",
				Value: "3",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			types, err := core.ParseGranularities(c.String("type"))
			if err != nil {
				return err
			}
			format, err := iiif.ParseVersion(c.String("format"))
			if err != nil {
				return err
			}

			manager := storage.NewManager(cfg.StorageDir)
			defer closeManager(manager)

			service := newSearchService(cfg, manager)
			rec := core.RecordID{DatasetID: c.String("dataset"), LocalID: c.String("local")}
			params := search.SearchParams{
				Query:    c.String("query"),
				PageSize: int(c.Int("page-size")),
				Types:    types,
				Debug:    c.Bool("debug") || cfg.Search.Debug,
			}

			result, err := service.SearchIssue(ctx, rec, params)
			if err != nil {
				return fmt.Errorf("searching %s: %w", rec, err)
			}

			if c.Bool("json") {
				mapper := iiif.NewMapper(iiif.NewSettingsHolder(presentationSettings(cfg)))
				q := iiif.Query{Record: rec, Text: params.Query, PageSize: params.PageSize, Types: types}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(mapper.Map(result, q, format))
			}

			printResult(rec, params.Query, result)
			return nil
		},
	}
}

func printResult(rec core.RecordID, query string, result *core.SearchResult) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("🔍 %q in %s", query, rec)))

	items := result.Items()
	if len(items) == 0 {
		fmt.Println(noDataStyle.Render("No results found"))
		return
	}

	lastPage := ""
	for _, item := range items {
		if item.Page.PageKey != lastPage {
			lastPage = item.Page.PageKey
			fmt.Println(headerStyle.Render(fmt.Sprintf("Page %s", item.Page.PageID)) + " " + metaStyle.Render(item.Page.PageKey))
		}
		fmt.Println(itemStyle.Render(renderItem(item)))
	}

	fmt.Println(summaryStyle.Render(fmt.Sprintf("%d annotations", len(items))))

	if result.Debug {
		d := result.Diagnostics
		fmt.Println(metaStyle.Render(fmt.Sprintf(
			"skipped snippets: %d, merged hits: %d, unlocated hits: %d, unmatched hits: %d, empty pages: %d",
			d.SkippedSnippets, d.MergedHits, d.UnlocatedHits, d.UnmatchedHits, d.EmptyPages)))
		for _, h := range result.Hits() {
			fmt.Println(metaStyle.Render("  " + h.String()))
		}
	}
}

func renderItem(item *core.Item) string {
	g := item.Annotation.Granularity
	label := titleCaser.String(strings.ToLower(g.String()))
	header := metaStyle.Render(fmt.Sprintf("%s %s", label, item.Annotation.ID))
	if item.Annotation.Span != nil {
		header += metaStyle.Render(fmt.Sprintf(" [%d,%d)", item.Annotation.Span.From, item.Annotation.Span.To))
	}

	var lines []string
	lines = append(lines, header)
	for _, h := range item.Highlights {
		lines = append(lines, h.Selector.Prefix+matchStyle.Render(h.Selector.Exact)+h.Selector.Suffix)
	}
	return strings.Join(lines, "\n")
}
