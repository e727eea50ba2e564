// Package main provides a CLI tool for debugging playlist classification.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/savid/iptv-catalog/internal/catalog"
	"github.com/savid/iptv-catalog/internal/config"
	"github.com/savid/iptv-catalog/internal/data"
	"github.com/savid/iptv-catalog/internal/m3u"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	playlistPath string
	username     string
	password     string
	typeFilter   string
	search       string
	asJSON       bool
	logLevel     string
	log          = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "classify",
		Short: "Debug playlist parsing and classification",
		Long: `A debugging tool to analyze how playlist entries are classified.

Outputs detailed information about:
- Which rule and keyword decided the type of every entry
- Lines dropped while pairing metadata with stream URLs
- Per-type and per-category counts

Examples:
  # Using a local file
  go run cmd/classify/main.go --playlist testdata/playlist.m3u

  # Using a panel account
  go run cmd/classify/main.go --playlist https://panel.example.com --username u --password p

  # Only movies matching a name, as JSON
  go run cmd/classify/main.go --playlist list.m3u --type movie --search matrix --json`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&playlistPath, "playlist", "", "Path or URL to playlist, or panel base URL (required)")
	rootCmd.Flags().StringVar(&username, "username", "", "Panel username (enables panel mode)")
	rootCmd.Flags().StringVar(&password, "password", "", "Panel password")
	rootCmd.Flags().StringVar(&typeFilter, "type", "", "Only show records of this type (live, movie, series)")
	rootCmd.Flags().StringVar(&search, "search", "", "Only show records whose name contains this text")
	rootCmd.Flags().BoolVar(&asJSON, "json", false, "Print the filtered records as JSON")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	if err := rootCmd.MarkFlagRequired("playlist"); err != nil {
		log.WithError(err).Fatal("Failed to mark playlist flag as required")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// loadText fetches the playlist from a URL or reads it from a local file. It
// returns the text and the URL it came from, if any.
func loadText(ctx context.Context) (string, string, error) {
	if !isURL(playlistPath) {
		raw, err := os.ReadFile(playlistPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read playlist: %w", err)
		}

		return string(raw), "", nil
	}

	source := config.Source{Mode: config.ModeM3U, URL: playlistPath}
	if username != "" {
		source = config.Source{Mode: config.ModePanel, URL: playlistPath, Username: username, Password: password}
	}

	if err := source.Validate(); err != nil {
		return "", "", err
	}

	playlistURL := source.PlaylistURL()

	text, err := data.NewFetcher(log, data.FetcherOptions{}).Fetch(ctx, playlistURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch playlist: %w", err)
	}

	return text, playlistURL, nil
}

func run(cmd *cobra.Command, args []string) error {
	// Configure logger
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	var filterType catalog.Type

	if typeFilter != "" {
		filterType, err = catalog.ParseType(typeFilter)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	log.WithField("source", playlistPath).Info("Loading playlist")

	text, sourceURL, err := loadText(ctx)
	if err != nil {
		return err
	}

	lines := m3u.Lines(text)

	if !m3u.HasMetadata(lines) {
		log.Warn("Playlist has no #EXTINF lines")

		records := catalog.Parse(text, sourceURL)
		if asJSON {
			return printJSON(records)
		}

		fmt.Printf("No metadata found, %d direct-link record(s)\n", len(records))

		return nil
	}

	entries, stats := m3u.ParseWithStats(lines)
	records := catalog.Assemble(entries)

	log.WithFields(logrus.Fields{
		"lines":             len(lines),
		"entries":           stats.Entries,
		"orphaned_metadata": stats.OrphanedMetadata,
		"orphaned_urls":     stats.OrphanedURLs,
	}).Info("Parsed playlist")

	selected := make([]int, 0, len(records))

	for i, r := range records {
		if filterType != "" && r.Type() != filterType {
			continue
		}

		if !matchesSearch(r.Name) {
			continue
		}

		selected = append(selected, i)
	}

	if asJSON {
		out := make([]catalog.Record, 0, len(selected))

		for _, i := range selected {
			out = append(out, records[i])
		}

		return printJSON(out)
	}

	analyzeResults(entries, records, selected, stats)

	return nil
}

func matchesSearch(name string) bool {
	if search == "" {
		return true
	}

	return strings.Contains(strings.ToLower(name), strings.ToLower(search))
}

func printJSON(records []catalog.Record) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(records)
}

// analyzeResults prints detailed classification analysis.
func analyzeResults(entries []m3u.Entry, records []catalog.Record, selected []int, stats m3u.ParseStats) {
	byRule := make(map[catalog.Rule][]int, 5)
	keywordCount := make(map[string]int)

	for _, i := range selected {
		c := catalog.Explain(entries[i].Name, entries[i].Group)
		byRule[c.Rule] = append(byRule[c.Rule], i)

		if c.Keyword != "" {
			keywordCount[c.Keyword]++
		}
	}

	rules := []catalog.Rule{
		catalog.RuleCategoryMovie,
		catalog.RuleCategorySeries,
		catalog.RuleNameMovie,
		catalog.RuleNameSeries,
		catalog.RuleDefault,
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("CLASSIFIED RECORDS (%d/%d shown)\n", len(selected), len(records))
	fmt.Println(strings.Repeat("=", 80))

	for _, rule := range rules {
		indexes := byRule[rule]
		if len(indexes) == 0 {
			continue
		}

		fmt.Printf("\n  [%s] (%d records)\n", strings.ToUpper(string(rule)), len(indexes))

		for _, i := range indexes {
			c := catalog.Explain(entries[i].Name, entries[i].Group)
			keyword := c.Keyword

			if keyword == "" {
				keyword = "-"
			}

			fmt.Printf("    %-40s %-25s %-7s [%s]\n",
				truncate(records[i].Name, 40),
				truncate(records[i].Category, 25),
				records[i].Type(),
				keyword,
			)
		}
	}

	// Print summary
	split := catalog.SplitByType(records)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("  Total records:       %d\n", len(records))
	fmt.Printf("  Live:                %d\n", len(split.Live))
	fmt.Printf("  Movies:              %d\n", len(split.Movies))
	fmt.Printf("  Series:              %d\n", len(split.Series))
	fmt.Println()
	fmt.Printf("  Dropped lines:\n")
	fmt.Printf("    metadata without url: %d\n", stats.OrphanedMetadata)
	fmt.Printf("    url without metadata: %d\n", stats.OrphanedURLs)
	fmt.Println()
	fmt.Printf("  Categories:          %d\n", len(catalog.Categories(records)))

	if len(keywordCount) > 0 {
		fmt.Println()
		fmt.Printf("  Keyword hits:\n")

		keywords := make([]string, 0, len(keywordCount))
		for kw := range keywordCount {
			keywords = append(keywords, kw)
		}

		sort.Slice(keywords, func(i, j int) bool {
			if keywordCount[keywords[i]] != keywordCount[keywords[j]] {
				return keywordCount[keywords[i]] > keywordCount[keywords[j]]
			}

			return keywords[i] < keywords[j]
		})

		for _, kw := range keywords {
			fmt.Printf("    %-12s %d\n", kw, keywordCount[kw])
		}
	}

	fmt.Println(strings.Repeat("=", 80))
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen-3]) + "..."
}
