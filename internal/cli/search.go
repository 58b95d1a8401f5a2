package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yapay-ai/provider-sentinel/pkg/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [terms]",
	Short: "Search the literature through the governed chain",
	Long: `Run a literature search. Results are cached by query so repeated
searches cost nothing, and each remote call bills one request unit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntP("limit", "n", 25, "Maximum number of results")
	searchCmd.Flags().Bool("json", false, "Emit raw JSON instead of a table")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	sys, err := initSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	client := search.NewClient(cfg.Search.BaseURL)
	query := search.Query{Term: strings.Join(args, " "), Limit: limit}

	result, err := sys.gateway.Perform(cmd.Context(), "search",
		query.Params(), []string{client.Name()}, client.Invoke(query))
	if err != nil {
		return err
	}

	if asJSON {
		fmt.Println(string(result.Value))
		return nil
	}

	var articles []search.Article
	if err := json.Unmarshal(result.Value, &articles); err != nil {
		return fmt.Errorf("decode cached results: %w", err)
	}

	if len(articles) == 0 {
		fmt.Println("No results.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tYEAR\tTITLE\tJOURNAL\n")
	for _, a := range articles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ID, a.Year, a.Title, a.Journal)
	}
	w.Flush()

	if result.Cached {
		fmt.Fprintln(cmd.ErrOrStderr(), "-- served from cache")
	}
	return nil
}
