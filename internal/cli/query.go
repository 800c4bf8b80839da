package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docvec/config"
	"docvec/internal/adapter/store"
	"docvec/internal/domain"
	"docvec/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Retrieve chunks similar to a query",
	Long: `Embed the query text and retrieve the most similar chunks from the
configured vector search index. The directory must have been indexed first.

Examples:
  docvec query -q "how do refunds work"
  docvec query -q "error handling" -k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if err := cfg.ValidateQuery(); err != nil {
		return domain.WrapStage(domain.StageConfig, err)
	}

	topK := queryTopK
	if topK <= 0 {
		topK = cfg.Query.TopK
	}

	ctx := cmd.Context()

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	index, err := newVectorIndex(ctx, cfg, embedder, false)
	if err != nil {
		return err
	}

	dbPath := config.StoreDBPath(GetRootDir())
	if _, err := os.Stat(dbPath); err != nil {
		return domain.StageErrorf(domain.StageStore,
			"no local index found at %s (run 'docvec index' first)", dbPath)
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return domain.WrapStage(domain.StageStore, err)
	}
	defer st.Close()

	uc := usecase.NewQueryUseCase(st, embedder, index)
	results, err := uc.Query(ctx, queryText, topK)
	if err != nil {
		return err
	}

	if queryJSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.4f) ---\n", i+1, r.SourcePath, r.Score)
		fmt.Println(truncate(r.Text, 500))
		fmt.Println()
	}
	return nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
