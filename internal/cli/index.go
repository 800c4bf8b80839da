package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docvec/config"
	"docvec/internal/adapter/chunker"
	"docvec/internal/adapter/fs"
	"docvec/internal/adapter/loader"
	"docvec/internal/adapter/store"
	"docvec/internal/domain"
	"docvec/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Load supported documents from the given directory, chunk them, embed the
chunks and upsert the vectors into the configured vector search index.
Unchanged files are skipped on re-runs; vanished files are removed.

Examples:
  docvec index .                  # Index current directory
  docvec index /path/to/docs      # Index specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.StageErrorf(domain.StageLoad, "path does not exist: %v", err)
	}
	if !info.IsDir() {
		return domain.StageErrorf(domain.StageLoad, "path is not a directory: %s", path)
	}

	cfg := GetConfig()

	// Configuration problems surface before any file is read.
	if err := cfg.ValidateIndexing(); err != nil {
		return domain.WrapStage(domain.StageConfig, err)
	}
	if cfg.Index.Provider == "vertex" {
		slog.Debug("using staging bucket", "bucket", cfg.NormalizedStagingBucket())
	}

	ctx := cmd.Context()

	chk, err := chunker.NewCharChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return err
	}

	index, err := newVectorIndex(ctx, cfg, embedder, true)
	if err != nil {
		return err
	}

	if err := config.EnsureStateDir(path); err != nil {
		return domain.StageErrorf(domain.StageStore, "failed to create state directory: %v", err)
	}
	st, err := store.NewBoltStore(config.StoreDBPath(path))
	if err != nil {
		return domain.WrapStage(domain.StageStore, err)
	}
	defer st.Close()

	walker := fs.NewWalker(cfg.Source.Suffixes, cfg.Source.Recursive, cfg.Source.Excludes)
	ld := loader.NewDirectoryLoader(walker)

	fingerprint := usecase.Fingerprint(cfg.Chunking.Size, cfg.Chunking.Overlap, embedder.ModelName())
	indexUC := usecase.NewIndexUseCase(st, ld, chk, embedder, index, cfg.Embedding.BatchSize, fingerprint)

	fmt.Printf("Indexing %s...\n", path)

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(done)
	}

	result, err := indexUC.Index(ctx, path, progress)
	if err != nil {
		return err
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:  %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files deleted:  %d (removed)\n", result.FilesDeleted)
	fmt.Printf("  Chunks upserted: %d\n", result.ChunksUpserted)
	if result.Rebuilt {
		fmt.Println("  Local store was rebuilt (parameters changed)")
	}
	fmt.Println("\nNote: the remote index may take some time to reflect new upserts.")
	return nil
}
