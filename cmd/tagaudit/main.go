package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tagaudit/internal/analysis"
	"tagaudit/internal/catalogue"
	"tagaudit/internal/config"
	"tagaudit/internal/corpus"
	"tagaudit/internal/extract"
	"tagaudit/internal/report"
	"tagaudit/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tagaudit",
		Short: "Folksonomy rationalisation analysis for catalogued collections",
	}
	dbPath       string
	configPath   string
	snapshotPath string
	runID        string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "tagaudit.db", "Path to the local analysis database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")

	analyzeCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Analyze a snapshot JSON file instead of the stored snapshot")
	reportCmd.Flags().StringVar(&runID, "run", "", "Render a specific run (defaults to the most recent)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reportCmd)
}

func initStore() (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(dbPath)
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Fetch the catalogue corpus and build the tag snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Catalogue.GroupID == "" {
			log.Fatalf("Catalogue group ID not configured (set catalogue.group_id or TAGAUDIT_GROUP_ID)")
		}

		ctx := context.Background()
		client := catalogue.NewClient(cfg.Catalogue.GroupID, cfg.Catalogue.LibraryType, cfg.Catalogue.APIKey)

		fmt.Println("Fetching catalogue items...")
		items, err := client.Items(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch items: %v", err)
		}
		fmt.Printf("Fetched %d items.\n", len(items))

		fmt.Println("Fetching child records...")
		children := make(map[string][]catalogue.Item)
		for _, item := range items {
			if item.Data.ParentItem != "" || item.Meta.NumChildren == 0 {
				continue
			}
			kids, err := client.Children(ctx, item.Key)
			if err != nil {
				log.Fatalf("Failed to fetch children of %s: %v", item.Key, err)
			}
			children[item.Key] = kids
		}

		snap := extract.BuildSnapshot(items, children)
		if err := snap.Validate(); err != nil {
			log.Fatalf("Snapshot failed validation: %v", err)
		}

		fmt.Printf("Extracted %d tags across %d items (%d untagged).\n",
			snap.Stats.UniqueTags, snap.Stats.TotalItems, snap.Stats.ItemsWithoutTags)

		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		if err := store.SaveSnapshot(ctx, snap); err != nil {
			log.Fatalf("Failed to save snapshot: %v", err)
		}

		if err := os.MkdirAll(cfg.Output.DataDir, 0o755); err != nil {
			log.Fatalf("Failed to create data dir: %v", err)
		}
		payload, err := snap.Marshal()
		if err != nil {
			log.Fatalf("Failed to encode snapshot: %v", err)
		}
		out := filepath.Join(cfg.Output.DataDir, "raw_tags.json")
		if err := os.WriteFile(out, payload, 0o644); err != nil {
			log.Fatalf("Failed to write snapshot: %v", err)
		}

		fmt.Printf("Snapshot saved to %s and %s.\n", dbPath, out)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the tag rationalisation analysis over a snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()
		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		var snap *corpus.Snapshot
		if snapshotPath != "" {
			snap, err = corpus.LoadSnapshot(snapshotPath)
		} else {
			snap, err = store.LoadLatestSnapshot(ctx)
		}
		if err != nil {
			log.Fatalf("Failed to load snapshot: %v", err)
		}

		engine, err := analysis.New(cfg.Analysis)
		if err != nil {
			log.Fatalf("Invalid analysis options: %v", err)
		}

		fmt.Printf("Analyzing %d tags across %d items...\n", len(snap.Tags), len(snap.Items))
		res, err := engine.Run(ctx, snap)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

		fmt.Printf("Found %d similar pairs, %d hierarchy candidates, %d co-occurring pairs.\n",
			len(res.SimilarPairs), len(res.Hierarchy), len(res.Cooccurrence))
		fmt.Printf("Quality: %d duplicates, %d non-primary, %d attachment patterns, %d without attachments.\n",
			len(res.Quality.Duplicates), len(res.Quality.NonPrimarySources),
			len(res.Quality.AttachmentPatterns), len(res.Quality.NoAttachments))

		if err := store.SaveRun(ctx, res); err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}

		if err := writeExports(cfg.Output.DataDir, res); err != nil {
			log.Fatalf("Failed to write exports: %v", err)
		}

		fmt.Printf("Run %s saved. Exports written to %s.\n", res.RunID, cfg.Output.DataDir)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render Markdown reports from a stored analysis run",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()
		store, err := initStore()
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()

		res, err := store.LoadRun(ctx, runID)
		if err != nil {
			log.Fatalf("Failed to load run: %v", err)
		}
		snap, err := store.LoadLatestSnapshot(ctx)
		if err != nil {
			log.Fatalf("Failed to load snapshot: %v", err)
		}

		if err := os.MkdirAll(cfg.Output.ReportsDir, 0o755); err != nil {
			log.Fatalf("Failed to create reports dir: %v", err)
		}

		reports := map[string]string{
			"tag_analysis.md":                    report.RenderTagAnalysis(res),
			"data_quality_issues.md":             report.RenderQuality(res),
			"multiple_attachments_inspection.md": report.RenderInspection(res, snap),
		}
		for name, content := range reports {
			path := filepath.Join(cfg.Output.ReportsDir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				log.Fatalf("Failed to write %s: %v", name, err)
			}
			fmt.Printf("Wrote %s\n", path)
		}
	},
}

func writeExports(dir string, res *analysis.Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	similar, err := os.Create(filepath.Join(dir, "similar_tags.csv"))
	if err != nil {
		return err
	}
	defer similar.Close()
	if err := report.WriteSimilarCSV(similar, res); err != nil {
		return err
	}

	hier, err := os.Create(filepath.Join(dir, "tag_hierarchy.csv"))
	if err != nil {
		return err
	}
	defer hier.Close()
	if err := report.WriteHierarchyCSV(hier, res); err != nil {
		return err
	}

	network, err := os.Create(filepath.Join(dir, "tag_network.json"))
	if err != nil {
		return err
	}
	defer network.Close()
	if err := report.WriteNetworkJSON(network, res); err != nil {
		return err
	}

	return report.WriteQualityCSVs(dir, res)
}
