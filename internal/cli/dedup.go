package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/placecrawl/internal/dedup"
	"github.com/ppiankov/placecrawl/internal/export"
	"github.com/ppiankov/placecrawl/internal/model"
)

var dedupOut string

// dedupCmd represents the dedup command
var dedupCmd = &cobra.Command{
	Use:   "dedup <file.jsonl>",
	Short: "Re-deduplicate an exported JSONL catalog",
	Long: `Dedup replays the places of a JSONL export through a fresh catalog in
file order, using the current dedup thresholds. Use it to try other
thresholds without crawling again.

Example:
  placecrawl dedup places.jsonl
  PLACECRAWL_DEDUP_NAME_THRESHOLD=90 placecrawl dedup places.jsonl --out strict.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runDedup,
}

func init() {
	rootCmd.AddCommand(dedupCmd)
	dedupCmd.Flags().StringVarP(&dedupOut, "out", "o", "", "output path (.csv, .jsonl or .db; default <input>.dedup.jsonl)")
}

func runDedup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	in := args[0]
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	records, err := export.ReadJSONL(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}

	kept, stats := rededuplicate(records, cfg.Dedup)

	out := dedupOut
	if out == "" {
		out = strings.TrimSuffix(in, ".jsonl") + ".dedup.jsonl"
	}
	written, err := export.Write(context.Background(), out, kept, nil)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "  Input:             %d places\n", len(records))
	fmt.Fprintf(w, "  Similar rejected:  %d\n", stats.RejectedSimilar)
	fmt.Fprintf(w, "  Facility rejected: %d\n", stats.RejectedFacility)
	fmt.Fprintf(w, "  Invalid:           %d\n", stats.Invalid)
	fmt.Fprintf(w, "  Written:           %d → %s\n", written, out)
	return nil
}

// rededuplicate admits records in order into a catalog built from cfg.
// Records whose coordinates or fields are unusable are counted as invalid.
func rededuplicate(records []model.PlaceRecord, cfg model.DedupConfig) ([]model.PlaceRecord, model.KeywordStats) {
	catalog := dedup.NewCatalogFromConfig(cfg)
	var stats model.KeywordStats
	for i := range records {
		rec := records[i]
		if strings.TrimSpace(rec.Name) == "" || strings.TrimSpace(rec.Address) == "" || !rec.HasLocation() {
			stats.Invalid++
			continue
		}
		switch catalog.AdmitDecision(&rec).Reason {
		case dedup.ReasonSimilar:
			stats.RejectedSimilar++
		case dedup.ReasonSameFacility:
			stats.RejectedFacility++
		default:
			stats.Admitted++
		}
	}
	return catalog.Records(), stats
}
