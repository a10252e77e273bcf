package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/placecrawl/internal/cache"
	"github.com/ppiankov/placecrawl/internal/dedup"
	"github.com/ppiankov/placecrawl/internal/export"
	"github.com/ppiankov/placecrawl/internal/model"
	"github.com/ppiankov/placecrawl/internal/pipeline"
	"github.com/ppiankov/placecrawl/internal/source"
	"github.com/ppiankov/placecrawl/internal/source/kakao"
	"github.com/ppiankov/placecrawl/internal/source/naver"
	"github.com/ppiankov/placecrawl/internal/util"
	"github.com/ppiankov/placecrawl/internal/worker"
)

// Environment variables holding API credentials
const (
	envKakaoKey     = "KAKAO_REST_API_KEY"
	envNaverID      = "NAVER_CLIENT_ID"
	envNaverSecret  = "NAVER_CLIENT_SECRET"
	sourceKakao     = "kakao"
	sourceNaver     = "naver"
	defaultCrawlOut = "places.csv"
)

var (
	regionsFile string
	themesFile  string
	noImages    bool
	noCache     bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl places for every region x theme keyword",
	Long: `Crawl searches the place source for every "<region> <theme>" keyword,
pages through the results and admits each valid place into a deduplicating
catalog. Admitted places are enriched with image URLs. The final catalog is
written as CSV, JSONL or SQLite depending on the --out extension.

Credentials are read from the environment:
  KAKAO_REST_API_KEY                   Kakao Local and image search
  NAVER_CLIENT_ID, NAVER_CLIENT_SECRET Naver Local search

Example:
  placecrawl crawl --regions 서울,부산 --themes 한옥카페,수목원
  placecrawl crawl --regions-file regions.txt --themes-file themes.txt --out places.db
  placecrawl crawl --source naver --no-images --out places.jsonl`,
	Args: cobra.NoArgs,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	f := crawlCmd.Flags()
	f.StringSlice("regions", nil, "comma-separated regions (e.g. 서울,경기)")
	f.StringSlice("themes", nil, "comma-separated themes (e.g. 한옥카페,수목원)")
	f.StringVar(&regionsFile, "regions-file", "", "file with one region per line")
	f.StringVar(&themesFile, "themes-file", "", "file with one theme per line")
	f.String("source", sourceKakao, "place source (kakao, naver)")
	f.Int("max-pages", 5, "maximum pages per keyword")
	f.Int("concurrency", 4, "keywords crawled concurrently")
	f.Int("images", 3, "image URLs per admitted place")
	f.BoolVar(&noImages, "no-images", false, "skip image enrichment")
	f.Duration("timeout", 30*time.Minute, "timeout for the whole run")
	f.StringP("out", "o", defaultCrawlOut, "output path (.csv, .jsonl or .db)")
	f.BoolVar(&noCache, "no-cache", false, "disable response cache (force fresh fetch)")
	f.Bool("respect-robots", false, "drop image URLs disallowed by robots.txt")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Flags override env and config file through viper. Their defaults must
	// equal the config defaults; regions and themes are applied by hand.
	bindings := map[string]string{
		"source":         "crawl.source",
		"max-pages":      "crawl.max_pages",
		"concurrency":    "concurrency.workers",
		"images":         "crawl.max_images",
		"timeout":        "crawl.run_timeout",
		"out":            "output.path",
		"respect-robots": "crawl.respect_robots",
		"http-proxy":     "http.http_proxy",
		"https-proxy":    "http.https_proxy",
	}
	for flag, key := range bindings {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyKeywordFlags(cmd, cfg); err != nil {
		return err
	}
	if noImages {
		cfg.Crawl.FetchImages = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	keywords := cfg.Crawl.Keywords()
	if len(keywords) == 0 {
		return errors.New("no keywords: set --regions and --themes (or crawl.regions/crawl.themes in the config file)")
	}

	stderr := cmd.ErrOrStderr()
	logger := newLogger(stderr, cfg.Output.Verbose)

	places, images, err := buildSources(cfg, logger)
	if err != nil {
		return err
	}

	printCrawlBanner(stderr, cfg, places.Name(), len(keywords), images != nil)

	opts := []pipeline.Option{
		pipeline.WithMaxPages(cfg.Crawl.MaxPages),
		pipeline.WithWorkers(cfg.Concurrency.Workers),
		pipeline.WithPageDelay(cfg.RateLimiting.PageDelay),
		pipeline.WithLogger(logger),
	}
	if images != nil {
		opts = append(opts, pipeline.WithImages(images, cfg.Crawl.MaxImages))
		if cfg.Crawl.RespectRobots {
			client := util.NewHTTPClient(cfg.HTTP, cfg.HTTP.ImageTimeout)
			opts = append(opts, pipeline.WithRobots(util.NewRobotsCheckerWithClient(cfg.HTTP.UserAgent, client)))
		}
	}

	catalog := dedup.NewCatalogFromConfig(cfg.Dedup)
	p := pipeline.NewPipeline(places, catalog, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Crawl.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Crawl.RunTimeout)
		defer cancel()
	}

	result, runErr := p.Run(ctx, keywords)
	if result == nil {
		return fmt.Errorf("crawl failed: %w", runErr)
	}
	if runErr != nil {
		logger.Warn("crawl interrupted, writing places admitted so far", "error", runErr)
	}

	// export with a fresh context so an interrupted run still saves its catalog
	written, err := export.Write(context.Background(), cfg.Output.Path, result.Records, result.Report)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printCrawlSummary(stderr, result.Report, cfg.Output.Path, written, cfg.Output.Verbose)
	return nil
}

// applyKeywordFlags replaces regions and themes with --regions/--themes or
// the contents of --regions-file/--themes-file when given
func applyKeywordFlags(cmd *cobra.Command, cfg *model.Config) error {
	if cmd.Flags().Changed("regions") {
		regions, _ := cmd.Flags().GetStringSlice("regions")
		cfg.Crawl.Regions = regions
	}
	if cmd.Flags().Changed("themes") {
		themes, _ := cmd.Flags().GetStringSlice("themes")
		cfg.Crawl.Themes = themes
	}
	if regionsFile != "" {
		regions, err := worker.ReadLinesFromFile(regionsFile)
		if err != nil {
			return fmt.Errorf("read regions: %w", err)
		}
		cfg.Crawl.Regions = regions
	}
	if themesFile != "" {
		themes, err := worker.ReadLinesFromFile(themesFile)
		if err != nil {
			return fmt.Errorf("read themes: %w", err)
		}
		cfg.Crawl.Themes = themes
	}
	return nil
}

// buildSources wires the HTTP stack (proxy, limiter, cache, retry) into the
// configured place source and, when enabled, the Kakao image search
func buildSources(cfg *model.Config, logger *slog.Logger) (source.PlaceSearcher, source.ImageSearcher, error) {
	apiOpts := []source.Option{
		source.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		source.WithRetry(cfg.Retry),
		source.WithUserAgent(cfg.HTTP.UserAgent),
		source.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		source.WithLogger(logger),
	}
	if store := cache.New(cfg.Cache); store != nil {
		apiOpts = append(apiOpts, source.WithCache(store, 0))
	}
	api := source.NewClient(util.NewHTTPClient(cfg.HTTP, 0), apiOpts...)

	kakaoKey := strings.TrimSpace(os.Getenv(envKakaoKey))
	var kakaoClient *kakao.Client
	if kakaoKey != "" {
		kakaoClient = kakao.New(kakaoKey, api, kakao.WithTimeouts(cfg.HTTP.SearchTimeout, cfg.HTTP.ImageTimeout))
	}

	var places source.PlaceSearcher
	switch strings.ToLower(cfg.Crawl.Source) {
	case sourceKakao, "":
		if kakaoClient == nil {
			return nil, nil, fmt.Errorf("%s environment variable not set", envKakaoKey)
		}
		places = kakaoClient
	case sourceNaver:
		id, secret := os.Getenv(envNaverID), os.Getenv(envNaverSecret)
		if id == "" || secret == "" {
			return nil, nil, fmt.Errorf("%s and %s environment variables must be set", envNaverID, envNaverSecret)
		}
		places = naver.New(id, secret, api, naver.WithTimeout(cfg.HTTP.SearchTimeout))
	default:
		return nil, nil, fmt.Errorf("unknown source %q (use %s or %s)", cfg.Crawl.Source, sourceKakao, sourceNaver)
	}

	if !cfg.Crawl.FetchImages || cfg.Crawl.MaxImages <= 0 {
		return places, nil, nil
	}
	if kakaoClient == nil {
		logger.Warn("image enrichment disabled: image search needs " + envKakaoKey)
		return places, nil, nil
	}
	return places, kakaoClient, nil
}

func printCrawlBanner(w io.Writer, cfg *model.Config, sourceName string, keywords int, images bool) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  placecrawl\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Source:       %s\n", sourceName)
	fmt.Fprintf(w, "  Keywords:     %d (%d regions x %d themes)\n", keywords, len(cfg.Crawl.Regions), len(cfg.Crawl.Themes))
	fmt.Fprintf(w, "  Max pages:    %d\n", cfg.Crawl.MaxPages)
	fmt.Fprintf(w, "  Workers:      %d\n", cfg.Concurrency.Workers)
	if images {
		fmt.Fprintf(w, "  Images:       %d per place\n", cfg.Crawl.MaxImages)
	} else {
		fmt.Fprintf(w, "  Images:       off\n")
	}
	fmt.Fprintf(w, "  Cache:        %v\n", cfg.Cache.Enabled)
	fmt.Fprintf(w, "  Output:       %s\n", cfg.Output.Path)
	fmt.Fprintf(w, "\n")
}

func printCrawlSummary(w io.Writer, report *model.RunReport, path string, written int, perKeyword bool) {
	totals := report.Totals()

	if perKeyword {
		fmt.Fprintf(w, "\n")
		for _, k := range report.Keywords {
			status := "✓"
			if k.Error != "" {
				status = "✗"
			}
			fmt.Fprintf(w, "%s %-24s pages %d, fetched %d, admitted %d\n", status, k.Keyword, k.Pages, k.Fetched, k.Admitted)
			if k.Error != "" {
				fmt.Fprintf(w, "    %d page(s) skipped, last error: %s\n", k.FailedPages, k.Error)
			}
		}
	}

	title := "Crawl Complete"
	if report.Cancelled {
		title = "Crawl Interrupted"
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Run:               %s\n", report.ID)
	fmt.Fprintf(w, "  Duration:          %v\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "  Pages:             %d\n", totals.Pages)
	fmt.Fprintf(w, "  Failed pages:      %d\n", totals.FailedPages)
	fmt.Fprintf(w, "  Fetched:           %d\n", totals.Fetched)
	fmt.Fprintf(w, "  Repeated IDs:      %d\n", totals.Repeated)
	fmt.Fprintf(w, "  Invalid:           %d\n", totals.Invalid)
	fmt.Fprintf(w, "  Similar rejected:  %d\n", totals.RejectedSimilar)
	fmt.Fprintf(w, "  Facility rejected: %d\n", totals.RejectedFacility)
	fmt.Fprintf(w, "  Admitted:          %d\n", totals.Admitted)
	fmt.Fprintf(w, "  Image failures:    %d\n", totals.ImageFailures)
	fmt.Fprintf(w, "  Final ID pass:     -%d\n", report.FinalRemoved)
	fmt.Fprintf(w, "  Written:           %d → %s\n", written, path)
	fmt.Fprintf(w, "\n")
}
