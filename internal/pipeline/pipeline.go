package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/placecrawl/internal/dedup"
	"github.com/ppiankov/placecrawl/internal/model"
	"github.com/ppiankov/placecrawl/internal/source"
	"github.com/ppiankov/placecrawl/internal/util"
	"github.com/ppiankov/placecrawl/internal/worker"
)

// pageSleepFunc waits between pages of one keyword (injectable for tests)
var pageSleepFunc = worker.Pause

// Pipeline orchestrates the crawl: keyword paging, validation, admission
// into the catalog and image enrichment of admitted places
type Pipeline struct {
	places    source.PlaceSearcher
	images    source.ImageSearcher // nil disables enrichment
	robots    *util.RobotsChecker  // nil disables robots filtering of image URLs
	catalog   *dedup.Catalog
	maxPages  int
	maxImages int
	workers   int
	pageDelay time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithImages enables enrichment with up to count image URLs per admitted place
func WithImages(searcher source.ImageSearcher, count int) Option {
	return func(p *Pipeline) {
		p.images = searcher
		p.maxImages = count
	}
}

// WithRobots drops image URLs that robots.txt disallows
func WithRobots(checker *util.RobotsChecker) Option {
	return func(p *Pipeline) { p.robots = checker }
}

// WithMaxPages caps the pages requested per keyword
func WithMaxPages(n int) Option {
	return func(p *Pipeline) { p.maxPages = n }
}

// WithWorkers sets how many keywords are crawled concurrently
func WithWorkers(n int) Option {
	return func(p *Pipeline) { p.workers = n }
}

// WithPageDelay sets the pause between pages of one keyword
func WithPageDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.pageDelay = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline feeding catalog from places
func NewPipeline(places source.PlaceSearcher, catalog *dedup.Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		places:    places,
		catalog:   catalog,
		maxPages:  5,
		workers:   4,
		pageDelay: 300 * time.Millisecond,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of a run
type Result struct {
	Records []model.PlaceRecord // Final catalog after the source ID pass
	Report  *model.RunReport
}

// Run crawls every keyword and returns the deduplicated catalog.
// A page that fails upstream is skipped and the keyword goes on. When ctx is
// cancelled the places admitted so far are returned together with ctx's error.
func (p *Pipeline) Run(ctx context.Context, keywords []string) (*Result, error) {
	if p.places == nil || p.catalog == nil {
		return nil, errors.New("pipeline: place searcher and catalog are required")
	}
	if len(keywords) == 0 {
		return nil, errors.New("pipeline: no keywords")
	}

	report := model.NewRunReport(p.places.Name(), p.now())
	report.Keywords = make([]model.KeywordStats, len(keywords))
	for i, kw := range keywords {
		report.Keywords[i].Keyword = kw
	}

	pool := worker.NewPool(ctx, p.workers)
	pool.Start()
	for i, kw := range keywords {
		if !pool.Submit(&keywordJob{pipeline: p, index: i, keyword: kw}) {
			break
		}
	}

	for _, r := range pool.Wait() {
		res, ok := r.(*keywordResult)
		if !ok {
			continue
		}
		report.Keywords[res.index] = res.stats
	}

	accepted := p.catalog.Records()
	final, removed := dedup.UniqueBySourceID(accepted)
	report.Accepted = len(accepted)
	report.FinalRemoved = removed
	report.Final = len(final)
	report.FinishedAt = p.now()

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		return &Result{Records: final, Report: report}, err
	}
	return &Result{Records: final, Report: report}, nil
}

// keywordJob crawls all pages of one keyword
type keywordJob struct {
	pipeline *Pipeline
	index    int
	keyword  string
}

type keywordResult struct {
	index int
	stats model.KeywordStats
	err   error
}

func (r *keywordResult) GetError() error {
	return r.err
}

func (j *keywordJob) Execute(ctx context.Context) worker.Result {
	stats, err := j.pipeline.crawlKeyword(ctx, j.keyword)
	return &keywordResult{index: j.index, stats: stats, err: err}
}

// crawlKeyword pages through one keyword until the source reports the last
// page, returns an empty page, or the page cap is reached. A page that still
// fails after retries is abandoned and paging goes on with the next one.
func (p *Pipeline) crawlKeyword(ctx context.Context, keyword string) (model.KeywordStats, error) {
	stats := model.KeywordStats{Keyword: keyword}
	seen := make(map[string]struct{})
	hint := RegionHint(keyword)
	log := p.logger.With("keyword", keyword)

	for page := 1; page <= p.maxPages; page++ {
		if page > 1 {
			if err := pageSleepFunc(ctx, p.pageDelay); err != nil {
				return stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := p.places.Search(ctx, keyword, page)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			stats.FailedPages++
			stats.Error = err.Error()
			log.Warn("place search failed, skipping page", "page", page, "error", err)
			continue
		}
		stats.Pages++

		if len(result.Documents) == 0 {
			break
		}
		stats.Fetched += len(result.Documents)

		for _, doc := range result.Documents {
			record, err := model.NewPlaceRecord(doc, p.places.Name())
			if err != nil {
				stats.Invalid++
				log.Warn("skipping place with missing fields", "page", page, "error", err)
				continue
			}
			if record.SourceID != "" {
				if _, dup := seen[record.SourceID]; dup {
					stats.Repeated++
					continue
				}
				seen[record.SourceID] = struct{}{}
			}
			record.Keyword = keyword
			p.ingest(ctx, record, hint, &stats, log)
		}

		if result.IsLastPage {
			break
		}
	}

	log.Debug("keyword done",
		"pages", stats.Pages, "failed_pages", stats.FailedPages,
		"fetched", stats.Fetched, "admitted", stats.Admitted)
	return stats, nil
}

// ingest offers a validated record to the catalog and enriches it with
// images when admitted
func (p *Pipeline) ingest(ctx context.Context, record *model.PlaceRecord, hint string, stats *model.KeywordStats, log *slog.Logger) {
	decision := p.catalog.AdmitDecision(record)
	switch decision.Reason {
	case dedup.ReasonSimilar:
		stats.RejectedSimilar++
		log.Debug("duplicate place", "name", record.Name, "matches", decision.Match.Name)
		return
	case dedup.ReasonSameFacility:
		stats.RejectedFacility++
		log.Debug("facility of accepted place", "name", record.Name, "matches", decision.Match.Name)
		return
	}
	stats.Admitted++

	if p.images == nil || p.maxImages <= 0 || ctx.Err() != nil {
		return
	}
	urls, err := p.images.SearchImages(ctx, ImageQuery(hint, record.Name), p.maxImages)
	if err != nil {
		// enrichment is best effort: the record stays admitted without images
		stats.ImageFailures++
		log.Warn("image search failed", "name", record.Name, "error", err)
		return
	}
	if p.robots != nil {
		urls = p.robots.FilterAllowed(ctx, urls)
	}
	p.catalog.AttachImages(record, urls)
}

// RegionHint returns the first word of a multi-word keyword, which by
// construction is the region
func RegionHint(keyword string) string {
	fields := strings.Fields(keyword)
	if len(fields) > 1 {
		return fields[0]
	}
	return ""
}

// ImageQuery combines the region hint with the place name
func ImageQuery(hint, name string) string {
	return strings.TrimSpace(hint + " " + name)
}
