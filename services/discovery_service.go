// backend/services/discovery_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/openharvest/portal/backend/browser"
	"github.com/openharvest/portal/backend/config"
	"github.com/openharvest/portal/backend/models"
	"github.com/openharvest/portal/backend/scraper"
)

// discoveryContext carries per-pass state through the strategy list. The
// browser session is acquired once per pass and passed explicitly; it is
// nil when automation is not configured, and browser-backed strategies
// skip themselves in that case.
type discoveryContext struct {
	fullScan bool
	session  *browser.Session
}

// A discoveryStrategy is one independent way of enumerating dataset
// identifiers. Strategies run in priority order and their outputs are
// unioned; one failing strategy never aborts the pass.
type discoveryStrategy struct {
	name string
	run  func(ctx context.Context, d *discoveryContext) (map[string]string, error)
}

func discoveryStrategies() []discoveryStrategy {
	return []discoveryStrategy{
		{"bulk-listing", bulkListingStrategy},
		{"passive-capture", passiveCaptureStrategy},
		{"scroll", scrollStrategy},
		{"url-pagination", urlPaginationStrategy},
		{"category-sweep", categorySweepStrategy},
		{"keyword-sweep", keywordSweepStrategy},
	}
}

// Discover runs one discovery pass and admits any genuinely new
// identifiers into the catalog. A quick scan (fullScan=false) only works
// the primary listing; a full scan additionally sweeps every category and
// seed search term and can run for hours. Re-running is idempotent: only
// unknown identifiers cause catalog writes.
func Discover(ctx context.Context, fullScan bool) (*models.DiscoveryResult, error) {
	start := time.Now()
	log.Printf("Service: Starting discovery pass (full_scan=%v)...\n", fullScan)

	d := &discoveryContext{fullScan: fullScan}
	session, err := newBrowserSession(ctx)
	switch {
	case err == nil:
		d.session = session
		defer session.Close()
	case errors.Is(err, browser.ErrDisabled):
		log.Println("Service: Browser automation not configured; skipping browser-backed discovery strategies.")
	default:
		log.Printf("WARN Service: Could not start browser session: %v. Browser-backed strategies will be skipped.", err)
	}

	found := runStrategies(ctx, d, discoveryStrategies())

	// Scroll and sweep navigation trigger background API calls of their
	// own; drain the passive capture once more before closing up.
	if d.session != nil {
		for capturedURL, body := range d.session.DrainCaptured() {
			n := unionInto(found, scraper.ExtractIdentifiersFromJSON(body))
			if n > 0 {
				log.Printf("Service: Final capture drain of %s yielded %d new identifiers\n", capturedURL, n)
			}
		}
	}

	result, err := admitDiscovered(ctx, found, fullScan, start)
	if err != nil {
		return nil, err
	}

	log.Printf("Service: Discovery pass finished: %d found, %d known, %d new (took %s)\n",
		result.TotalFound, result.Known, result.New, time.Since(start).Round(time.Second))
	return result, nil
}

// runStrategies executes the strategy list in order, unions every
// strategy's output and contains per-strategy failures.
func runStrategies(ctx context.Context, d *discoveryContext, strategies []discoveryStrategy) map[string]string {
	found := make(map[string]string)
	for _, strat := range strategies {
		if ctx.Err() != nil {
			log.Printf("WARN Service: Discovery cancelled before strategy %q\n", strat.name)
			break
		}
		ids, err := strat.run(ctx, d)
		if err != nil {
			log.Printf("WARN Service: Discovery strategy %q failed: %v. Continuing with remaining strategies.\n", strat.name, err)
			continue
		}
		n := unionInto(found, ids)
		log.Printf("Service: Strategy %q contributed %d identifiers (%d new)\n", strat.name, len(ids), n)
	}
	return found
}

// admitDiscovered diffs the pass result against the catalog, creates
// placeholder rows for new identifiers and writes the audit entry.
func admitDiscovered(ctx context.Context, found map[string]string, fullScan bool, start time.Time) (*models.DiscoveryResult, error) {
	known, err := knownIdentifiers()
	if err != nil {
		return nil, fmt.Errorf("failed to load known identifiers: %w", err)
	}

	newIDs := make(map[string]string)
	for id, title := range found {
		if !known[id] {
			newIDs[id] = title
		}
	}

	created, err := AddNewDatasets(ctx, newIDs)
	if err != nil {
		log.Printf("ERROR Service: Failed to admit some new datasets: %v\n", err)
	}

	sample := make([]string, 0, len(newIDs))
	for id := range newIDs {
		sample = append(sample, id)
	}
	sort.Strings(sample)
	if len(sample) > 20 {
		sample = sample[:20]
	}

	result := &models.DiscoveryResult{
		TotalFound:  len(found),
		Known:       len(found) - len(newIDs),
		New:         created,
		NewSample:   sample,
		FullScan:    fullScan,
		DurationSec: time.Since(start).Seconds(),
	}

	sampleJSON, _ := json.Marshal(sample)
	run := &models.DiscoveryRun{
		FullScan:   fullScan,
		TotalFound: result.TotalFound,
		NewCount:   result.New,
		NewSample:  string(sampleJSON),
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	if err := logDiscoveryRun(run); err != nil {
		log.Printf("WARN Service: Could not persist discovery audit entry: %v\n", err)
	}
	return result, nil
}

// AddNewDatasets creates one placeholder catalog row per identifier not
// already present. A best-effort metadata lookup seeds the display name
// and category; when it fails the placeholder still gets created with a
// name generated from the identifier prefix. Safe to call with
// overlapping or duplicate identifier lists.
func AddNewDatasets(ctx context.Context, ids map[string]string) (int, error) {
	created := 0
	var firstErr error
	for id, title := range ids {
		name := title
		category := ""
		if meta, err := fetchPortalMetadata(ctx, id); err == nil {
			if meta.Name != "" {
				name = meta.Name
			}
			category = meta.Category
		} else if name == "" {
			log.Printf("WARN Service: Metadata seed lookup failed for %s: %v. Using generated name.\n", id, err)
		}
		if name == "" {
			name = fallbackName(id)
		}

		wasNew, err := insertPlaceholder(id, name, category)
		if err != nil {
			log.Printf("ERROR Service: Failed to create placeholder for %s: %v\n", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if wasNew {
			created++
		}
	}
	return created, firstErr
}

// fallbackName derives a display name from the identifier prefix.
func fallbackName(identifier string) string {
	prefix := identifier
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return "Dataset " + strings.ToUpper(prefix)
}

// unionInto merges src into dst, preferring existing non-empty titles,
// and returns how many identifiers were new to dst.
func unionInto(dst, src map[string]string) int {
	added := 0
	for id, title := range src {
		if existing, ok := dst[id]; ok {
			if existing == "" && title != "" {
				dst[id] = title
			}
			continue
		}
		dst[id] = title
		added++
	}
	return added
}

// --- Strategy 1: bulk listing API ---

func bulkListingStrategy(ctx context.Context, _ *discoveryContext) (map[string]string, error) {
	listURL := config.AppConfig.Portal.BulkListURL
	if listURL == "" {
		log.Println("Service: No bulk listing endpoint configured; skipping bulk-listing strategy.")
		return nil, nil
	}
	body, err := fetchBytes(ctx, listURL, config.AppConfig.HTTP.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return scraper.ExtractIdentifiersFromJSON(body), nil
}

// --- Strategy 2: passive network capture ---

// passiveCaptureStrategy renders the listing page and harvests every
// intercepted background JSON response, independent of what the page
// chooses to display.
func passiveCaptureStrategy(ctx context.Context, d *discoveryContext) (map[string]string, error) {
	if d.session == nil {
		return nil, nil
	}
	if err := d.session.Navigate(config.AppConfig.Portal.ListingPageURL); err != nil {
		return nil, err
	}
	// Give client-side rendering a moment to fire its initial API calls.
	select {
	case <-time.After(config.AppConfig.Discovery.ScrollPause):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	found := make(map[string]string)
	for _, body := range d.session.DrainCaptured() {
		unionInto(found, scraper.ExtractIdentifiersFromJSON(body))
	}
	return found, nil
}

// --- Strategy 3: scroll exhaustion ---

func scrollStrategy(ctx context.Context, d *discoveryContext) (map[string]string, error) {
	if d.session == nil {
		return nil, nil
	}
	return scrollExhaust(ctx, d.session, config.AppConfig.Portal.ListingPageURL)
}

// scrollExhaust repeatedly scrolls an infinite-scroll listing to the
// bottom and re-extracts from the rendered DOM, stopping after the
// configured number of consecutive scrolls that surface nothing new, or
// at the attempt ceiling.
func scrollExhaust(ctx context.Context, session *browser.Session, pageURL string) (map[string]string, error) {
	if err := session.Navigate(pageURL); err != nil {
		return nil, err
	}

	cfg := config.AppConfig.Discovery
	found := make(map[string]string)
	idle := 0
	for attempt := 0; attempt < cfg.MaxScrollAttempts; attempt++ {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		html, err := session.HTML()
		if err != nil {
			return found, err
		}
		if n := unionInto(found, scraper.ExtractIdentifiersFromHTML(html)); n == 0 {
			idle++
			if idle >= cfg.ScrollIdleLimit {
				break
			}
		} else {
			idle = 0
		}
		if err := session.ScrollToBottom(); err != nil {
			return found, err
		}
	}
	return found, nil
}

// --- Strategy 4: URL-based pagination ---

func urlPaginationStrategy(ctx context.Context, _ *discoveryContext) (map[string]string, error) {
	return paginateListing(ctx, config.AppConfig.Portal.ListingPageURL)
}

// paginateListing walks page numbers against several conventional
// pagination query-parameter shapes and stops after the configured number
// of consecutive pages that yield no new identifiers.
func paginateListing(ctx context.Context, baseURL string) (map[string]string, error) {
	if baseURL == "" {
		return nil, nil
	}

	cfg := config.AppConfig.Discovery
	found := make(map[string]string)
	emptyStreak := 0
	for page := 1; page <= cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		newOnPage := 0
		for _, pageURL := range pageURLVariants(baseURL, page) {
			body, err := fetchBytes(ctx, pageURL, config.AppConfig.HTTP.RequestTimeout)
			if err != nil {
				log.Printf("WARN Service: Pagination fetch failed for %s: %v\n", pageURL, err)
				continue
			}
			// Listing pages may answer with HTML or JSON depending on the
			// portal; extract with both and union.
			newOnPage += unionInto(found, scraper.ExtractIdentifiersFromJSON(body))
			newOnPage += unionInto(found, scraper.ExtractIdentifiersFromHTML(string(body)))
		}
		if newOnPage == 0 {
			emptyStreak++
			if emptyStreak >= cfg.EmptyPageLimit {
				break
			}
		} else {
			emptyStreak = 0
		}
	}
	return found, nil
}

// pageURLVariants builds the page=, p= and offset= shapes for one page
// number. Offsets assume the portal's default page size of 20.
func pageURLVariants(baseURL string, page int) []string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return []string{
		fmt.Sprintf("%s%spage=%d", baseURL, sep, page),
		fmt.Sprintf("%s%sp=%d", baseURL, sep, page),
		fmt.Sprintf("%s%soffset=%d", baseURL, sep, (page-1)*20),
	}
}

// --- Strategy 5: category / keyword sweeps (full scan only) ---

func categorySweepStrategy(ctx context.Context, d *discoveryContext) (map[string]string, error) {
	if !d.fullScan {
		return nil, nil
	}
	tmpl := config.AppConfig.Portal.CategoryURLTemplate
	if tmpl == "" {
		return nil, nil
	}
	return sweep(ctx, d, tmpl, config.AppConfig.Discovery.Categories, "category")
}

func keywordSweepStrategy(ctx context.Context, d *discoveryContext) (map[string]string, error) {
	if !d.fullScan {
		return nil, nil
	}
	tmpl := config.AppConfig.Portal.SearchURLTemplate
	if tmpl == "" {
		return nil, nil
	}
	return sweep(ctx, d, tmpl, config.AppConfig.Discovery.SeedTerms, "seed term")
}

// sweep repeats the scroll and pagination strategies once per term to
// surface datasets unreachable from the default listing order. A failing
// term is logged and skipped.
func sweep(ctx context.Context, d *discoveryContext, urlTemplate string, terms []string, kind string) (map[string]string, error) {
	found := make(map[string]string)
	for _, term := range terms {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		sweepURL := fmt.Sprintf(urlTemplate, url.QueryEscape(term))

		if d.session != nil {
			ids, err := scrollExhaust(ctx, d.session, sweepURL)
			if err != nil {
				log.Printf("WARN Service: Scroll sweep failed for %s %q: %v\n", kind, term, err)
			} else {
				unionInto(found, ids)
			}
		}

		ids, err := paginateListing(ctx, sweepURL)
		if err != nil {
			log.Printf("WARN Service: Pagination sweep failed for %s %q: %v\n", kind, term, err)
			continue
		}
		n := unionInto(found, ids)
		log.Printf("Service: Sweep of %s %q contributed %d new identifiers\n", kind, term, n)
	}
	return found, nil
}
