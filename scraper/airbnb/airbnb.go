package airbnb

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/sadikovi/pulsar/config"
	"github.com/sadikovi/pulsar/models"
	"github.com/sadikovi/pulsar/utils"
)

const source = "airbnb"

// Scraper collects raw listing offers from Airbnb search results.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	pool    *utils.WorkerPool
	visited *utils.StringSet
	retry   *utils.RetryConfig

	mu     sync.Mutex
	offers []*models.RawOffer
}

// New creates a ready-to-use Airbnb Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		pool:    utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited: utils.NewStringSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		offers: make([]*models.RawOffer, 0),
	}
}

// Scrape drives pagination and detail-page enrichment for one search query
// (a city or area name).
func (s *Scraper) Scrape(ctx context.Context, query string) ([]*models.RawOffer, error) {
	s.logger.Info("[airbnb] Starting scrape for %q — target: %d pages, %d offers/page",
		query, s.cfg.PagesToScrape, s.cfg.OffersPerPage)

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[airbnb] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()
	allocCtx = silentCtx

	currentURL := fmt.Sprintf("https://www.airbnb.com/s/%s/homes", url.PathEscape(query))
	for page := 1; page <= s.cfg.PagesToScrape; page++ {
		s.logger.Info("[airbnb] Scraping page %d — URL: %s", page, currentURL)

		pageOffers, nextURL, err := s.scrapePage(ctx, allocCtx, currentURL, page)
		if err != nil {
			s.logger.Error("[airbnb] Page %d failed: %v", page, err)
			break
		}

		if len(pageOffers) == 0 {
			s.logger.Warn("[airbnb] Page %d returned 0 offers — stopping", page)
			break
		}

		s.enrichOffers(ctx, allocCtx, pageOffers)

		s.mu.Lock()
		s.offers = append(s.offers, pageOffers...)
		s.mu.Unlock()

		s.logger.Info("[airbnb] Page %d done — collected %d offers so far", page, len(s.offers))

		if nextURL == "" || page >= s.cfg.PagesToScrape {
			break
		}

		currentURL = nextURL
		select {
		case <-time.After(time.Duration(s.cfg.RateLimitMs) * time.Millisecond):
		case <-ctx.Done():
			return s.offers, ctx.Err()
		}
	}

	s.logger.Info("[airbnb] Scrape complete — total raw offers: %d", len(s.offers))
	return s.offers, nil
}

// scrapePage loads a search results page and extracts listing cards.
func (s *Scraper) scrapePage(ctx, allocCtx context.Context, pageURL string, pageNum int) ([]*models.RawOffer, string, error) {
	var rawOffers []*models.RawOffer
	var nextURL string

	err := s.retry.Do(ctx, fmt.Sprintf("scrape-page-%d", pageNum), func() error {
		tabCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 90*time.Second)
		defer cancelTimeout()

		type cardData struct {
			Name      string `json:"name"`
			Price     string `json:"price"`
			Beds      string `json:"beds"`
			Baths     string `json:"baths"`
			Location  string `json:"location"`
			Thumbnail string `json:"thumbnail"`
			URL       string `json:"url"`
		}

		var cards []cardData
		var nextPageURL string

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(6*time.Second),

			// Scroll to load all cards
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			// Extract listing cards
			chromedp.Evaluate(`
				(function() {
					var results = [];
					var limit = `+fmt.Sprintf("%d", s.cfg.OffersPerPage)+`;

					var cardSelectors = [
						'[data-testid="card-container"]',
						'[itemprop="itemListElement"]',
						'div[data-testid="listing-card-wrapper"]',
						'div[class*="c1yo0219"]' // Airbnb's obfuscated card class
					];

					var cards = [];
					for (var si = 0; si < cardSelectors.length; si++) {
						cards = document.querySelectorAll(cardSelectors[si]);
						if (cards.length > 0) break;
					}

					// Fallback: walk room links when no card structure matches
					if (cards.length === 0) {
						var roomLinks = document.querySelectorAll('a[href*="/rooms/"]');
						var seen = {};
						for (var ri = 0; ri < roomLinks.length && results.length < limit; ri++) {
							var link = roomLinks[ri];
							var href = link.href;
							if (!href || seen[href]) continue;
							seen[href] = true;

							var cardDiv = link.closest('[role="group"]') ||
							              link.closest('div[class*="g1qv1ctd"]') ||
							              link.closest('div');

							var innerText = cardDiv ? cardDiv.innerText : link.innerText;
							var lines = innerText.split('\n').map(function(l){return l.trim();}).filter(Boolean);
							var img = cardDiv ? cardDiv.querySelector('img') : null;

							results.push({
								name:      lines[0] || 'N/A',
								price:     lines.find(function(l){return l.match(/\$|฿|€|£/);}) || 'N/A',
								beds:      lines.find(function(l){return l.match(/bed/i);}) || '',
								baths:     lines.find(function(l){return l.match(/bath/i);}) || '',
								location:  lines[1] || 'N/A',
								thumbnail: img && img.src ? img.src : '',
								url:       href
							});
						}
						return results;
					}

					// Parse structured cards
					var seen = {};
					for (var i = 0; i < cards.length && results.length < limit; i++) {
						var card = cards[i];

						var nameEl = card.querySelector('[data-testid="listing-card-title"]') ||
						             card.querySelector('div[id*="title"]') ||
						             card.querySelector('[class*="t1jojoys"]');
						var name = nameEl ? nameEl.innerText.trim() : '';

						var priceEl = card.querySelector('[data-testid="price-availability-row"]') ||
						              card.querySelector('span[class*="price"]') ||
						              card.querySelector('div._1jo4hgw');
						var price = '';
						if (priceEl) {
							var priceText = priceEl.innerText;
							var priceMatch = priceText.match(/(\$|฿|€|£)\s*[\d,]+/);
							price = priceMatch ? priceMatch[0] : priceText.split('\n')[0];
						}

						var locEl = card.querySelector('[data-testid="listing-card-subtitle"]') ||
						            card.querySelector('span[class*="t6mzqp7"]');
						var location = locEl ? locEl.innerText.trim() : '';

						// Beds and baths usually ride in the subtitle rows
						var beds = '', baths = '';
						var rows = card.innerText.split('\n');
						for (var li = 0; li < rows.length; li++) {
							var row = rows[li].trim();
							if (!beds && row.match(/\d+\s*bed/i)) beds = row;
							if (!baths && row.match(/\d+(\.\d+)?\s*bath/i)) baths = row;
						}

						var imgEl = card.querySelector('img');
						var thumbnail = imgEl && imgEl.src ? imgEl.src : '';

						var linkEl = card.querySelector('a[href*="/rooms/"]');
						var url = linkEl ? linkEl.href : '';

						if (!url || seen[url]) continue;
						seen[url] = true;

						results.push({
							name:      name || 'N/A',
							price:     price || 'N/A',
							beds:      beds,
							baths:     baths,
							location:  location || 'N/A',
							thumbnail: thumbnail,
							url:       url
						});
					}

					return results;
				})()
			`, &cards),

			// Find next page button/link
			chromedp.Evaluate(`
				(function() {
					var nextBtns = [
						document.querySelector('a[aria-label="Next"]'),
						document.querySelector('a[aria-label="next"]'),
						document.querySelector('[data-testid="pagination-next-button"]'),
						document.querySelector('nav a[href*="items_offset"]')
					];

					for (var i = 0; i < nextBtns.length; i++) {
						if (nextBtns[i] && nextBtns[i].href) {
							return nextBtns[i].href;
						}
					}

					var paginationLinks = document.querySelectorAll('nav a, div[role="navigation"] a');
					for (var j = 0; j < paginationLinks.length; j++) {
						var text = paginationLinks[j].innerText.toLowerCase();
						if (text === 'next' || text === '>') {
							return paginationLinks[j].href;
						}
					}

					return '';
				})()
			`, &nextPageURL),
		)

		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[airbnb] Page %d — found %d cards", pageNum, len(cards))

		for _, c := range cards {
			if c.URL == "" {
				continue
			}
			if !s.visited.Add(c.URL) {
				s.logger.Debug("[airbnb] Skipping duplicate: %s", c.URL)
				continue
			}

			rawOffers = append(rawOffers, &models.RawOffer{
				Name:      c.Name,
				RawPrice:  c.Price,
				RawBeds:   c.Beds,
				RawBaths:  c.Baths,
				Location:  c.Location,
				Thumbnail: c.Thumbnail,
				Link:      c.URL,
				ScrapedAt: time.Now(),
				Source:    source,
			})
		}

		nextURL = nextPageURL
		return nil
	})

	return rawOffers, nextURL, err
}

// enrichOffers visits detail pages through the worker pool: descriptions
// always come from there, and missing card fields are backfilled.
func (s *Scraper) enrichOffers(ctx, allocCtx context.Context, offers []*models.RawOffer) {
	for _, offer := range offers {
		o := offer
		if o.Link == "" {
			continue
		}

		needsBackfill := o.Name == "" || o.Name == "N/A" ||
			o.RawPrice == "" || o.RawPrice == "N/A" ||
			o.Location == "" || o.Location == "N/A" ||
			o.RawBeds == "" || o.RawBaths == ""

		s.pool.Submit(func() {
			enriched, err := s.scrapeDetailPage(ctx, allocCtx, o.Link)
			if err != nil {
				s.logger.Warn("[airbnb] Detail page failed for %s: %v", o.Link, err)
				return
			}

			if needsBackfill {
				if enriched.Name != "" && enriched.Name != "N/A" {
					o.Name = enriched.Name
				}
				if enriched.RawPrice != "" && enriched.RawPrice != "N/A" {
					o.RawPrice = enriched.RawPrice
				}
				if enriched.Location != "" && enriched.Location != "N/A" {
					o.Location = enriched.Location
				}
				if enriched.RawBeds != "" {
					o.RawBeds = enriched.RawBeds
				}
				if enriched.RawBaths != "" {
					o.RawBaths = enriched.RawBaths
				}
			}

			o.Description = enriched.Description

			s.logger.Debug("[airbnb] Enriched: %s", o.Name)
		})
	}
	s.pool.Wait()
}

// scrapeDetailPage visits a listing detail page and extracts full information.
func (s *Scraper) scrapeDetailPage(ctx, allocCtx context.Context, link string) (*models.RawOffer, error) {
	offer := &models.RawOffer{Link: link, Source: source}

	err := s.retry.Do(ctx, "detail-page", func() error {
		tabCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		type detailData struct {
			Name        string `json:"name"`
			Price       string `json:"price"`
			Beds        string `json:"beds"`
			Baths       string `json:"baths"`
			Location    string `json:"location"`
			Description string `json:"description"`
		}

		var details detailData

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(link),
			chromedp.Sleep(4*time.Second),

			chromedp.Evaluate(`
				(function() {
					var result = {
						name: '',
						price: '',
						beds: '',
						baths: '',
						location: '',
						description: ''
					};

					var nameEl = document.querySelector('h1[class*="hpipapi"]') ||
					             document.querySelector('h1') ||
					             document.querySelector('[data-section-id="TITLE_DEFAULT"] h1');
					if (nameEl) result.name = nameEl.innerText.trim();

					var priceEl = document.querySelector('span[class*="_tyxjp1"]') ||
					              document.querySelector('span[class*="price"]') ||
					              document.querySelector('[data-testid="book-it-default"] span');
					if (priceEl) {
						var priceText = priceEl.innerText;
						var match = priceText.match(/(\$|฿|€|£)\s*[\d,]+/);
						result.price = match ? match[0] : priceText;
					}

					// The overview row lists guests/bedrooms/beds/baths
					var overview = document.querySelector('[data-section-id="OVERVIEW_DEFAULT"]') ||
					               document.querySelector('ol') ||
					               document.querySelector('div[class*="o1kjrihn"]');
					if (overview) {
						var items = overview.innerText.split(/[\n·]/);
						for (var i = 0; i < items.length; i++) {
							var item = items[i].trim();
							if (!result.beds && item.match(/\d+\s*(bedroom|bed)/i)) result.beds = item;
							if (!result.baths && item.match(/\d+(\.\d+)?\s*bath/i)) result.baths = item;
						}
					}

					var locEl = document.querySelector('[data-section-id="LOCATION_DEFAULT"] h2') ||
					            document.querySelector('button[aria-label*="location"] span') ||
					            document.querySelector('div[class*="l7n4lsf"] span');
					if (locEl) result.location = locEl.innerText.trim();

					var descSelectors = [
						'[data-section-id="DESCRIPTION_DEFAULT"] span',
						'div[class*="ll4r2nl"] div[class*="lgx66tx"] span',
						'[data-plugin-in-point-id="DESCRIPTION_DEFAULT"] span'
					];
					for (var i = 0; i < descSelectors.length; i++) {
						var descEl = document.querySelector(descSelectors[i]);
						if (descEl && descEl.innerText.length > 30) {
							result.description = descEl.innerText.trim().substring(0, 500);
							break;
						}
					}

					if (!result.description) {
						var paras = document.querySelectorAll('main p');
						var texts = [];
						for (var j = 0; j < paras.length && texts.join(' ').length < 400; j++) {
							var t = paras[j].innerText.trim();
							if (t.length > 20) texts.push(t);
						}
						result.description = texts.join(' ').substring(0, 500) || 'No description available';
					}

					return result;
				})()
			`, &details),
		)

		if err != nil {
			return fmt.Errorf("chromedp detail extract: %w", err)
		}

		offer.Name = details.Name
		offer.RawPrice = details.Price
		offer.RawBeds = details.Beds
		offer.RawBaths = details.Baths
		offer.Location = details.Location
		offer.Description = details.Description

		return nil
	})

	return offer, err
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
