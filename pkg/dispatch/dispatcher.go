// Package dispatch runs the per-feed polling loops: fetch, split, convert,
// enqueue. Every failure is logged and absorbed, a bad cycle or a bad entry
// never stops a loop and feeds never affect each other's schedule.
package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/takutils/inrcot/pkg/config"
	"github.com/takutils/inrcot/pkg/cot"
	"github.com/takutils/inrcot/pkg/feed"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher

// Fetcher retrieves raw feed content
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string, auth *config.BasicAuth) ([]byte, error)
}

// Dispatcher owns one polling task per configured feed, all producing into the
// shared outbound queue.
type Dispatcher struct {
	feeds    []config.FeedConfig
	fetcher  Fetcher
	interval time.Duration
	queue    chan<- []byte

	cancel context.CancelFunc
	group  *errgroup.Group

	mu    sync.Mutex
	stats map[string]*FeedStat
}

// FeedStat is one feed's poll counters, served by the status endpoint.
type FeedStat struct {
	Name      string    `json:"name"`
	Polls     int64     `json:"polls"`
	Events    int64     `json:"events"`
	LastPoll  time.Time `json:"last_poll"`
	LastError string    `json:"last_error,omitempty"`
}

// New creates a dispatcher for the given feeds. Interval is the fixed poll
// period shared by all feeds.
func New(feeds []config.FeedConfig, fetcher Fetcher, interval time.Duration, queue chan<- []byte) *Dispatcher {
	if interval == 0 {
		interval = config.DefaultPollInterval * time.Second
	}

	stats := make(map[string]*FeedStat, len(feeds))
	for _, fc := range feeds {
		stats[fc.Name] = &FeedStat{Name: fc.Name}
	}

	return &Dispatcher{
		feeds:    feeds,
		fetcher:  fetcher,
		interval: interval,
		queue:    queue,
		stats:    stats,
	}
}

// Start launches one polling task per feed
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.group, ctx = errgroup.WithContext(ctx)

	for _, fc := range d.feeds {
		d.group.Go(func() error {
			d.pollFeed(ctx, fc)
			return nil
		})
	}

	lgr.Printf("[INFO] dispatcher started with %d feeds, poll interval %v", len(d.feeds), d.interval)
}

// Stop cancels all polling tasks and waits for them to finish
func (d *Dispatcher) Stop() {
	lgr.Printf("[INFO] stopping dispatcher...")
	if d.cancel != nil {
		d.cancel()
	}
	if d.group != nil {
		_ = d.group.Wait() // poll loops never return errors
	}
	lgr.Printf("[INFO] dispatcher stopped")
}

// Stats returns a snapshot of per-feed counters, sorted by feed name.
func (d *Dispatcher) Stats() []FeedStat {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := make([]FeedStat, 0, len(d.stats))
	for _, s := range d.stats {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}

// pollFeed runs one feed's perpetual cycle at the fixed interval
func (d *Dispatcher) pollFeed(ctx context.Context, fc config.FeedConfig) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// run first cycle right away
	d.pollOnce(ctx, fc)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.pollOnce(ctx, fc)
		}
	}
}

// pollOnce runs a single fetch-split-convert-enqueue cycle for one feed
func (d *Dispatcher) pollOnce(ctx context.Context, fc config.FeedConfig) {
	lgr.Printf("[DEBUG] polling feed %s", fc.Name)

	content, err := d.fetcher.Fetch(ctx, fc.URL, fc.Auth)
	if err != nil {
		lgr.Printf("[WARN] fetch failed for %s: %v", fc.Name, err)
		d.record(fc.Name, 0, err)
		return
	}

	folders, err := feed.SplitFeed(content)
	if err != nil {
		lgr.Printf("[WARN] parse failed for %s: %v", fc.Name, err)
		d.record(fc.Name, 0, err)
		return
	}

	sent := 0
	for _, folder := range folders {
		entry, err := folder.Entry()
		if err != nil {
			lgr.Printf("[DEBUG] skipping entry in %s: %v", fc.Name, err)
			continue
		}

		evt, err := cot.FromEntry(entry, fc)
		if err != nil {
			lgr.Printf("[DEBUG] skipping entry %q in %s: %v", entry.Name, fc.Name, err)
			continue
		}

		data, err := evt.Marshal()
		if err != nil {
			lgr.Printf("[WARN] serialize failed for %q in %s: %v", entry.Name, fc.Name, err)
			continue
		}

		select {
		case d.queue <- data:
			sent++
		case <-ctx.Done():
			return
		default:
			lgr.Printf("[WARN] outbound queue full, dropping event for %q", entry.Name)
		}
	}

	d.record(fc.Name, sent, nil)
	lgr.Printf("[DEBUG] feed %s enqueued %d events", fc.Name, sent)
}

// record updates the feed's counters after a cycle
func (d *Dispatcher) record(name string, events int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.stats[name]
	if !ok {
		s = &FeedStat{Name: name}
		d.stats[name] = s
	}
	s.Polls++
	s.Events += int64(events)
	s.LastPoll = time.Now().UTC()
	s.LastError = ""
	if err != nil {
		s.LastError = err.Error()
	}
}
