// Package crawler implements the worker pool (C10) and the aggregate
// (C11): the process-wide coordinator owning the caches (C3-C6), the
// work queue (C9), the plugin manager (C12), the logger fan-out (C13),
// the cookie jar, and configuration (spec §2, §4.9).
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cametumbling/linkchecker/internal/cache"
	"github.com/cametumbling/linkchecker/internal/logger"
	"github.com/cametumbling/linkchecker/internal/plugin"
	"github.com/cametumbling/linkchecker/internal/queue"
	"github.com/cametumbling/linkchecker/internal/robots"
	"github.com/cametumbling/linkchecker/internal/throttle"
	"github.com/cametumbling/linkchecker/internal/urlobject"
)

// Config mirrors spec §6's [checking]/[filtering] tables plus the
// worker-pool and login knobs of §4.9.
type Config struct {
	Threads             int // <=0 runs the 0-thread serial mode
	MaxRecursion        int // negative = unbounded
	Timeout             time.Duration
	UserAgent           string
	MaxRedirects        int
	MaxFileSizeDownload int64
	MaxFileSizeParse    int64
	CheckExtern         bool
	Robots              bool
	AbortTimeout        time.Duration

	IgnoreURLPatterns   []*regexp.Regexp
	NoFollowURLPatterns []*regexp.Regexp

	AnchorCacheSize int
	ResultCacheSize int

	Throttle throttle.Config

	LoginURL           string
	LoginUser          string
	LoginPassword      string
	LoginUserField     string // form input name for the username, default "username"
	LoginPasswordField string // form input name for the password, default "password"

	// AuthFor returns the first matching authentication entry for a raw
	// URL, if any (spec §6 "[authentication]", "the first matching entry
	// wins"). Nil means no authentication is configured.
	AuthFor func(rawURL string) (user, password string, ok bool)
}

func (c Config) normalize() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.MaxFileSizeDownload <= 0 {
		c.MaxFileSizeDownload = 10 << 20
	}
	if c.MaxFileSizeParse <= 0 {
		c.MaxFileSizeParse = c.MaxFileSizeDownload
	}
	if c.AbortTimeout <= 0 {
		c.AbortTimeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "LinkChecker/1.0"
	}
	return c
}

// Aggregate is C11: it owns every shared resource a worker borrows.
type Aggregate struct {
	cfg Config

	queue    *queue.Queue[*urlobject.URLObject]
	anchors  *cache.AnchorCache
	results  *cache.ResultCache
	robots   *robots.Cache
	throttle *throttle.Throttle
	plugins  *plugin.Manager
	log      *logger.FanOut
	zlog     *zap.SugaredLogger

	jar    http.CookieJar
	client *http.Client

	seedHost string

	visitCount atomic.Int64
	errorCount atomic.Int64
	warnCount  atomic.Int64
	bytesDown  atomic.Int64
}

// New builds an Aggregate: the robots cache, caches, throttle, cookie
// jar and a single *http.Client shared by every worker session (spec
// §4.9, "each constructs an HTTP session... cookie jar shared from C11").
func New(cfg Config, log *logger.FanOut, zlog *zap.SugaredLogger, plugins *plugin.Manager) (*Aggregate, error) {
	cfg = cfg.normalize()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("crawler: building cookie jar: %w", err)
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: cfg.Timeout,
		// Redirect handling is explicit in HTTPChecker (spec §4.9: "max-redirect
		// set to 0 so that redirect handling is explicit").
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if plugins == nil {
		plugins = &plugin.Manager{}
	}
	anchors := cache.NewAnchorCache(cfg.AnchorCacheSize)
	plugins.Contents = append(plugins.Contents, &plugin.AnchorCheck{Cache: anchors})

	a := &Aggregate{
		cfg:      cfg,
		queue:    queue.New[*urlobject.URLObject](),
		anchors:  anchors,
		results:  cache.NewResultCache(cfg.ResultCacheSize),
		robots:   robots.New(client, cfg.UserAgent),
		throttle: throttle.New(cfg.Throttle),
		plugins:  plugins,
		log:      log,
		zlog:     zlog,
		jar:      jar,
		client:   client,
	}
	return a, nil
}

// SeedCookies installs pre-loaded cookies (e.g. from a --cookiefile) into
// the shared cookie jar before the crawl starts (spec §6 "Cookie file
// format").
func (a *Aggregate) SeedCookies(cookies []*http.Cookie) {
	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		byHost[c.Domain] = append(byHost[c.Domain], c)
	}
	for host, cs := range byHost {
		scheme := "http"
		for _, c := range cs {
			if c.Secure {
				scheme = "https"
				break
			}
		}
		a.jar.SetCookies(&url.URL{Scheme: scheme, Host: host, Path: "/"}, cs)
	}
}

// Seed enqueues the top-level seed URLs at recursion level 0 and sets
// the scope host used for extern classification to the first seed's
// host (spec §2, "the CLI... seeds C9 with top-level URL objects").
func (a *Aggregate) Seed(seeds []string) error {
	for i, raw := range seeds {
		obj, err := urlobject.Build(raw, nil, nil, "", "", 0, 0, 0)
		if err != nil {
			a.zlog.Warnw("seed URL failed to normalise", "url", raw, "error", err)
			continue
		}
		if i == 0 && obj.Parts != nil {
			a.seedHost = obj.Parts.Host
		}
		a.queue.Push(obj)
	}
	return nil
}

// Run drives the worker pool (C10) until the queue drains or the abort
// timeout elapses, then shuts down and closes the logger fan-out.
func (a *Aggregate) Run(ctx context.Context) error {
	if a.cfg.LoginURL != "" {
		if err := a.login(ctx); err != nil {
			a.zlog.Errorw("login failed", "error", err)
		}
	}

	threads := a.cfg.Threads
	var g errgroup.Group

	if threads <= 0 {
		// Serial mode: only this goroutine pushes, so an empty queue means
		// the crawl is complete.
		for a.queue.Len() > 0 {
			obj, ok := a.queue.Pop(ctx)
			if !ok {
				break
			}
			a.process(ctx, obj)
			a.queue.Done()
		}
	} else {
		for i := 0; i < threads; i++ {
			g.Go(func() error {
				a.runLoop(ctx)
				return nil
			})
		}
	}

	joined := a.queue.Join(a.cfg.AbortTimeout)
	a.queue.Shutdown()
	g.Wait()

	a.zlog.Infow("crawl finished",
		"visited", a.visitCount.Load(),
		"errors", a.errorCount.Load(),
		"bytes", a.bytesDown.Load(),
	)

	if err := a.log.Close(); err != nil {
		return err
	}
	if !joined {
		return fmt.Errorf("crawl aborted: queue did not drain within %s", a.cfg.AbortTimeout)
	}
	return ctx.Err()
}

// ErrorCount returns the number of URLs reported invalid so far (spec §6
// exit code 1, "errors ... occurred").
func (a *Aggregate) ErrorCount() int64 { return a.errorCount.Load() }

// VisitCount returns the number of URLs checked so far.
func (a *Aggregate) VisitCount() int64 { return a.visitCount.Load() }

// WarningCount returns the number of URLs that carried at least one
// warning (spec §6 exit code 1, "... or printed warnings occurred").
func (a *Aggregate) WarningCount() int64 { return a.warnCount.Load() }

// runLoop is the body of a single worker (C10): pop, process, Done,
// until the queue is shut down and drained or ctx is cancelled.
func (a *Aggregate) runLoop(ctx context.Context) {
	for {
		obj, ok := a.queue.Pop(ctx)
		if !ok {
			return
		}
		a.process(ctx, obj)
		a.queue.Done()
	}
}
