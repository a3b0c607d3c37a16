// Command linkchecker crawls a set of seed URLs, recursively fetching
// linked resources up to a bounded depth, and reports which links
// resolve (spec §6 "CLI").
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cametumbling/linkchecker/internal/config"
	"github.com/cametumbling/linkchecker/internal/crawler"
	"github.com/cametumbling/linkchecker/internal/logger"
	"github.com/cametumbling/linkchecker/internal/plugin"
	"github.com/cametumbling/linkchecker/internal/throttle"
)

const version = "1.0.0"

var pluginNames = []string{"AnchorCheck", "RegexWarning", "SizeWarning", "SSLCertCheck"}

var opts struct {
	configFile     string
	threads        int
	recursionLevel int
	timeoutSecs    int
	showVersion    bool
	listPlugins    bool
	readStdin      bool
	debugLoggers   []string
	fileLoggers    []string
	noStatus       bool
	noWarnings     bool
	primaryLogger  string
	quiet          bool
	verbose        bool
	cookieFile     string
	noRobots       bool
	checkExtern    bool
	ignoreURLs     []string
	noFollowURLs   []string
	authUser       string
	promptPassword bool
	userAgent      string
}

// exitCode carries run's outcome past cobra's error-only RunE contract
// so the process can distinguish "crawl found errors/warnings" (1) from
// "internal/input error" (2) per spec §6 "Exit codes".
var exitCode int

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "linkchecker [seed-url ...]",
		Short:         "Recursively check links starting from one or more seed URLs",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "file", "f", "", "path to configuration file")
	flags.IntVarP(&opts.threads, "threads", "t", 10, "worker count (<=0 disables threading)")
	flags.IntVarP(&opts.recursionLevel, "recursion-level", "r", -1, "recursion depth; negative means unbounded")
	flags.IntVar(&opts.timeoutSecs, "timeout", 30, "per-request timeout in seconds")
	flags.BoolVarP(&opts.showVersion, "version", "V", false, "print version and exit")
	flags.BoolVar(&opts.listPlugins, "list-plugins", false, "enumerate plugins and exit")
	flags.BoolVar(&opts.readStdin, "stdin", false, "read whitespace-separated seed URLs from stdin")
	flags.StringArrayVarP(&opts.debugLoggers, "debug", "D", nil, "enable debug logger; may repeat; \"all\" enables all")
	flags.StringArrayVarP(&opts.fileLoggers, "file-logger", "F", nil, "add a file logger type[/enc[/file]]; may repeat")
	flags.BoolVar(&opts.noStatus, "no-status", false, "suppress status output")
	flags.BoolVar(&opts.noWarnings, "no-warnings", false, "suppress warning output")
	flags.StringVarP(&opts.primaryLogger, "output", "o", "text", "primary logger: text, csv, json, gml, dot, failures, none")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "alias for -o none")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log every URL, not just errors")
	flags.StringVar(&opts.cookieFile, "cookiefile", "", "Netscape-format (tab-separated) cookie file to seed")
	flags.BoolVar(&opts.noRobots, "no-robots", false, "ignore robots.txt")
	flags.BoolVar(&opts.checkExtern, "check-extern", false, "include external URLs in recursion")
	flags.StringArrayVar(&opts.ignoreURLs, "ignore-url", nil, "repeatable regex; only syntax-check matching URLs")
	flags.StringArrayVar(&opts.noFollowURLs, "no-follow-url", nil, "repeatable regex; check but do not recurse")
	flags.StringVarP(&opts.authUser, "user", "u", "", "HTTP/FTP username")
	flags.BoolVarP(&opts.promptPassword, "password", "p", false, "prompt for HTTP/FTP password on the tty")
	flags.StringVar(&opts.userAgent, "user-agent", "", "override User-Agent header")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if opts.showVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "linkchecker %s\n", version)
		return nil
	}
	if opts.listPlugins {
		for _, p := range pluginNames {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}

	zlog, err := newZapLogger(opts.verbose || len(opts.debugLoggers) > 0)
	if err != nil {
		return fmt.Errorf("linkchecker: building logger: %w", err)
	}
	defer zlog.Sync()

	seeds, err := collectSeeds(args, opts.readStdin)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("linkchecker: no seed URLs given (pass as arguments or use --stdin)")
	}

	var fileCfg *config.Config
	if opts.configFile != "" {
		fileCfg, err = config.Load(opts.configFile)
		if err != nil {
			return fmt.Errorf("linkchecker: loading config: %w", err)
		}
	}

	ignorePatterns, err := compilePatterns(opts.ignoreURLs)
	if err != nil {
		return err
	}
	noFollowPatterns, err := compilePatterns(opts.noFollowURLs)
	if err != nil {
		return err
	}

	userAgent := opts.userAgent
	if userAgent == "" && fileCfg != nil {
		userAgent = fileCfg.Checking.UserAgent
	}

	robotsEnabled := !opts.noRobots
	checkExtern := opts.checkExtern
	if fileCfg != nil {
		checkExtern = checkExtern || fileCfg.Checking.CheckExtern
	}

	crawlCfg := crawler.Config{
		Threads:             opts.threads,
		MaxRecursion:        opts.recursionLevel,
		Timeout:             time.Duration(opts.timeoutSecs) * time.Second,
		UserAgent:           userAgent,
		CheckExtern:         checkExtern,
		Robots:              robotsEnabled,
		IgnoreURLPatterns:   ignorePatterns,
		NoFollowURLPatterns: noFollowPatterns,
		Throttle:            throttle.Config{},
	}
	if fileCfg != nil {
		if fileCfg.Checking.Threads != 0 {
			crawlCfg.Threads = fileCfg.Checking.Threads
		}
		if fileCfg.Checking.MaxRequestsPerSecond > 0 {
			crawlCfg.Throttle.MaxReqPerSec = fileCfg.Checking.MaxRequestsPerSecond
		}
		if fileCfg.Checking.MaxFileSizeDownload > 0 {
			crawlCfg.MaxFileSizeDownload = fileCfg.Checking.MaxFileSizeDownload
		}
		if fileCfg.Checking.MaxFileSizeParse > 0 {
			crawlCfg.MaxFileSizeParse = fileCfg.Checking.MaxFileSizeParse
		}
		crawlCfg.AuthFor = func(rawURL string) (string, string, bool) {
			a, ok := fileCfg.AuthFor(rawURL)
			return a.User, a.Password, ok
		}
	}

	if opts.authUser != "" {
		password := ""
		if opts.promptPassword {
			pw, err := readPassword(cmd)
			if err != nil {
				return fmt.Errorf("linkchecker: reading password: %w", err)
			}
			password = pw
		}
		user, pass := opts.authUser, password
		crawlCfg.AuthFor = func(string) (string, string, bool) { return user, pass, true }
	}

	sinks, failuresSink, err := buildSinks()
	if err != nil {
		return err
	}
	fan := logger.NewFanOut(sinks...)

	plugins := &plugin.Manager{
		Connections: []plugin.Connection{&plugin.SSLCertCheck{WarnWithin: 14 * 24 * time.Hour}},
	}

	agg, err := crawler.New(crawlCfg, fan, zlog, plugins)
	if err != nil {
		return fmt.Errorf("linkchecker: %w", err)
	}

	if opts.cookieFile != "" {
		cookies, err := config.LoadCookieFile(opts.cookieFile)
		if err != nil {
			zlog.Warnw("cookie file could not be loaded, continuing without it", "error", err)
		} else {
			agg.SeedCookies(cookies)
		}
	}

	if err := agg.Seed(seeds); err != nil {
		return fmt.Errorf("linkchecker: seeding: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- agg.Run(ctx) }()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			if failuresSink != nil {
				_ = failuresSink.Close()
			}
			return fmt.Errorf("linkchecker: %w", err)
		}
	case sig := <-sigCh:
		zlog.Infow("received signal, shutting down", "signal", sig.String())
		cancel()
		<-errCh
	}

	if agg.ErrorCount() > 0 || (!opts.noWarnings && agg.WarningCount() > 0) {
		exitCode = 1
	}
	return nil
}

func newZapLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func collectSeeds(args []string, readStdin bool) ([]string, error) {
	seeds := append([]string{}, args...)
	if readStdin {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			seeds = append(seeds, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("linkchecker: reading stdin: %w", err)
		}
	}
	return seeds, nil
}

func compilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, fmt.Errorf("linkchecker: bad pattern %q: %w", e, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		return strings.TrimRight(line, "\r\n"), err
	}
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// buildSinks assembles the logger fan-out from -o/-F/-q, returning the
// FailuresSink separately (if configured) so it can be closed early on
// an aborted run (spec §6 "Persisted state").
func buildSinks() ([]logger.Sink, *logger.FailuresSink, error) {
	primary := opts.primaryLogger
	if opts.quiet {
		primary = "none"
	}

	var sinks []logger.Sink
	var failures *logger.FailuresSink

	addSink := func(spec string) error {
		kind, _, path := splitLoggerSpec(spec)
		switch kind {
		case "none":
			return nil
		case "text":
			sinks = append(sinks, logger.NewTextSink(os.Stdout, opts.verbose && !opts.noStatus, opts.noWarnings))
		case "json":
			out, err := openLoggerOutput(path, os.Stdout)
			if err != nil {
				return err
			}
			sinks = append(sinks, logger.NewJSONSink(out))
		case "csv":
			out, err := openLoggerOutput(path, os.Stdout)
			if err != nil {
				return err
			}
			sinks = append(sinks, logger.NewCSVSink(out))
		case "gml", "dot":
			out, err := openLoggerOutput(path, os.Stdout)
			if err != nil {
				return err
			}
			sinks = append(sinks, logger.NewGraphSink(out, kind))
		case "failures":
			if path == "" {
				path = "linkchecker-out.failures"
			}
			fs, err := logger.NewFailuresSink(path)
			if err != nil {
				return fmt.Errorf("linkchecker: failures logger: %w", err)
			}
			failures = fs
			sinks = append(sinks, fs)
		default:
			return fmt.Errorf("linkchecker: unsupported logger type %q", kind)
		}
		return nil
	}

	if err := addSink(primary); err != nil {
		return nil, nil, err
	}
	for _, spec := range opts.fileLoggers {
		if err := addSink(spec); err != nil {
			return nil, nil, err
		}
	}

	return sinks, failures, nil
}

// splitLoggerSpec parses the CLI's "type[/enc[/file]]" logger spec.
func splitLoggerSpec(spec string) (kind, encoding, path string) {
	parts := strings.SplitN(spec, "/", 3)
	kind = parts[0]
	if len(parts) > 1 {
		encoding = parts[1]
	}
	if len(parts) > 2 {
		path = parts[2]
	}
	return kind, encoding, path
}

func openLoggerOutput(path string, fallback *os.File) (*os.File, error) {
	if path == "" {
		return fallback, nil
	}
	return os.Create(path)
}
