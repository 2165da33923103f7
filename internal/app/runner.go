package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/endpointkit/internal/config"
	"github.com/samvad-hq/endpointkit/internal/logger"
	"github.com/samvad-hq/endpointkit/internal/storage"
	"github.com/samvad-hq/endpointkit/pkg/apiclient"
	"github.com/samvad-hq/endpointkit/pkg/endpoint"
	"github.com/samvad-hq/endpointkit/pkg/httpclient"
	"github.com/samvad-hq/endpointkit/pkg/publishers"
)

// ErrUnknownTarget is returned by Call for names not in the target set.
var ErrUnknownTarget = errors.New("unknown target")

// Runner executes named targets of a configured target set. It owns the
// client, the exchange journal, the event sinks and the metrics registry.
type Runner struct {
	cfg     *config.Config
	set     *endpoint.Set
	client  *apiclient.Client[endpoint.Target]
	fanout  *publishers.Fanout
	events  *publishers.ExchangePlugin
	journal storage.Journal
	metrics *prometheus.Registry
	log     logger.Logger
}

// CallRequest names a target and how to decode its response. Empty
// FieldPath and false Many fall back to the target's declared hints.
type CallRequest struct {
	Target    string
	Params    map[string]string
	FieldPath string
	Many      bool
}

// NewRunner builds a runner from config files.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	set, err := loadTargetSet(cfg.TargetsFile)
	if err != nil {
		return nil, fmt.Errorf("load target set: %w", err)
	}
	specs := set.All()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	log.InfoObj("target set loaded", "targets_meta", map[string]any{
		"service": set.Service(),
		"count":   len(names),
		"names":   names,
	})

	r := &Runner{cfg: cfg, set: set, metrics: prometheus.NewRegistry(), log: log}

	metricsPlugin, err := httpclient.NewMetricsPlugin(r.metrics)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	plugins := []httpclient.Plugin{metricsPlugin}

	if r.fanout, err = buildFanout(ctx, cfg.SinksFile, log); err != nil {
		return nil, err
	}
	if r.fanout.Size() > 0 {
		r.events = publishers.NewExchangePlugin(r.fanout, log)
		plugins = append(plugins, r.events)
	}

	if err := r.openJournal(); err != nil {
		_ = r.closeSinks()
		return nil, err
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = set.BaseURL()
	}

	opts := []apiclient.Option{
		apiclient.WithBaseURL(baseURL),
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithVerboseLogging(cfg.VerboseLogging),
		apiclient.WithUserAgent(cfg.UserAgent),
		apiclient.WithLogger(log),
	}
	switch cfg.JournalMode {
	case config.JournalRecord:
		plugins = append(plugins, httpclient.NewRecordPlugin(r.journal, log))
	case config.JournalReplay:
		opts = append(opts, apiclient.WithTransport(httpclient.NewReplayTransport(r.journal)))
	}
	opts = append(opts, apiclient.WithPlugins(plugins...))
	r.client = apiclient.New[endpoint.Target](opts...)

	log.InfoObj("runner initialized", "runner_config", map[string]any{
		"base_url":       baseURL,
		"journal_mode":   cfg.JournalMode,
		"sinks_count":    r.fanout.Size(),
		"timeout_millis": cfg.Timeout.Milliseconds(),
	})
	return r, nil
}

// loadTargetSet reads a target set file, or an OpenAPI document when the
// file declares an openapi version.
func loadTargetSet(path string) (*endpoint.Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("targets file path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}
	if isOpenAPI(data) {
		return endpoint.LoadOpenAPISetFromData(data)
	}
	return endpoint.LoadSet(path)
}

func isOpenAPI(data []byte) bool {
	var head struct {
		OpenAPI string `yaml:"openapi"`
	}
	// yaml.v3 also accepts JSON documents.
	if err := yaml.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.OpenAPI != ""
}

func buildFanout(ctx context.Context, sinksFile string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(sinksFile) == "" {
		return publishers.NewFanout(nil), nil
	}
	reg, err := publishers.LoadRegistry(sinksFile)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, c := range enabled {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	log.InfoObj("sinks registry loaded", "sinks_meta", map[string]any{
		"count": len(summaries),
		"sinks": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

func (r *Runner) openJournal() error {
	typ := "none"
	if r.cfg.JournalMode == config.JournalRecord || r.cfg.JournalMode == config.JournalReplay {
		typ = "bbolt"
	}
	j, err := storage.NewJournal(typ, r.cfg.JournalPath, storage.Options{
		TTL:             r.cfg.JournalTTL,
		CleanupInterval: r.cfg.JournalCleanupInterval,
	})
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	r.journal = j
	if typ != "none" {
		r.log.InfoObj("journal initialized", "journal_config", map[string]any{
			"mode":                     r.cfg.JournalMode,
			"path":                     r.cfg.JournalPath,
			"ttl_seconds":              int(r.cfg.JournalTTL.Seconds()),
			"cleanup_interval_seconds": int(r.cfg.JournalCleanupInterval.Seconds()),
		})
	}
	return nil
}

// List returns the target specs, sorted by name.
func (r *Runner) List() []endpoint.Spec { return r.set.All() }

// Metrics exposes the request counters and latency histograms.
func (r *Runner) Metrics() prometheus.Gatherer { return r.metrics }

// Call executes req and decodes the response into generic JSON values.
func (r *Runner) Call(ctx context.Context, req CallRequest) (any, error) {
	spec, ok := r.set.ByName(req.Target)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, req.Target)
	}
	bound, err := spec.Bind(req.Params)
	if err != nil {
		return nil, fmt.Errorf("bind target %q: %w", spec.Name, err)
	}

	fieldPath := req.FieldPath
	if fieldPath == "" {
		fieldPath = spec.FieldPath
	}
	target := endpoint.Target(bound)

	if req.Many || spec.Many {
		items, err := apiclient.FetchMany[any](ctx, r.client, target, fieldPath)
		if err != nil {
			return nil, err
		}
		return items, nil
	}
	return apiclient.FetchOne[any](ctx, r.client, target, fieldPath)
}

// Close releases the journal and the sinks.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if err := r.closeSinks(); err != nil {
		errs = append(errs, fmt.Errorf("close sinks: %w", err))
	}
	if r.journal != nil {
		if err := r.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	return errors.Join(errs...)
}

// closeSinks delivers queued exchange events before releasing the sinks.
func (r *Runner) closeSinks() error {
	if r.events != nil {
		_ = r.events.Close()
	}
	return r.fanout.Close()
}
