// Package storage keeps recorded HTTP exchanges on disk for offline replay.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/endpointkit/pkg/journal"
)

type (
	Exchange = journal.Exchange
	Journal  = journal.Journal
)

// Options controls retention for concrete journal implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewJournal creates the configured journal backend.
func NewJournal(typ, path string, opts Options) (Journal, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopJournal{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported journal type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopJournal struct{}

func (noopJournal) Close() error                       { return nil }
func (noopJournal) Put(string, Exchange) error         { return nil }
func (noopJournal) Get(string) (Exchange, bool, error) { return Exchange{}, false, nil }
