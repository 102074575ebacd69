package dataset

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Loader reads CSV sources from disk or over HTTP.
type Loader struct {
	Schema Schema
	rest   *resty.Client
}

// NewLoader creates a loader. timeout bounds each HTTP download.
func NewLoader(schema Schema, timeout time.Duration) *Loader {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	r.SetRetryCount(2)
	return &Loader{Schema: schema, rest: r}
}

// IsRemote reports whether source should be downloaded.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads and normalizes one CSV source: a path, a .gz path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) ([]Row, error) {
	if source == "" {
		return nil, fmt.Errorf("dataset: empty source")
	}
	start := time.Now()

	var (
		rows []Row
		err  error
	)
	if IsRemote(source) {
		rows, err = l.fetch(ctx, source)
	} else {
		rows, err = readFile(source)
	}
	if err != nil {
		return nil, err
	}

	rows = l.Schema.NormalizeAll(rows)
	log.Debug().
		Str("source", source).
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("CSV loaded")
	return rows, nil
}

func readFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]Row, error) {
	resp, err := l.rest.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode())
	}

	rows, err := ReadRows(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return rows, nil
}

// LoadPair reads the train and test sources concurrently and validates them.
// The train file must carry the target column; the test file need not.
func (l *Loader) LoadPair(ctx context.Context, trainSrc, testSrc string) (train, test []Row, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := l.Load(gctx, trainSrc)
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}
		if err := l.Schema.Validate(rows, true); err != nil {
			return fmt.Errorf("train: %w", err)
		}
		train = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.Load(gctx, testSrc)
		if err != nil {
			return fmt.Errorf("test: %w", err)
		}
		if err := l.Schema.Validate(rows, false); err != nil {
			return fmt.Errorf("test: %w", err)
		}
		test = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(train) == 0 {
		return nil, nil, fmt.Errorf("train: no data rows")
	}
	return train, test, nil
}
