//go:build integration

package integration_test

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"
)

const (
	metricsWait = 10 * time.Second
	metricsTick = 100 * time.Millisecond
)

var (
	errMetricsServerStatus = errors.New("metrics server returns other status than ok")
	errMetricNotFound      = errors.New("metric was not found")
	errStatusServerPort    = errors.New("status server address is missing")
)

// metric selects one prometheus sample by name prefix and label pairs.
type metric struct {
	name   string
	labels []string
}

type metricScraper struct {
	url string
}

func newMetricScraper() (*metricScraper, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Status.Address == "" {
		return nil, errStatusServerPort
	}

	return &metricScraper{url: "http://" + strings.TrimPrefix(cfg.Status.Address, "http://") + "/metrics"}, nil
}

// scrape returns the value of the first sample matching m.
func (ms metricScraper) scrape(ctx context.Context, m metric) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ms.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("error scraping metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errMetricsServerStatus
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, m.name) || !m.matches(line) {
			continue
		}

		value, err := strconv.ParseFloat(line[strings.LastIndexByte(line, ' ')+1:], 64)
		if err != nil {
			return 0, fmt.Errorf("sample %q: %w", line, err)
		}

		return int(value), nil
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error scanning metrics: %w", err)
	}

	return 0, errMetricNotFound
}

func (m metric) matches(line string) bool {
	for _, label := range m.labels {
		if !strings.Contains(line, label) {
			return false
		}
	}

	return true
}

func createMetric(t *testing.T, name string, labels ...string) metric {
	t.Helper()

	if len(labels)%2 != 0 {
		t.Fatalf("labels must come in pairs, got %d values", len(labels))
	}

	m := metric{name: name}
	for i := 0; i < len(labels); i += 2 {
		m.labels = append(m.labels, labels[i]+`="`+labels[i+1]+`"`)
	}

	return m
}
