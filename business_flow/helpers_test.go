package businessflow_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hendarSu/locationtracker/app/services"
	businessflow "github.com/hendarSu/locationtracker/business_flow"
	"github.com/hendarSu/locationtracker/repository"
	testingutil "github.com/hendarSu/locationtracker/testing"
)

const testBaseURL = "https://track.example.com"

// recordingCache is an in-memory ViewCache that remembers invalidated keys
type recordingCache struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: map[string][]byte{}}
}

func (c *recordingCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *recordingCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
		c.invalidated = append(c.invalidated, k)
	}
	return nil
}

func (c *recordingCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

func (c *recordingCache) invalidatedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invalidated...)
}

func (c *recordingCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = nil
}

type testFlows struct {
	links   businessflow.TrackingLinkFlow
	capture businessflow.CaptureFlow
	stats   businessflow.StatsFlow
	cache   *recordingCache
}

func newTestFlows(tdb *testingutil.TestDB) *testFlows {
	linkRepo := repository.NewTrackingLinkRepository(tdb.DB)
	locationRepo := repository.NewLocationRecordRepository(tdb.DB)
	cache := newRecordingCache()
	return &testFlows{
		links:   businessflow.NewTrackingLinkFlow(tdb.DB, linkRepo, locationRepo, tdb.Schema, cache, services.NewMarkdownRenderer(), testBaseURL),
		capture: businessflow.NewCaptureFlow(linkRepo, locationRepo, cache),
		stats:   businessflow.NewStatsFlow(linkRepo, locationRepo),
		cache:   cache,
	}
}
