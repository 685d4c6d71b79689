package cache

import (
	"context"
	"testing"

	"github.com/demandforge/invforecast/internal/domain"
)

func TestNoopBundleCacheAlwaysMisses(t *testing.T) {
	c := NewNoopBundleCache()
	ctx := context.Background()

	if err := c.Set(ctx, "k", domain.ForecastBundle{Horizon: 7}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected noop cache to always miss")
	}
}

func TestKeyDeterministicPerInputs(t *testing.T) {
	a := Key("fingerprint-1", 7, domain.Daily)
	b := Key("fingerprint-1", 7, domain.Daily)
	c := Key("fingerprint-1", 14, domain.Daily)

	if a != b {
		t.Fatalf("Key was not deterministic for identical inputs")
	}
	if a == c {
		t.Fatalf("Key collided for different horizons")
	}
}
