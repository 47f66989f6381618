package scorecache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"ideaforge/api/internal/validation"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis cache: %v", err)
	}
	return cache, s
}

func sampleResult(score int) validation.Result {
	return validation.Result{
		Score:   score,
		Verdict: validation.VerdictFor(score),
		Dimensions: []validation.Dimension{
			{Name: validation.DimIdeaClarity, Score: 7, Scale: 10, Detail: "well framed"},
			{Name: validation.DimMarketValidation, Score: 55, Scale: 100},
		},
		ValidatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestSetAndGet(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	want := sampleResult(62)

	if err := cache.Set(ctx, "idea-1", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := cache.Get(ctx, "idea-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Score != 62 || got.Verdict != validation.VerdictRefine {
		t.Errorf("got %+v", got)
	}
	if len(got.Dimensions) != 2 || got.Dimensions[0].Detail != "well framed" {
		t.Errorf("dimensions not round-tripped: %+v", got.Dimensions)
	}
}

func TestGetMiss(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	_, ok, err := cache.Get(context.Background(), "never-scored")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected a miss for an unscored idea")
	}
}

func TestSetReplacesPreviousResult(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, "idea-1", sampleResult(62)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Set(ctx, "idea-1", sampleResult(75)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := cache.Get(ctx, "idea-1")
	if err != nil || !ok {
		t.Fatalf("Get failed: %v ok=%v", err, ok)
	}
	if got.Score != 75 {
		t.Errorf("score = %d, want the replacement 75", got.Score)
	}
}

func TestInvalidate(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, "idea-1", sampleResult(80)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Invalidate(ctx, "idea-1"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "idea-1"); ok {
		t.Error("invalidated entry still present")
	}

	// Invalidating an absent entry is not an error.
	if err := cache.Invalidate(ctx, "missing"); err != nil {
		t.Errorf("Invalidate missing entry failed: %v", err)
	}
}

func TestEntriesExpire(t *testing.T) {
	cache, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if err := cache.Set(ctx, "idea-1", sampleResult(70)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(defaultTTL + time.Minute)

	if _, ok, _ := cache.Get(ctx, "idea-1"); ok {
		t.Error("entry should have expired")
	}
}
