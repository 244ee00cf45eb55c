package store

import (
	"sync"
	"testing"

	"github.com/CSroseX/lowdown/internal/settings"
)

func TestMergeAdminOverlaysOnly(t *testing.T) {
	s := New()
	s.MergeAdmin(settings.Layer{settings.MatchHost: settings.StringValue("a.example.com")})
	s.MergeAdmin(settings.Layer{settings.MatchMethod: settings.StringValue("POST")})

	admin, _ := s.ReadSnapshot()
	if admin[settings.MatchHost].Str() != "a.example.com" {
		t.Fatalf("expected first merge to survive, got %+v", admin)
	}
	if admin[settings.MatchMethod].Str() != "POST" {
		t.Fatalf("expected second merge to add, got %+v", admin)
	}
}

func TestResetAdminReplacesWholesale(t *testing.T) {
	s := New()
	s.MergeAdmin(settings.Layer{settings.MatchHost: settings.StringValue("a.example.com")})
	s.ResetAdmin(settings.Layer{settings.MatchMethod: settings.StringValue("POST")})

	admin, _ := s.ReadSnapshot()
	if _, ok := admin[settings.MatchHost]; ok {
		t.Fatal("expected reset to drop prior override")
	}
	if admin[settings.MatchMethod].Str() != "POST" {
		t.Fatalf("got %+v", admin)
	}
}

func TestResetAdminEmptyClearsEverything(t *testing.T) {
	s := New()
	s.MergeAdmin(settings.Layer{settings.MatchHost: settings.StringValue("a.example.com")})
	s.ResetAdmin(settings.Layer{})

	admin, _ := s.ReadSnapshot()
	if len(admin) != 0 {
		t.Fatalf("expected empty admin layer, got %+v", admin)
	}
}

func TestTryConsumeOneOffSingleConsumption(t *testing.T) {
	s := New()
	s.PushOneOff(settings.Layer{settings.FailBeforePercentage: settings.IntValue(100)})

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0

	alwaysMatch := func(settings.Layer) bool { return true }
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.TryConsumeOneOff(alwaysMatch); ok {
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if consumed != 1 {
		t.Fatalf("expected exactly one consumer to observe the rule, got %d", consumed)
	}
	if _, ok := s.TryConsumeOneOff(alwaysMatch); ok {
		t.Fatal("expected queue to be empty after consumption")
	}
}

func TestTryConsumeOneOffFirstMatchInOrder(t *testing.T) {
	s := New()
	s.PushOneOff(settings.Layer{settings.MatchHost: settings.StringValue("a.example.com")})
	s.PushOneOff(settings.Layer{settings.MatchHost: settings.StringValue("b.example.com")})

	matchB := func(l settings.Layer) bool {
		return l[settings.MatchHost].Str() == "b.example.com"
	}
	rule, ok := s.TryConsumeOneOff(matchB)
	if !ok {
		t.Fatal("expected a match")
	}
	if rule.Layer[settings.MatchHost].Str() != "b.example.com" {
		t.Fatalf("got %+v", rule.Layer)
	}

	_, remaining := s.ReadSnapshot()
	if len(remaining) != 1 || remaining[0].Layer[settings.MatchHost].Str() != "a.example.com" {
		t.Fatalf("expected only the unmatched rule left, got %+v", remaining)
	}
}

func TestTryConsumeOneOffNoMatch(t *testing.T) {
	s := New()
	s.PushOneOff(settings.Layer{settings.MatchHost: settings.StringValue("a.example.com")})
	never := func(settings.Layer) bool { return false }
	if _, ok := s.TryConsumeOneOff(never); ok {
		t.Fatal("expected no match")
	}
	_, remaining := s.ReadSnapshot()
	if len(remaining) != 1 {
		t.Fatal("expected rule to remain queued")
	}
}
