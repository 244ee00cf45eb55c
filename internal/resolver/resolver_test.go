package resolver

import (
	"net/http"
	"testing"

	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
)

func TestResolveMergesAllLayers(t *testing.T) {
	s := store.New()
	s.MergeAdmin(settings.Layer{settings.FailBeforePercentage: settings.IntValue(10)})

	env := settings.Layer{settings.DelayBeforeMs: settings.IntValue(50)}
	header := http.Header{}
	header.Set("x-lowdown-destination-url", "http://backend.internal")
	header.Set("x-lowdown-duplicate-percentage", "5")

	res := Resolve(s, settings.Defaults(), env, "GET", "/orders", header)

	if res.ConsumedOneOff {
		t.Fatal("expected no one-off to be queued")
	}
	snap := res.Snapshot
	if snap.Int(settings.FailBeforePercentage) != 10 {
		t.Fatalf("expected admin layer to contribute, got %d", snap.Int(settings.FailBeforePercentage))
	}
	if snap.Int(settings.DelayBeforeMs) != 50 {
		t.Fatalf("expected env layer to contribute, got %d", snap.Int(settings.DelayBeforeMs))
	}
	if snap.Int(settings.DuplicatePercentage) != 5 {
		t.Fatalf("expected request layer to contribute, got %d", snap.Int(settings.DuplicatePercentage))
	}
	if snap.String(settings.DestinationURL) != "http://backend.internal" {
		t.Fatalf("expected destination-url to resolve, got %q", snap.String(settings.DestinationURL))
	}
}

func TestResolveConsumesMatchingOneOff(t *testing.T) {
	s := store.New()
	header := http.Header{}
	header.Set("x-lowdown-destination-url", "http://backend.internal")
	s.PushOneOff(settings.Layer{
		settings.MatchURI:      settings.StringValue("/orders"),
		settings.FailAfterCode: settings.IntValue(418),
	})

	res := Resolve(s, settings.Defaults(), settings.Layer{}, "GET", "/orders", header)

	if !res.ConsumedOneOff {
		t.Fatal("expected the one-off to be consumed since match-uri agrees")
	}
	if res.Snapshot.Int(settings.FailAfterCode) != 418 {
		t.Fatalf("expected one-off override to apply, got %d", res.Snapshot.Int(settings.FailAfterCode))
	}
}

func TestResolveSkipsNonMatchingOneOff(t *testing.T) {
	s := store.New()
	header := http.Header{}
	header.Set("x-lowdown-destination-url", "http://backend.internal")
	s.PushOneOff(settings.Layer{
		settings.MatchURI:      settings.StringValue("/checkout"),
		settings.FailAfterCode: settings.IntValue(418),
	})

	res := Resolve(s, settings.Defaults(), settings.Layer{}, "GET", "/orders", header)

	if res.ConsumedOneOff {
		t.Fatal("expected the one-off to remain queued since match-uri disagrees")
	}
	if res.Snapshot.Int(settings.FailAfterCode) == 418 {
		t.Fatal("expected default fail-after-code, not the unmatched one-off's")
	}
}

func TestResolveOneOffMatchAgainstRequestLayerNotJustAdmin(t *testing.T) {
	s := store.New()
	header := http.Header{}
	header.Set("x-lowdown-destination-url", "http://backend.internal")
	header.Set("x-lowdown-match-method", "POST")
	s.PushOneOff(settings.Layer{settings.DelayBeforeMs: settings.IntValue(200)})

	res := Resolve(s, settings.Defaults(), settings.Layer{}, "POST", "/orders", header)

	if !res.ConsumedOneOff {
		t.Fatal("expected one-off to match since request layer's match-method satisfies the base snapshot")
	}
	if res.Snapshot.Int(settings.DelayBeforeMs) != 200 {
		t.Fatal("expected one-off's delay-before-ms to apply")
	}
}
