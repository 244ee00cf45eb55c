package fault

import (
	"testing"

	"github.com/CSroseX/lowdown/internal/settings"
)

func snapWith(overrides settings.Layer) settings.Snapshot {
	return settings.NewSnapshot(settings.Merge(settings.Defaults(), overrides))
}

func TestDecideZeroPercentNeverFires(t *testing.T) {
	snap := snapWith(settings.Layer{
		settings.FailBeforePercentage: settings.IntValue(0),
		settings.FailAfterPercentage:  settings.IntValue(0),
		settings.DelayBeforePercentage: settings.IntValue(0),
		settings.DelayAfterPercentage:  settings.IntValue(0),
		settings.DuplicatePercentage:   settings.IntValue(0),
	})
	for i := 0; i < 200; i++ {
		d := Decide(snap)
		if d.FailBefore || d.FailAfter || d.Duplicate || d.DelayBefore != 0 || d.DelayAfter != 0 {
			t.Fatalf("expected zero percentage to never fire, got %+v", d)
		}
	}
}

func TestDecideHundredPercentAlwaysFires(t *testing.T) {
	snap := snapWith(settings.Layer{
		settings.FailBeforePercentage: settings.IntValue(100),
		settings.FailBeforeCode:       settings.IntValue(503),
		settings.DuplicatePercentage:  settings.IntValue(100),
	})
	for i := 0; i < 200; i++ {
		d := Decide(snap)
		if !d.FailBefore || d.FailBeforeCode != 503 {
			t.Fatalf("expected fail-before to always fire with its code, got %+v", d)
		}
		if !d.Duplicate {
			t.Fatal("expected duplicate to always fire at 100%")
		}
	}
}

func TestDecideIntermediatePercentageConverges(t *testing.T) {
	snap := snapWith(settings.Layer{settings.FailBeforePercentage: settings.IntValue(50)})

	const trials = 20000
	fired := 0
	for i := 0; i < trials; i++ {
		if Decide(snap).FailBefore {
			fired++
		}
	}
	ratio := float64(fired) / float64(trials)
	if ratio < 0.45 || ratio > 0.55 {
		t.Fatalf("expected roughly 50%% activation, observed %.3f", ratio)
	}
}

func TestDecideDelayDurationsUseConfiguredMillis(t *testing.T) {
	snap := snapWith(settings.Layer{
		settings.DelayBeforePercentage: settings.IntValue(100),
		settings.DelayBeforeMs:         settings.IntValue(250),
		settings.DelayAfterPercentage:  settings.IntValue(100),
		settings.DelayAfterMs:          settings.IntValue(75),
	})
	d := Decide(snap)
	if d.DelayBefore.Milliseconds() != 250 {
		t.Fatalf("expected 250ms delay-before, got %v", d.DelayBefore)
	}
	if d.DelayAfter.Milliseconds() != 75 {
		t.Fatalf("expected 75ms delay-after, got %v", d.DelayAfter)
	}
}

func TestDecideIndependentDimensions(t *testing.T) {
	snap := snapWith(settings.Layer{
		settings.FailBeforePercentage: settings.IntValue(0),
		settings.FailAfterPercentage:  settings.IntValue(100),
		settings.FailAfterCode:        settings.IntValue(504),
	})
	d := Decide(snap)
	if d.FailBefore {
		t.Fatal("expected fail-before to stay off")
	}
	if !d.FailAfter || d.FailAfterCode != 504 {
		t.Fatalf("expected fail-after to fire independently, got %+v", d)
	}
}
