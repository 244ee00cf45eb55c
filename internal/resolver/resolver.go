package resolver

import (
	"net/http"

	"github.com/CSroseX/lowdown/internal/matcher"
	"github.com/CSroseX/lowdown/internal/settings"
	"github.com/CSroseX/lowdown/internal/store"
)

// Result is the outcome of Resolve: the effective per-request Snapshot
// and whether a one-off rule was consumed to produce it.
type Result struct {
	Snapshot       settings.Snapshot
	ConsumedOneOff bool
}

// Resolve implements spec §4.3. path and method are the request's
// (already path-rewritten, if applicable) path and method; header is
// the inbound request header set used both for the Request layer
// extraction and for match-header evaluation.
func Resolve(s *store.Store, defaults, env settings.Layer, method, path string, header http.Header) Result {
	requestLayer := settings.ExtractLayer(header)

	adminLayer, _ := s.ReadSnapshot()
	base := settings.Merge(defaults, env, adminLayer, requestLayer)

	destHost := destinationHost(base)

	matches := func(candidate settings.Layer) bool {
		merged := settings.Merge(base, candidate)
		snap := settings.NewSnapshot(merged)
		return matcher.Match(method, path, destHost, header, snap)
	}

	rule, consumed := s.TryConsumeOneOff(matches)

	effective := base
	if consumed {
		effective = settings.Merge(base, rule.Layer)
	}

	return Result{
		Snapshot:       settings.NewSnapshot(effective),
		ConsumedOneOff: consumed,
	}
}
