// Package enrich defines post-completion enrichment: optional augmentation
// that must never delay the primary reply. Failures are swallowed and the
// corresponding stream event is simply omitted.
package enrich

import (
	"context"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Enricher produces post-hoc augmentations of a committed reply.
type Enricher interface {
	// Transliterate renders text in Latin script for early readers.
	Transliterate(ctx context.Context, text string) (string, error)

	// Hints suggests utterances the child could say next.
	Hints(ctx context.Context, history []types.Turn, language string) ([]string, error)
}
