package convert

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Names used in Envelope.Degraded when a search detector fails.
const (
	DegradedLabels  = "labels"
	DegradedSimilar = "searchResults"
)

type SimilarImage struct {
	Type  string  `json:"type"`
	URL   string  `json:"url"`
	Score float32 `json:"score"`
}

type Label struct {
	Description string  `json:"description"`
	Score       float32 `json:"score"`
}

// SearchResult is the search payload: similar images by descending score
// (capped) and labels by descending confidence.
type SearchResult struct {
	SearchResults []SimilarImage `json:"searchResults"`
	Labels        []Label        `json:"labels"`
}

// Search runs label and web detection concurrently. It returns the names
// of detectors that failed when partial results are allowed.
func (s *Service) Search(ctx context.Context, image []byte) (SearchResult, []string, error) {
	var (
		labels           []*visionpb.EntityAnnotation
		web              *visionpb.WebDetection
		labelErr, webErr error
	)

	if s.searchPartial {
		var g errgroup.Group
		g.Go(func() error {
			labels, labelErr = s.vision.LabelDetection(ctx, image)
			return nil
		})
		g.Go(func() error {
			web, webErr = s.vision.WebDetection(ctx, image)
			return nil
		})
		_ = g.Wait()
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			labels, err = s.vision.LabelDetection(gctx, image)
			if err != nil {
				return fmt.Errorf("label detection: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			web, err = s.vision.WebDetection(gctx, image)
			if err != nil {
				return fmt.Errorf("web detection: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return SearchResult{}, nil, err
		}
	}

	var degraded []string
	switch {
	case labelErr != nil && webErr != nil:
		return SearchResult{}, nil, errors.Join(
			fmt.Errorf("label detection: %w", labelErr),
			fmt.Errorf("web detection: %w", webErr),
		)
	case labelErr != nil:
		log.Warn().Err(labelErr).Msg("label detection failed; returning similar images only")
		degraded = append(degraded, DegradedLabels)
	case webErr != nil:
		log.Warn().Err(webErr).Msg("web detection failed; returning labels only")
		degraded = append(degraded, DegradedSimilar)
	}

	return SearchResult{
		SearchResults: rankSimilar(web, s.searchLimit),
		Labels:        rankLabels(labels),
	}, degraded, nil
}

func rankSimilar(web *visionpb.WebDetection, limit int) []SimilarImage {
	out := make([]SimilarImage, 0, len(web.GetVisuallySimilarImages()))
	for _, img := range web.GetVisuallySimilarImages() {
		out = append(out, SimilarImage{Type: "similar", URL: img.GetUrl(), Score: img.GetScore()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func rankLabels(anns []*visionpb.EntityAnnotation) []Label {
	out := make([]Label, 0, len(anns))
	for _, a := range anns {
		out = append(out, Label{Description: a.GetDescription(), Score: a.GetScore()})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
