// Package convert turns vision annotations into the artifacts each
// conversion kind promises.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

var (
	// ErrNoTextDetected means the provider found no text in the image.
	ErrNoTextDetected = errors.New("no text detected in the image")
	// ErrEmptyImage means there were no bytes to convert.
	ErrEmptyImage = errors.New("image is empty")
)

// Detector is the slice of the vision adapter the converters use.
type Detector interface {
	TextDetection(ctx context.Context, image []byte) ([]*visionpb.EntityAnnotation, error)
	LabelDetection(ctx context.Context, image []byte) ([]*visionpb.EntityAnnotation, error)
	WebDetection(ctx context.Context, image []byte) (*visionpb.WebDetection, error)
	Annotate(ctx context.Context, image []byte, features ...visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error)
}

type Options struct {
	// SearchLimit caps similar-image results. Defaults to 10.
	SearchLimit int
	// SearchPartial lets search answer with one detector's results when
	// the other fails.
	SearchPartial bool
}

type Service struct {
	vision        Detector
	searchLimit   int
	searchPartial bool
}

func NewService(d Detector, opts Options) *Service {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	return &Service{vision: d, searchLimit: opts.SearchLimit, searchPartial: opts.SearchPartial}
}

// Convert runs the conversion for kind and wraps the artifact in the hop
// envelope.
func (s *Service) Convert(ctx context.Context, kind contract.Kind, image []byte) (contract.Envelope, error) {
	if len(image) == 0 {
		return contract.Envelope{}, ErrEmptyImage
	}
	switch kind {
	case contract.KindText:
		text, err := s.Text(ctx, image)
		if err != nil {
			return contract.Envelope{}, err
		}
		return contract.NewTextEnvelope(kind, text), nil

	case contract.KindExcel:
		wb, err := s.Excel(ctx, image)
		if err != nil {
			return contract.Envelope{}, err
		}
		return contract.NewBinaryEnvelope(kind, wb), nil

	case contract.KindSearch:
		res, degraded, err := s.Search(ctx, image)
		if err != nil {
			return contract.Envelope{}, err
		}
		env, err := contract.NewJSONEnvelope(kind, res)
		if err != nil {
			return contract.Envelope{}, err
		}
		env.Degraded = degraded
		return env, nil

	case contract.KindJSON:
		doc, err := s.JSON(ctx, image)
		if err != nil {
			return contract.Envelope{}, err
		}
		return contract.NewJSONEnvelope(kind, doc)
	}
	return contract.Envelope{}, fmt.Errorf("%w: %q", contract.ErrUnsupportedKind, kind)
}

// Text returns the full-image text annotation.
func (s *Service) Text(ctx context.Context, image []byte) (string, error) {
	anns, err := s.vision.TextDetection(ctx, image)
	if err != nil {
		return "", fmt.Errorf("text detection: %w", err)
	}
	if len(anns) == 0 || strings.TrimSpace(anns[0].GetDescription()) == "" {
		return "", ErrNoTextDetected
	}
	return anns[0].GetDescription(), nil
}

// Excel detects text and lays it out as a workbook.
func (s *Service) Excel(ctx context.Context, image []byte) ([]byte, error) {
	text, err := s.Text(ctx, image)
	if err != nil {
		return nil, err
	}
	return BuildWorkbook(ParseTable(text))
}
