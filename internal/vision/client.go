// Package vision wraps the Cloud Vision image annotator behind the four
// operations the converters need.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/limiter"
	mpkg "github.com/ProTeamWorkforce/ImageAi-APp/internal/metrics"
)

const provider = "google"

// Annotator is the subset of *vision.ImageAnnotatorClient we call.
// Tests substitute a fake.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// Options configures the client.
type Options struct {
	// CredentialsFile is a service account key. Empty means application
	// default credentials.
	CredentialsFile string
	// Timeout bounds each provider call. Zero disables it.
	Timeout time.Duration
	Limiter *limiter.Adaptive
}

// Client is the Vision Client Adapter.
type Client struct {
	annotator    Annotator
	timeout      time.Duration
	limiter      *limiter.Adaptive
	cooldownSeen atomic.Bool
}

// New validates credentials and dials the provider. Any error returned
// here wraps ErrCredentials or is a dial failure; both should stop the
// process.
func New(ctx context.Context, opts Options) (*Client, error) {
	var copts []option.ClientOption
	if opts.CredentialsFile != "" {
		if err := checkCredentialsFile(opts.CredentialsFile); err != nil {
			return nil, err
		}
		copts = append(copts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	c, err := vision.NewImageAnnotatorClient(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentials, err)
	}
	log.Info().Bool("key_file", opts.CredentialsFile != "").Msg("vision client initialized")
	return NewWithAnnotator(c, opts), nil
}

// NewWithAnnotator builds a Client around an existing annotator.
func NewWithAnnotator(a Annotator, opts Options) *Client {
	return &Client{annotator: a, timeout: opts.Timeout, limiter: opts.Limiter}
}

func checkCredentialsFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrCredentials, path, err)
	}
	var key struct {
		ClientEmail string `json:"client_email"`
		Type        string `json:"type"`
	}
	if err := json.Unmarshal(b, &key); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrCredentials, path, err)
	}
	if key.ClientEmail == "" {
		return fmt.Errorf("%w: client_email is missing from %s", ErrCredentials, path)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.annotator == nil {
		return nil
	}
	return c.annotator.Close()
}

// TextDetection returns the text annotations. The first entry, when
// present, covers the whole image.
func (c *Client) TextDetection(ctx context.Context, image []byte) ([]*visionpb.EntityAnnotation, error) {
	res, err := c.annotate(ctx, image, visionpb.Feature_TEXT_DETECTION)
	if err != nil {
		return nil, err
	}
	return res.GetTextAnnotations(), nil
}

// LabelDetection returns label annotations.
func (c *Client) LabelDetection(ctx context.Context, image []byte) ([]*visionpb.EntityAnnotation, error) {
	res, err := c.annotate(ctx, image, visionpb.Feature_LABEL_DETECTION)
	if err != nil {
		return nil, err
	}
	return res.GetLabelAnnotations(), nil
}

// WebDetection returns web entities and visually similar images. The
// result may be nil when the provider found nothing.
func (c *Client) WebDetection(ctx context.Context, image []byte) (*visionpb.WebDetection, error) {
	res, err := c.annotate(ctx, image, visionpb.Feature_WEB_DETECTION)
	if err != nil {
		return nil, err
	}
	return res.GetWebDetection(), nil
}

// Annotate requests several features in one call.
func (c *Client) Annotate(ctx context.Context, image []byte, features ...visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	if len(features) == 0 {
		return nil, errors.New("vision: no features requested")
	}
	return c.annotate(ctx, image, features...)
}

func (c *Client) annotate(ctx context.Context, image []byte, features ...visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	name := featureName(features)
	if len(image) == 0 {
		return nil, &ProviderError{Feature: name, Code: codes.InvalidArgument, Message: "image is empty"}
	}

	if c.limiter != nil {
		if c.limiter.IsOpen(ctx, provider) {
			mpkg.CooldownRejected(provider)
			return nil, &ProviderError{Feature: name, Code: codes.ResourceExhausted, Message: "quota cooldown active", Err: limiter.ErrCooldown}
		}
		release, err := c.limiter.Acquire(ctx, name)
		if err != nil {
			return nil, &ProviderError{Feature: name, Code: status.FromContextError(err).Code(), Message: "waiting for provider slot", Err: err}
		}
		defer release()
	}

	cctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: toFeatures(features),
		}},
	}

	start := time.Now()
	resp, err := c.annotator.BatchAnnotateImages(cctx, req)
	dur := time.Since(start)

	if err != nil {
		code := status.Code(err)
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			code = codes.DeadlineExceeded
		}
		perr := &ProviderError{Feature: name, Code: code, Message: status.Convert(err).Message(), Err: err}
		c.afterFailure(ctx, perr, dur)
		return nil, perr
	}
	if len(resp.GetResponses()) == 0 {
		perr := &ProviderError{Feature: name, Code: codes.Internal, Message: "provider returned no responses"}
		c.afterFailure(ctx, perr, dur)
		return nil, perr
	}
	res := resp.GetResponses()[0]
	if st := res.GetError(); st != nil && st.GetCode() != 0 {
		perr := &ProviderError{Feature: name, Code: codes.Code(st.GetCode()), Message: st.GetMessage()}
		c.afterFailure(ctx, perr, dur)
		return nil, perr
	}

	mpkg.ObserveVision(name, "success", dur)
	if c.limiter != nil && c.cooldownSeen.CompareAndSwap(true, false) {
		c.limiter.Close(ctx, provider)
		mpkg.CooldownClosed(provider)
	}
	log.Debug().Str("feature", name).Dur("duration", dur).Msg("vision call ok")
	return res, nil
}

func (c *Client) afterFailure(ctx context.Context, perr *ProviderError, dur time.Duration) {
	class := Classify(perr)
	mpkg.ObserveVision(perr.Feature, string(class), dur)
	if class == ClassQuota && c.limiter != nil {
		d := c.limiter.Open(ctx, provider)
		c.cooldownSeen.Store(true)
		mpkg.CooldownOpened(provider)
		log.Warn().Str("feature", perr.Feature).Dur("cooldown", d).Msg("vision quota exhausted, cooldown opened")
		return
	}
	log.Warn().Str("feature", perr.Feature).Str("class", string(class)).Str("code", perr.Code.String()).Dur("duration", dur).Msg("vision call failed")
}

func toFeatures(types []visionpb.Feature_Type) []*visionpb.Feature {
	out := make([]*visionpb.Feature, 0, len(types))
	for _, t := range types {
		out = append(out, &visionpb.Feature{Type: t})
	}
	return out
}

func featureName(types []visionpb.Feature_Type) string {
	if len(types) == 1 {
		return types[0].String()
	}
	return "MULTI"
}
