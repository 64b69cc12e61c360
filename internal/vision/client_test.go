package vision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeAnnotator struct {
	resp  *visionpb.AnnotateImageResponse
	err   error
	delay time.Duration
	got   *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.got = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &visionpb.BatchAnnotateImagesResponse{Responses: []*visionpb.AnnotateImageResponse{f.resp}}, nil
}

func (f *fakeAnnotator) Close() error { return nil }

func TestTextDetectionSendsSingleFeature(t *testing.T) {
	fa := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		TextAnnotations: []*visionpb.EntityAnnotation{{Description: "hello\nworld"}, {Description: "hello"}},
	}}
	c := NewWithAnnotator(fa, Options{})

	got, err := c.TextDetection(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("text detection: %v", err)
	}
	if len(got) != 2 || got[0].GetDescription() != "hello\nworld" {
		t.Fatalf("unexpected annotations: %v", got)
	}
	req := fa.got.GetRequests()[0]
	if len(req.GetFeatures()) != 1 || req.GetFeatures()[0].GetType() != visionpb.Feature_TEXT_DETECTION {
		t.Fatalf("unexpected features: %v", req.GetFeatures())
	}
	if string(req.GetImage().GetContent()) != "img" {
		t.Fatalf("image content not forwarded")
	}
}

func TestPerImageErrorBecomesProviderError(t *testing.T) {
	fa := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		Error: &rpcstatus.Status{Code: int32(codes.InvalidArgument), Message: "Bad image data."},
	}}
	c := NewWithAnnotator(fa, Options{})

	_, err := c.LabelDetection(context.Background(), []byte("x"))
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if pe.Feature != "LABEL_DETECTION" || pe.Message != "Bad image data." {
		t.Fatalf("unexpected provider error: %+v", pe)
	}
	if Classify(err) != ClassInvalidImage {
		t.Fatalf("expected invalid image class, got %s", Classify(err))
	}
}

func TestTransportErrorsAreClassified(t *testing.T) {
	cases := []struct {
		code codes.Code
		want Class
	}{
		{codes.ResourceExhausted, ClassQuota},
		{codes.Unavailable, ClassUnavailable},
		{codes.PermissionDenied, ClassInternal},
		{codes.DeadlineExceeded, ClassTimeout},
	}
	for _, tc := range cases {
		c := NewWithAnnotator(&fakeAnnotator{err: status.Error(tc.code, "boom")}, Options{})
		_, err := c.WebDetection(context.Background(), []byte("x"))
		if got := Classify(err); got != tc.want {
			t.Fatalf("code %s: got class %s want %s", tc.code, got, tc.want)
		}
	}
}

func TestTimeoutIsApplied(t *testing.T) {
	fa := &fakeAnnotator{delay: time.Second, resp: &visionpb.AnnotateImageResponse{}}
	c := NewWithAnnotator(fa, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.TextDetection(context.Background(), []byte("x"))
	if Classify(err) != ClassTimeout {
		t.Fatalf("expected timeout class, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout not enforced")
	}
}

func TestEmptyImageRejectedWithoutCall(t *testing.T) {
	fa := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{}}
	c := NewWithAnnotator(fa, Options{})
	if _, err := c.TextDetection(context.Background(), nil); Classify(err) != ClassInvalidImage {
		t.Fatalf("expected invalid image, got %v", err)
	}
	if fa.got != nil {
		t.Fatalf("provider should not be called for an empty image")
	}
}

func TestAnnotateRequiresFeatures(t *testing.T) {
	c := NewWithAnnotator(&fakeAnnotator{}, Options{})
	if _, err := c.Annotate(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected error without features")
	}
}

func TestCredentialsFileValidation(t *testing.T) {
	dir := t.TempDir()

	missing := filepath.Join(dir, "missing.json")
	if err := checkCredentialsFile(missing); !errors.Is(err, ErrCredentials) {
		t.Fatalf("missing file: expected ErrCredentials, got %v", err)
	}

	noEmail := filepath.Join(dir, "noemail.json")
	if err := os.WriteFile(noEmail, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := checkCredentialsFile(noEmail); !errors.Is(err, ErrCredentials) {
		t.Fatalf("no client_email: expected ErrCredentials, got %v", err)
	}

	ok := filepath.Join(dir, "ok.json")
	if err := os.WriteFile(ok, []byte(`{"type":"service_account","client_email":"svc@p.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := checkCredentialsFile(ok); err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}
}
