package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/xuri/excelize/v2"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

type fakeDetector struct {
	text     []*visionpb.EntityAnnotation
	labels   []*visionpb.EntityAnnotation
	web      *visionpb.WebDetection
	annotate *visionpb.AnnotateImageResponse

	textErr, labelErr, webErr, annotateErr error

	// webBlocks makes WebDetection wait for cancellation.
	webBlocks bool
	webCalls  atomic.Int32
}

func (f *fakeDetector) TextDetection(context.Context, []byte) ([]*visionpb.EntityAnnotation, error) {
	return f.text, f.textErr
}

func (f *fakeDetector) LabelDetection(context.Context, []byte) ([]*visionpb.EntityAnnotation, error) {
	return f.labels, f.labelErr
}

func (f *fakeDetector) WebDetection(ctx context.Context, _ []byte) (*visionpb.WebDetection, error) {
	f.webCalls.Add(1)
	if f.webBlocks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
	return f.web, f.webErr
}

func (f *fakeDetector) Annotate(context.Context, []byte, ...visionpb.Feature_Type) (*visionpb.AnnotateImageResponse, error) {
	return f.annotate, f.annotateErr
}

func TestConvertText(t *testing.T) {
	svc := NewService(&fakeDetector{text: []*visionpb.EntityAnnotation{{Description: "Hello World"}, {Description: "Hello"}}}, Options{})

	env, err := svc.Convert(context.Background(), contract.KindText, []byte("img"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if env.Encoding != contract.EncodingUTF8 || env.Kind != contract.KindText {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	got, err := env.Text()
	if err != nil || got != "Hello World" {
		t.Fatalf("text = %q, %v", got, err)
	}
}

func TestNoTextDetected(t *testing.T) {
	for _, kind := range []contract.Kind{contract.KindText, contract.KindExcel} {
		svc := NewService(&fakeDetector{}, Options{})
		if _, err := svc.Convert(context.Background(), kind, []byte("img")); !errors.Is(err, ErrNoTextDetected) {
			t.Fatalf("%s: expected ErrNoTextDetected, got %v", kind, err)
		}
	}
}

func TestConvertEmptyImage(t *testing.T) {
	svc := NewService(&fakeDetector{}, Options{})
	if _, err := svc.Convert(context.Background(), contract.KindText, nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestConvertUnsupportedKind(t *testing.T) {
	svc := NewService(&fakeDetector{}, Options{})
	if _, err := svc.Convert(context.Background(), contract.Kind("pdf"), []byte("x")); !errors.Is(err, contract.ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestParseTable(t *testing.T) {
	tbl := ParseTable("Name Age\nAlice 30\n\n  Bob  \nCarol 41 extra\n")
	if len(tbl.Headers) != 2 || tbl.Headers[0] != "Name" || tbl.Headers[1] != "Age" {
		t.Fatalf("headers = %v", tbl.Headers)
	}
	want := [][]string{{"Alice", "30"}, {"Bob", ""}, {"Carol", "41"}}
	if len(tbl.Rows) != len(want) {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	for i := range want {
		for j := range want[i] {
			if tbl.Rows[i][j] != want[i][j] {
				t.Fatalf("row %d col %d = %q want %q", i, j, tbl.Rows[i][j], want[i][j])
			}
		}
	}
}

func TestParseTableKeepsDuplicateHeaders(t *testing.T) {
	tbl := ParseTable("Qty Qty\n1 2")
	if len(tbl.Headers) != 2 || len(tbl.Rows) != 1 || tbl.Rows[0][0] != "1" || tbl.Rows[0][1] != "2" {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestParseTableHeaderOnly(t *testing.T) {
	tbl := ParseTable("Only Header Line")
	if len(tbl.Headers) != 3 || len(tbl.Rows) != 0 {
		t.Fatalf("unexpected table: %+v", tbl)
	}
}

func TestConvertExcelWorkbook(t *testing.T) {
	svc := NewService(&fakeDetector{text: []*visionpb.EntityAnnotation{{Description: "Name Age\nAlice 30\nBob"}}}, Options{})

	env, err := svc.Convert(context.Background(), contract.KindExcel, []byte("img"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	data, err := env.Bytes()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	cells := map[string]string{"A1": "Name", "B1": "Age", "A2": "Alice", "B2": "30", "A3": "Bob", "B3": ""}
	for cell, want := range cells {
		got, err := f.GetCellValue(sheetName, cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Fatalf("%s = %q want %q", cell, got, want)
		}
	}
	w, err := f.GetColWidth(sheetName, "B")
	if err != nil || w != columnWidth {
		t.Fatalf("column width = %v, %v", w, err)
	}
}

func TestSearchSortsAndCaps(t *testing.T) {
	var similar []*visionpb.WebDetection_WebImage
	for i := 0; i < 12; i++ {
		similar = append(similar, &visionpb.WebDetection_WebImage{Url: "u", Score: float32(i) / 100})
	}
	fd := &fakeDetector{
		web: &visionpb.WebDetection{VisuallySimilarImages: similar},
		labels: []*visionpb.EntityAnnotation{
			{Description: "dog", Score: 0.7},
			{Description: "cat", Score: 0.9},
		},
	}
	svc := NewService(fd, Options{SearchLimit: 10, SearchPartial: true})

	res, degraded, err := svc.Search(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(degraded) != 0 {
		t.Fatalf("unexpected degraded: %v", degraded)
	}
	if len(res.SearchResults) != 10 {
		t.Fatalf("expected 10 results, got %d", len(res.SearchResults))
	}
	for i := 1; i < len(res.SearchResults); i++ {
		if res.SearchResults[i-1].Score < res.SearchResults[i].Score {
			t.Fatalf("results not sorted descending: %v", res.SearchResults)
		}
	}
	if res.SearchResults[0].Type != "similar" || res.SearchResults[0].Score != 0.11 {
		t.Fatalf("unexpected top result: %+v", res.SearchResults[0])
	}
	if res.Labels[0].Description != "cat" {
		t.Fatalf("labels not sorted: %v", res.Labels)
	}
}

func TestSearchPartialDegrades(t *testing.T) {
	fd := &fakeDetector{
		labels: []*visionpb.EntityAnnotation{{Description: "cat", Score: 0.9}},
		webErr: errors.New("web down"),
	}
	svc := NewService(fd, Options{SearchPartial: true})

	env, err := svc.Convert(context.Background(), contract.KindSearch, []byte("img"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(env.Degraded) != 1 || env.Degraded[0] != DegradedSimilar {
		t.Fatalf("degraded = %v", env.Degraded)
	}
	var res SearchResult
	if err := json.Unmarshal(env.Payload, &res); err != nil {
		t.Fatal(err)
	}
	if res.SearchResults == nil || len(res.SearchResults) != 0 || len(res.Labels) != 1 {
		t.Fatalf("unexpected payload: %s", env.Payload)
	}
}

func TestSearchBothFail(t *testing.T) {
	fd := &fakeDetector{labelErr: errors.New("a"), webErr: errors.New("b")}
	svc := NewService(fd, Options{SearchPartial: true})
	if _, _, err := svc.Search(context.Background(), []byte("img")); err == nil {
		t.Fatalf("expected error when both detectors fail")
	}
}

func TestSearchStrictCancelsSibling(t *testing.T) {
	fd := &fakeDetector{labelErr: errors.New("quota"), webBlocks: true}
	svc := NewService(fd, Options{SearchPartial: false})

	start := time.Now()
	_, _, err := svc.Search(context.Background(), []byte("img"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("sibling detector was not cancelled")
	}
}

func TestJSONDocumentHasAllArrays(t *testing.T) {
	fd := &fakeDetector{annotate: &visionpb.AnnotateImageResponse{
		LabelAnnotations: []*visionpb.EntityAnnotation{{Description: "cat", Score: 0.9, Mid: "/m/01yrx"}},
	}}
	svc := NewService(fd, Options{})

	env, err := svc.Convert(context.Background(), contract.KindJSON, []byte("img"))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	var doc map[string][]map[string]any
	if err := json.Unmarshal(env.Payload, &doc); err != nil {
		t.Fatalf("payload: %v", err)
	}
	for _, key := range []string{"labels", "text", "faces", "landmarks", "logos", "objects"} {
		arr, ok := doc[key]
		if !ok || arr == nil {
			t.Fatalf("missing array %q in %s", key, env.Payload)
		}
	}
	if len(doc["labels"]) != 1 || doc["labels"][0]["description"] != "cat" {
		t.Fatalf("labels = %v", doc["labels"])
	}
}
