package imagerender

import (
	"errors"
	"testing"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
)

func TestPrepareImagePassesThrough(t *testing.T) {
	data := []byte("not really a png")
	img, err := Prepare(data, filetype.Info{MIMEType: "image/png", IsImage: true, Supported: true}, 0, Options{})
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if string(img.Bytes) != string(data) || img.MIME != "image/png" || img.Page != 0 {
		t.Fatalf("image changed: %+v", img)
	}
}

func TestPrepareRejectsUnsupported(t *testing.T) {
	_, err := Prepare([]byte("x"), filetype.Info{MIMEType: "text/plain"}, 0, Options{})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	if _, err := PageCount([]byte("%PDF-garbage")); err == nil {
		t.Fatalf("expected error for malformed pdf")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{Quality: 500}.withDefaults()
	if o.DPI != 150 || o.Quality != 85 {
		t.Fatalf("defaults = %+v", o)
	}
}
