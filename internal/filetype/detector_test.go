package filetype

import "testing"

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	pdfHeader  = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name      string
		data      []byte
		filename  string
		mime      string
		image     bool
		pdf       bool
		supported bool
	}{
		{"png", pngHeader, "a.png", "image/png", true, false, true},
		{"jpeg named as png", jpegHeader, "a.png", "image/jpeg", true, false, true},
		{"gif", gifHeader, "", "image/gif", true, false, true},
		{"pdf", pdfHeader, "doc.pdf", "application/pdf", false, true, true},
		{"text", []byte("just some words"), "notes.txt", "text/plain", false, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info := Detect(tc.data, tc.filename)
			if info.MIMEType != tc.mime {
				t.Fatalf("mime = %q want %q", info.MIMEType, tc.mime)
			}
			if info.IsImage != tc.image || info.IsPDF != tc.pdf || info.Supported != tc.supported {
				t.Fatalf("unexpected classification: %+v", info)
			}
			if info.Description == "" {
				t.Fatalf("description missing")
			}
		})
	}
}
