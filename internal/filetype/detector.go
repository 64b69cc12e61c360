package filetype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Info contains detected file type information
type Info struct {
	MIMEType    string
	Extension   string
	IsImage     bool
	IsPDF       bool
	Supported   bool
	Description string
}

// Detect sniffs the upload's magic bytes. The filename only breaks ties
// when the content is too generic to identify.
func Detect(data []byte, filename string) Info {
	mtype := mimetype.Detect(data)
	mimeType := mtype.String()
	extension := mtype.Extension()

	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	if mimeType == "application/octet-stream" && filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		log.Debug().Str("ext", ext).Msg("generic content, checking extension")
		if byExt, ok := imageByExtension[ext]; ok {
			mimeType, extension = byExt, ext
		}
	}

	info := Info{MIMEType: mimeType, Extension: extension}
	classify(&info)

	log.Debug().
		Str("mime", info.MIMEType).
		Str("ext", info.Extension).
		Bool("supported", info.Supported).
		Msg("detected file type")
	return info
}

// imageByExtension covers formats whose magic bytes mimetype cannot always
// see in a truncated or unusual header.
var imageByExtension = map[string]string{
	".ico":  "image/x-icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

var imageDescriptions = map[string]string{
	"image/jpeg":               "JPEG image",
	"image/png":                "PNG image",
	"image/gif":                "GIF image",
	"image/bmp":                "BMP image",
	"image/webp":               "WebP image",
	"image/tiff":               "TIFF image",
	"image/x-icon":             "Icon image",
	"image/vnd.microsoft.icon": "Icon image",
}

func classify(info *Info) {
	switch {
	case info.MIMEType == "application/pdf":
		info.IsPDF = true
		info.Supported = true
		info.Description = "PDF document"

	case strings.HasPrefix(info.MIMEType, "image/"):
		info.IsImage = true
		desc, ok := imageDescriptions[info.MIMEType]
		info.Supported = ok
		if ok {
			info.Description = desc
		} else {
			info.Description = fmt.Sprintf("Unsupported image type: %s", info.MIMEType)
		}

	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}
