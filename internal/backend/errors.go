package backend

import (
	"errors"
	"net/http"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/convert"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/imagerender"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/vision"
)

var failureMessages = map[contract.Kind]string{
	contract.KindText:   "Failed to extract text",
	contract.KindExcel:  "Failed to convert to Excel",
	contract.KindSearch: "Failed to perform image search and label detection",
	contract.KindJSON:   "Failed to convert to JSON",
}

// classify maps a conversion error to a status and a client-safe body.
func classify(kind contract.Kind, err error) (int, contract.ErrorBody) {
	switch {
	case errors.Is(err, convert.ErrNoTextDetected):
		return http.StatusBadRequest, contract.ErrorBody{Error: "No text detected in the image", Code: "no_text"}
	case errors.Is(err, convert.ErrEmptyImage):
		return http.StatusBadRequest, contract.ErrorBody{Error: "No file uploaded", Code: "no_file"}
	case errors.Is(err, contract.ErrUnsupportedKind):
		return http.StatusBadRequest, contract.ErrorBody{Error: "Unsupported conversion type", Code: "unsupported_kind"}
	}

	switch vision.Classify(err) {
	case vision.ClassInvalidImage:
		return http.StatusBadRequest, contract.ErrorBody{Error: "Invalid image", Code: "invalid_image"}
	case vision.ClassQuota:
		return http.StatusTooManyRequests, contract.ErrorBody{Error: "Vision quota exceeded, try again later", Code: "quota"}
	case vision.ClassTimeout:
		return http.StatusGatewayTimeout, contract.ErrorBody{Error: "Vision request timed out", Code: "timeout"}
	}

	msg, ok := failureMessages[kind]
	if !ok {
		msg = "Internal server error"
	}
	return http.StatusInternalServerError, contract.ErrorBody{Error: msg, Code: "internal"}
}

func prepareErrorBody(err error, info filetype.Info) contract.ErrorBody {
	switch {
	case errors.Is(err, imagerender.ErrUnsupportedType):
		return contract.ErrorBody{Error: "Unsupported file type: " + info.MIMEType, Code: "unsupported_file"}
	case errors.Is(err, imagerender.ErrTooManyPages):
		return contract.ErrorBody{Error: "PDF has too many pages", Code: "too_many_pages"}
	case errors.Is(err, imagerender.ErrPageOutOfRange):
		return contract.ErrorBody{Error: "Page out of range", Code: "bad_page"}
	}
	return contract.ErrorBody{Error: "Could not read PDF", Code: "bad_pdf"}
}
