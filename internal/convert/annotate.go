package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// JSONFeatures are requested together for the json kind.
var JSONFeatures = []visionpb.Feature_Type{
	visionpb.Feature_LABEL_DETECTION,
	visionpb.Feature_TEXT_DETECTION,
	visionpb.Feature_FACE_DETECTION,
	visionpb.Feature_LANDMARK_DETECTION,
	visionpb.Feature_LOGO_DETECTION,
	visionpb.Feature_OBJECT_LOCALIZATION,
}

// AnnotationDocument holds the six annotation arrays in the provider's
// own JSON form. Absent features are empty arrays, never null.
type AnnotationDocument struct {
	Labels    json.RawMessage `json:"labels"`
	Text      json.RawMessage `json:"text"`
	Faces     json.RawMessage `json:"faces"`
	Landmarks json.RawMessage `json:"landmarks"`
	Logos     json.RawMessage `json:"logos"`
	Objects   json.RawMessage `json:"objects"`
}

var protoJSON = protojson.MarshalOptions{}

// JSON issues one multi-feature annotate call and reshapes the result.
func (s *Service) JSON(ctx context.Context, image []byte) (AnnotationDocument, error) {
	res, err := s.vision.Annotate(ctx, image, JSONFeatures...)
	if err != nil {
		return AnnotationDocument{}, fmt.Errorf("annotate: %w", err)
	}

	var doc AnnotationDocument
	steps := []struct {
		dst *json.RawMessage
		fn  func() (json.RawMessage, error)
	}{
		{&doc.Labels, func() (json.RawMessage, error) { return marshalList(res.GetLabelAnnotations()) }},
		{&doc.Text, func() (json.RawMessage, error) { return marshalList(res.GetTextAnnotations()) }},
		{&doc.Faces, func() (json.RawMessage, error) { return marshalList(res.GetFaceAnnotations()) }},
		{&doc.Landmarks, func() (json.RawMessage, error) { return marshalList(res.GetLandmarkAnnotations()) }},
		{&doc.Logos, func() (json.RawMessage, error) { return marshalList(res.GetLogoAnnotations()) }},
		{&doc.Objects, func() (json.RawMessage, error) { return marshalList(res.GetLocalizedObjectAnnotations()) }},
	}
	for _, st := range steps {
		raw, err := st.fn()
		if err != nil {
			return AnnotationDocument{}, err
		}
		*st.dst = raw
	}
	return doc, nil
}

func marshalList[T proto.Message](items []T) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := protoJSON.Marshal(it)
		if err != nil {
			return nil, fmt.Errorf("marshal annotation: %w", err)
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
