package writers

import "github.com/goccy/go-json"

// jsonCodec carries payloads as JSON over gRPC. Collectors register the
// same codec name.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
