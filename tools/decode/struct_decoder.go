package decode

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Options controls decode behavior.
type Options struct {
	// WeaklyTypedInput enables lenient conversions, e.g. "123" -> int,
	// 1.0 -> int64. JSON numbers arrive as float64, so this is on by default.
	WeaklyTypedInput bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeMap decodes a loosely-typed payload (typically the result of
// unmarshalling arbitrary JSON into map[string]any) into a typed struct T.
// Struct fields are matched through their `json` tags.
func DecodeMap[T any](in map[string]any, opts ...Options) (*T, error) {
	if in == nil {
		return nil, errors.New("payload is nil")
	}
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
	})
	if err != nil {
		return nil, errors.Wrap(err, "build decoder")
	}
	if err := dec.Decode(in); err != nil {
		return nil, errors.Wrap(err, "decode payload")
	}
	return &out, nil
}
