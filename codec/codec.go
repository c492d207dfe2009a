package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

func Decode[T any](bz []byte) (T, error) {
	value := new(T)
	err := json.Unmarshal(bz, value)
	if err != nil {
		return *value, eris.Wrap(err, "")
	}
	return *value, nil
}

// Unmarshal decodes into a caller-provided value. It exists for callers that
// need the stdlib-shaped signature (fiber's JSONDecoder, for one).
func Unmarshal(bz []byte, value any) error {
	return eris.Wrap(json.Unmarshal(bz, value), "")
}

func Encode(value any) ([]byte, error) {
	bz, err := json.Marshal(value)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}
