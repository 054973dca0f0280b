package ranker

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/okian/cinerec/internal/domain/ranking"
)

var (
	errEmptyOutput   = errors.New("empty output")
	errNotList       = errors.New("output is not a JSON array")
	errTrailingData  = errors.New("unexpected data after JSON array")
	errNonStringItem = errors.New("array element is not a string")
)

// Decode parses the primary output of a ranking process. The output must be
// exactly one JSON array of strings, optionally surrounded by whitespace. An
// empty array is a valid, empty ranking.
func Decode(out []byte) (ranking.List, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, errEmptyOutput
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	arr, ok := v.([]any)
	if !ok {
		return nil, errNotList
	}
	ids := make(ranking.List, 0, len(arr))
	for i, el := range arr {
		s, ok := el.(string)
		if !ok {
			return nil, fmt.Errorf("%w at index %d", errNonStringItem, i)
		}
		ids = append(ids, s)
	}
	return ids, nil
}
