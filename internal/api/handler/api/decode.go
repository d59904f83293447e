package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/newthinker/risklab/internal/core"
)

// maxBodyBytes bounds request bodies; strategy code is the largest payload.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decodeBody reads a JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return core.WrapError(core.ErrInvalidRequest, errEmptyBody)
		}
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("decoding body: %w", err))
	}
	return nil
}

// decodeOptionalBody is decodeBody that leaves v untouched on an empty body.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := decodeBody(w, r, v)
	if errors.Is(err, errEmptyBody) {
		return nil
	}
	return err
}
