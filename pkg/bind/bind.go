// Package bind turns a JSON request body into a validated input struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shashiranjanraj/canteen/config"
	"github.com/shashiranjanraj/canteen/pkg/validate"
)

// ErrBody marks a body that could not be decoded. Handlers answer 400.
var ErrBody = errors.New("invalid JSON")

// Composer and scanner payloads are a handful of short strings.
const defaultMaxBody = 16 << 10

func maxBody() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", ""), 10, 64)
	if err != nil || n <= 0 {
		return defaultMaxBody
	}
	return n
}

// JSON decodes r.Body into dest and validates it. Unknown fields are
// rejected and an empty body leaves dest at its zero value. Field failures
// come back in errs; an undecodable body comes back as an error wrapping
// ErrBody.
func JSON(r *http.Request, dest any) (map[string]string, error) {
	limit := maxBody()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBody, limit)
		}
		return nil, fmt.Errorf("%w: %v", ErrBody, err)
	}

	if errs := validate.Struct(dest); validate.HasErrors(errs) {
		return errs, nil
	}
	return nil, nil
}
