package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

// MaxRequestBodySize bounds request bodies unless a handler asks for less.
const MaxRequestBodySize = 1 << 20

const opDecode = "httpx.DecodeJSON"

// DecodeOption adjusts a single DecodeJSON call.
type DecodeOption func(*decodeOptions)

type decodeOptions struct {
	limit int64
}

// WithLimit caps the body at n bytes.
func WithLimit(n int64) DecodeOption {
	return func(o *decodeOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// DecodeJSON decodes exactly one JSON object from the request body into T.
// A Content-Type other than application/json, unknown fields and trailing
// data are rejected. Every failure carries errx.Invalid.
func DecodeJSON[T any](r *http.Request, opts ...DecodeOption) (T, error) {
	o := decodeOptions{limit: MaxRequestBodySize}
	for _, opt := range opts {
		opt(&o)
	}

	var v T
	if err := checkContentType(r); err != nil {
		return v, errx.E(opDecode, errx.Invalid, err)
	}
	if r.Body == nil || r.Body == http.NoBody {
		return v, errx.E(opDecode, errx.Invalid, errors.New("request body is empty"))
	}

	r.Body = http.MaxBytesReader(nil, r.Body, o.limit)
	defer func() {
		_ = r.Body.Close()
	}()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, errx.E(opDecode, errx.Invalid, describeDecodeError(err, o.limit))
	}
	if dec.More() {
		var zero T
		return zero, errx.E(opDecode, errx.Invalid, errors.New("request body contains multiple JSON objects"))
	}
	return v, nil
}

func checkContentType(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fmt.Errorf("invalid content type %q", ct)
	}
	if mediaType != "application/json" {
		return fmt.Errorf("content type must be application/json, got %q", mediaType)
	}
	return nil
}

func describeDecodeError(err error, limit int64) error {
	var (
		syntaxErr    *json.SyntaxError
		unmarshalErr *json.UnmarshalTypeError
		maxBytesErr  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalErr):
		return fmt.Errorf("invalid value for field %q", unmarshalErr.Field)
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("request body too large (max %d bytes)", limit)
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("request body ends mid-object")
	default:
		return err
	}
}

// WriteDecodeError writes a 400 carrying the decode failure without the
// operation prefix.
func WriteDecodeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var e *errx.Error
	if errors.As(err, &e) && e.Err != nil {
		msg = e.Err.Error()
	}
	WriteError(w, http.StatusBadRequest, "invalid_request", msg, nil)
}
