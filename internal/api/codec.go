package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Media types accepted and produced by the API.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// MaxBodyBytes caps request bodies. Batch requests are the largest payloads.
const MaxBodyBytes = 16 << 20

var (
	// ErrUnsupportedMediaType is returned for request bodies that are neither JSON nor CBOR.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrBodyTooLarge is returned when a request body exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("request body too large")
)

// encMode encodes with Core Deterministic Encoding so identical results
// always produce identical bytes.
var encMode cbor.EncMode

// decMode rejects deeply nested or oversized inputs; unknown fields are ignored.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("api: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  16,
		MaxArrayElements: 1 << 20,
		MaxMapPairs:      1 << 16,
	}.DecMode()
	if err != nil {
		panic("api: CBOR decoder initialization failed: " + err.Error())
	}
}

// decodeBody decodes the request body into v according to its Content-Type.
// A missing Content-Type is treated as JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer body.Close()

	var err error
	switch mediaType(r.Header.Get("Content-Type")) {
	case "", ContentTypeJSON:
		err = json.NewDecoder(body).Decode(v)
	case ContentTypeCBOR:
		err = decMode.NewDecoder(body).Decode(v)
	default:
		return ErrUnsupportedMediaType
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("empty request body: %w", err)
	}
	return err
}

// writeBodyError maps a decodeBody failure to an error response.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedMediaType):
		writeErr(w, r, ErrCodeUnsupportedMedia, "Content-Type must be application/json or application/cbor")
	case errors.Is(err, ErrBodyTooLarge):
		writeErr(w, r, ErrCodeTooLarge, "Request body too large")
	default:
		writeErr(w, r, ErrCodeBadRequest, "Invalid request body")
	}
}

// negotiate picks the response media type from the Accept header, falling
// back to the request's own Content-Type and finally JSON.
func negotiate(r *http.Request) string {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		switch mediaType(part) {
		case ContentTypeCBOR:
			return ContentTypeCBOR
		case ContentTypeJSON, "application/*", "*/*":
			return ContentTypeJSON
		}
	}
	if mediaType(r.Header.Get("Content-Type")) == ContentTypeCBOR {
		return ContentTypeCBOR
	}
	return ContentTypeJSON
}

// writeResponse encodes v in the negotiated media type.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) {
	var (
		data []byte
		err  error
	)
	ct := negotiate(r)
	if ct == ContentTypeCBOR {
		data, err = encMode.Marshal(v)
	} else {
		data, err = json.Marshal(v)
		ct += "; charset=utf-8"
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
		writeErr(w, r, ErrCodeInternal, "Failed to encode response")
		return
	}

	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

func mediaType(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(header)
	}
	return mt
}
