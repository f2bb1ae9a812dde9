package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ErrEmptyBody is returned when a request carries no body
var ErrEmptyBody = errors.New("request body is empty")

// ReadBody reads the whole request body, failing with ErrEmptyBody when
// there is none
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

// ParseProto decodes the request body into dest, as protojson when the
// request is JSON and as binary protobuf otherwise
func ParseProto(r *http.Request, dest proto.Message) error {
	body, err := ReadBody(r)
	if err != nil {
		return err
	}

	if WantsJSON(r) {
		if err := protojson.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		return nil
	}
	if err := proto.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("invalid protobuf: %w", err)
	}
	return nil
}

// ParsePathString extracts a string path parameter
func ParsePathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// ParsePathStringOrError extracts a string path parameter and writes error on failure
func ParsePathStringOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	val, err := ParsePathString(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return val, true
}
