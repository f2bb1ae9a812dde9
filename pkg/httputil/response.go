package httputil

import (
	"encoding/json"
	"net/http"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

const (
	// ContentTypeJSON marks JSON bodies, including protojson messages
	ContentTypeJSON = "application/json"
	// ContentTypeProto marks binary protobuf bodies
	ContentTypeProto = "application/x-protobuf"
)

var jsonMarshalOptions = protojson.MarshalOptions{UseProtoNames: true}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the body of every JSON error
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusServiceUnavailable, message)
}

// WriteInternalError writes an internal server error (500)
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusInternalServerError, err)
}

// WantsJSON reports whether the request body is JSON
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), ContentTypeJSON)
}

// WriteProto writes msg as protojson when the request was JSON, and as
// binary protobuf otherwise
func WriteProto(w http.ResponseWriter, r *http.Request, status int, msg proto.Message) error {
	var (
		body        []byte
		err         error
		contentType = ContentTypeProto
	)
	if WantsJSON(r) {
		contentType = ContentTypeJSON
		body, err = jsonMarshalOptions.Marshal(msg)
	} else {
		body, err = proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	}
	if err != nil {
		WriteInternalError(w, err)
		return err
	}
	return WriteBytes(w, status, contentType, body)
}

// WriteBytes writes an already encoded body
func WriteBytes(w http.ResponseWriter, status int, contentType string, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
