package codec

import (
	"encoding/base64"
	"errors"
	"fmt"

	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/proto"
)

var (
	// ErrMalformed is wrapped when bytes do not parse as a message
	ErrMalformed = errors.New("malformed message")
	// ErrEmptyRequest is wrapped when a request carries no known query
	ErrEmptyRequest = errors.New("request has no query set")
	// ErrEmptyResponse is wrapped when a response carries no known result
	ErrEmptyResponse = errors.New("response has no result set")
)

// Kind names the variant of a request or response union
type Kind string

const (
	KindListServices         Kind = "list_services"
	KindFileByFilename       Kind = "file_by_filename"
	KindFileContainingSymbol Kind = "file_containing_symbol"
	KindFileContainingExt    Kind = "file_containing_extension"
	KindAllExtensionNumbers  Kind = "all_extension_numbers_of_type"
	KindFileDescriptors      Kind = "file_descriptor_response"
	KindExtensionNumbers     Kind = "all_extension_numbers_response"
	KindListServicesResponse Kind = "list_services_response"
	KindError                Kind = "error_response"
	KindUnknown              Kind = "unknown"
)

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// DecodeRequest parses a binary ServerReflectionRequest. A request whose
// oneof is unset, including one carrying only an unrecognised field, fails
// with ErrEmptyRequest.
func DecodeRequest(data []byte) (*rpb.ServerReflectionRequest, error) {
	req := &rpb.ServerReflectionRequest{}
	if err := proto.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("decode request: %w: %v", ErrMalformed, err)
	}
	if req.GetMessageRequest() == nil {
		return req, fmt.Errorf("decode request: %w", ErrEmptyRequest)
	}
	return req, nil
}

// EncodeRequest serialises a request deterministically
func EncodeRequest(req *rpb.ServerReflectionRequest) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("encode request: nil request")
	}
	data, err := marshalOptions.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// DecodeResponse parses a binary ServerReflectionResponse
func DecodeResponse(data []byte) (*rpb.ServerReflectionResponse, error) {
	resp := &rpb.ServerReflectionResponse{}
	if err := proto.Unmarshal(data, resp); err != nil {
		return nil, fmt.Errorf("decode response: %w: %v", ErrMalformed, err)
	}
	if resp.GetMessageResponse() == nil {
		return resp, fmt.Errorf("decode response: %w", ErrEmptyResponse)
	}
	return resp, nil
}

// EncodeResponse serialises a response deterministically
func EncodeResponse(resp *rpb.ServerReflectionResponse) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("encode response: nil response")
	}
	data, err := marshalOptions.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

// DecodeBase64Response decodes a standard base64 encoded response
func DecodeBase64Response(s string) (*rpb.ServerReflectionResponse, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w: %v", ErrMalformed, err)
	}
	return DecodeResponse(data)
}

// EncodeBase64Response encodes a response as standard base64
func EncodeBase64Response(resp *rpb.ServerReflectionResponse) (string, error) {
	data, err := EncodeResponse(resp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// RequestKind reports which query a request carries
func RequestKind(req *rpb.ServerReflectionRequest) Kind {
	switch req.GetMessageRequest().(type) {
	case *rpb.ServerReflectionRequest_ListServices:
		return KindListServices
	case *rpb.ServerReflectionRequest_FileByFilename:
		return KindFileByFilename
	case *rpb.ServerReflectionRequest_FileContainingSymbol:
		return KindFileContainingSymbol
	case *rpb.ServerReflectionRequest_FileContainingExtension:
		return KindFileContainingExt
	case *rpb.ServerReflectionRequest_AllExtensionNumbersOfType:
		return KindAllExtensionNumbers
	default:
		return KindUnknown
	}
}

// ResponseKind reports which result a response carries
func ResponseKind(resp *rpb.ServerReflectionResponse) Kind {
	switch resp.GetMessageResponse().(type) {
	case *rpb.ServerReflectionResponse_FileDescriptorResponse:
		return KindFileDescriptors
	case *rpb.ServerReflectionResponse_AllExtensionNumbersResponse:
		return KindExtensionNumbers
	case *rpb.ServerReflectionResponse_ListServicesResponse:
		return KindListServicesResponse
	case *rpb.ServerReflectionResponse_ErrorResponse:
		return KindError
	default:
		return KindUnknown
	}
}
