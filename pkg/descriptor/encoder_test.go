package descriptor

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/platinummonkey/reflector/pkg/loader"
	"github.com/platinummonkey/reflector/pkg/loader/loadertest"
	"github.com/platinummonkey/reflector/pkg/schema"
)

// The file_descriptor_response a protoc-backed server returns for
// routeguide.RouteGuide.
const routeGuideResponse = "EhciFXJvdXRlZ3VpZGUuUm91dGVHdWlkZSLnBgrkBgoXcmd1aWRlL3JvdXRlZ3VpZGUucHJvdG8SCnJvdXRlZ3VpZGUiQQoFUG9pbnQSGgoIbGF0aXR1ZGUYASABKAVSCGxhdGl0dWRlEhwKCWxvbmdpdHVkZRgCIAEoBVIJbG9uZ2l0dWRlIlEKCVJlY3RhbmdsZRIhCgJsbxgBIAEoCzIRLnJvdXRlZ3VpZGUuUG9pbnRSAmxvEiEKAmhpGAIgASgLMhEucm91dGVndWlkZS5Qb2ludFICaGkiTAoHRmVhdHVyZRISCgRuYW1lGAEgASgJUgRuYW1lEi0KCGxvY2F0aW9uGAIgASgLMhEucm91dGVndWlkZS5Qb2ludFIIbG9jYXRpb24iVAoJUm91dGVOb3RlEi0KCGxvY2F0aW9uGAEgASgLMhEucm91dGVndWlkZS5Qb2ludFIIbG9jYXRpb24SGAoHbWVzc2FnZRgCIAEoCVIHbWVzc2FnZSKTAQoMUm91dGVTdW1tYXJ5Eh8KC3BvaW50X2NvdW50GAEgASgFUgpwb2ludENvdW50EiMKDWZlYXR1cmVfY291bnQYAiABKAVSDGZlYXR1cmVDb3VudBIaCghkaXN0YW5jZRgDIAEoBVIIZGlzdGFuY2USIQoMZWxhcHNlZF90aW1lGAQgASgFUgtlbGFwc2VkVGltZTK6AgoKUm91dGVHdWlkZRI0CgpHZXRGZWF0dXJlEhEucm91dGVndWlkZS5Qb2ludBoTLnJvdXRlZ3VpZGUuRmVhdHVyZRI7ChFHZXREZWZhdWx0RmVhdHVyZRIRLnJvdXRlZ3VpZGUuUG9pbnQaEy5yb3V0ZWd1aWRlLkZlYXR1cmUSPAoMTGlzdEZlYXR1cmVzEhUucm91dGVndWlkZS5SZWN0YW5nbGUaEy5yb3V0ZWd1aWRlLkZlYXR1cmUwARI8CgtSZWNvcmRSb3V0ZRIRLnJvdXRlZ3VpZGUuUG9pbnQaGC5yb3V0ZWd1aWRlLlJvdXRlU3VtbWFyeSgBEj0KCVJvdXRlQ2hhdBIVLnJvdXRlZ3VpZGUuUm91dGVOb3RlGhUucm91dGVndWlkZS5Sb3V0ZU5vdGUoATABQihaJmdpdGh1Yi5jb20vanVsaWFvZ3Jpcy9ndXBweS9wa2cvcmd1aWRlYgZwcm90bzM="

func goldenRouteGuide(t *testing.T) *descriptorpb.FileDescriptorProto {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(routeGuideResponse)
	require.NoError(t, err)

	var resp rpb.ServerReflectionResponse
	require.NoError(t, proto.Unmarshal(raw, &resp))
	files := resp.GetFileDescriptorResponse().GetFileDescriptorProto()
	require.Len(t, files, 1)

	var fd descriptorpb.FileDescriptorProto
	require.NoError(t, proto.Unmarshal(files[0], &fd))
	return &fd
}

func loadFile(t *testing.T, sources map[string]string, path string) *schema.ProtoFile {
	t.Helper()
	s, err := loader.Compile(context.Background(), sources)
	require.NoError(t, err)
	f := s.File(path)
	require.NotNil(t, f, path)
	return f
}

func TestToProto_RouteGuideGolden(t *testing.T) {
	f := loadFile(t, loadertest.RouteGuide(), loadertest.RouteGuidePath)
	got := ToProto(f)
	want := goldenRouteGuide(t)

	assert.True(t, proto.Equal(want, got), "descriptor mismatch\nwant: %v\ngot:  %v", want, got)
}

func TestEncode_Deterministic(t *testing.T) {
	f := loadFile(t, loadertest.RouteGuide(), loadertest.RouteGuidePath)

	first, err := Encode(f)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Encode(f)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	var decoded descriptorpb.FileDescriptorProto
	require.NoError(t, proto.Unmarshal(first, &decoded))
	assert.True(t, proto.Equal(goldenRouteGuide(t), &decoded))
}

func TestToProto_StreamingFlags(t *testing.T) {
	f := loadFile(t, loadertest.RouteGuide(), loadertest.RouteGuidePath)
	methods := ToProto(f).GetService()[0].GetMethod()
	require.Len(t, methods, 5)

	unary := methods[0]
	assert.Nil(t, unary.ClientStreaming)
	assert.Nil(t, unary.ServerStreaming)

	serverStream := methods[2]
	assert.Nil(t, serverStream.ClientStreaming)
	assert.True(t, serverStream.GetServerStreaming())

	bidi := methods[4]
	assert.True(t, bidi.GetClientStreaming())
	assert.True(t, bidi.GetServerStreaming())
}

func TestToProto_Proto2(t *testing.T) {
	sources := loadertest.Extensions()
	base := ToProto(loadFile(t, sources, "ext/base.proto"))
	assert.Nil(t, base.Syntax, "proto2 leaves syntax unset")
	require.Len(t, base.GetMessageType()[0].GetExtensionRange(), 1)
	assert.Equal(t, int32(100), base.GetMessageType()[0].GetExtensionRange()[0].GetStart())
	assert.Equal(t, int32(201), base.GetMessageType()[0].GetExtensionRange()[0].GetEnd())

	more := ToProto(loadFile(t, sources, "ext/more.proto"))
	assert.Equal(t, []string{"ext/base.proto"}, more.GetDependency())

	require.Len(t, more.GetExtension(), 2)
	note := more.GetExtension()[0]
	assert.Equal(t, "note", note.GetName())
	assert.Equal(t, ".ext.Base", note.GetExtendee())
	assert.Equal(t, int32(150), note.GetNumber())
	assert.Equal(t, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL, note.GetLabel())

	nested := more.GetMessageType()[0].GetExtension()
	require.Len(t, nested, 1)
	assert.Equal(t, "flag", nested[0].GetName())
	assert.Equal(t, ".ext.Base", nested[0].GetExtendee())
}

func TestToProto_PublicDependencies(t *testing.T) {
	facade := ToProto(loadFile(t, loadertest.Diamond(), "diamond/facade.proto"))
	assert.Equal(t, []string{"diamond/leaf.proto", "diamond/left.proto"}, facade.GetDependency())
	assert.Equal(t, []int32{0}, facade.GetPublicDependency())
}

func TestToProto_RoundTripsLinkedFile(t *testing.T) {
	f := loadFile(t, loadertest.WellKnown(), "google/protobuf/timestamp.proto")
	fd := ToProto(f)
	assert.Equal(t, "google/protobuf/timestamp.proto", fd.GetName())
	assert.Equal(t, "google.protobuf", fd.GetPackage())
	assert.Equal(t, "proto3", fd.GetSyntax())
	assert.NotEmpty(t, fd.GetOptions().GetGoPackage())
}

func TestToProto_OptionsAreCopies(t *testing.T) {
	f := loadFile(t, loadertest.RouteGuide(), loadertest.RouteGuidePath)
	fd := ToProto(f)
	fd.Options.GoPackage = proto.String("changed")
	assert.Equal(t, "github.com/juliaogris/guppy/pkg/rguide", f.Options.GetGoPackage())
}

func TestEncodeAll(t *testing.T) {
	s, err := loader.Compile(context.Background(), loadertest.Diamond())
	require.NoError(t, err)

	encoded, err := EncodeAll(s.Files())
	require.NoError(t, err)
	assert.Len(t, encoded, s.Len())
	for _, f := range s.Files() {
		assert.NotEmpty(t, encoded[f.Path], f.Path)
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	var encErr *EncodeError
	require.True(t, errors.As(err, &encErr))

	_, err = EncodeAll([]*schema.ProtoFile{nil})
	require.True(t, errors.As(err, &encErr))
	assert.Contains(t, encErr.Error(), "encode descriptor")
}
