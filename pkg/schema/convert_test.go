package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestFromFileDescriptorProto(t *testing.T) {
	desc := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("inventory/item.proto"),
		Package:    proto.String("inventory"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		Options:    &descriptorpb.FileOptions{GoPackage: proto.String("example.com/inventory")},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Item"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:   proto.String("stock_level"),
					Number: proto.Int32(1),
					Type:   descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(),
				},
				{
					Name:     proto.String("updated_at"),
					Number:   proto.Int32(2),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
					TypeName: proto.String(".google.protobuf.Timestamp"),
					JsonName: proto.String("updatedAt"),
				},
			},
			NestedType: []*descriptorpb.DescriptorProto{{Name: proto.String("Tag")}},
			EnumType: []*descriptorpb.EnumDescriptorProto{{
				Name:  proto.String("State"),
				Value: []*descriptorpb.EnumValueDescriptorProto{{Name: proto.String("STATE_UNKNOWN"), Number: proto.Int32(0)}},
			}},
			Options: &descriptorpb.MessageOptions{},
		}},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Inventory"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:            proto.String("Watch"),
				InputType:       proto.String(".inventory.Item"),
				OutputType:      proto.String(".inventory.Item"),
				ServerStreaming: proto.Bool(true),
			}},
		}},
	}

	f, err := FromFileDescriptorProto(desc)
	require.NoError(t, err)

	assert.Equal(t, "inventory/item.proto", f.Path)
	assert.Equal(t, SyntaxProto3, f.Syntax)
	assert.Equal(t, []string{"google/protobuf/timestamp.proto"}, f.Dependencies)
	assert.Equal(t, "example.com/inventory", f.Options.GetGoPackage())
	assert.NotSame(t, desc.Options, f.Options)

	item := f.Messages[0]
	assert.Equal(t, "inventory.Item", item.FullName)
	assert.Nil(t, item.Options, "empty options are dropped")
	assert.Equal(t, "inventory.Item.Tag", item.Nested[0].FullName)
	assert.Equal(t, "inventory.Item.State", item.Enums[0].FullName)

	stock := item.Fields[0]
	assert.Equal(t, "inventory.Item.stock_level", stock.FullName)
	assert.Equal(t, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL, stock.Label)
	assert.Equal(t, "stockLevel", stock.JSONName)

	updated := item.Fields[1]
	assert.Equal(t, "google.protobuf.Timestamp", updated.TypeName)
	assert.Equal(t, "updatedAt", updated.JSONName)

	method := f.Services[0].Methods[0]
	assert.Equal(t, "inventory.Inventory.Watch", method.FullName)
	assert.Equal(t, "inventory.Item", method.InputType)
	assert.True(t, method.ServerStreaming)
	assert.False(t, method.ClientStreaming)
}

func TestFromFileDescriptorProto_Extensions(t *testing.T) {
	desc := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ext.proto"),
		Package: proto.String("ext"),
		Extension: []*descriptorpb.FieldDescriptorProto{{
			Name:     proto.String("note"),
			Number:   proto.Int32(150),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
			Extendee: proto.String(".ext.Base"),
		}},
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Holder"),
			Extension: []*descriptorpb.FieldDescriptorProto{{
				Name:     proto.String("flag"),
				Number:   proto.Int32(120),
				Type:     descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum(),
				Extendee: proto.String(".ext.Base"),
			}},
		}},
	}

	f, err := FromFileDescriptorProto(desc)
	require.NoError(t, err)
	assert.Equal(t, SyntaxProto2, f.Syntax)

	note := f.Extensions[0]
	assert.True(t, note.IsExtension())
	assert.Equal(t, "ext.note", note.FullName)
	assert.Equal(t, "ext.Base", note.Extendee)
	assert.Empty(t, note.JSONName)

	flag := f.Messages[0].Extensions[0]
	assert.Equal(t, "ext.Holder.flag", flag.FullName)
	assert.Equal(t, int32(120), flag.Number)
}

func TestFromFileDescriptorProto_Errors(t *testing.T) {
	_, err := FromFileDescriptorProto(nil)
	assert.Error(t, err)

	_, err = FromFileDescriptorProto(&descriptorpb.FileDescriptorProto{})
	assert.Error(t, err)

	_, err = FromFileDescriptor(nil)
	assert.Error(t, err)
}

func TestFromFileDescriptor_Generated(t *testing.T) {
	f, err := FromFileDescriptor(timestamppb.File_google_protobuf_timestamp_proto)
	require.NoError(t, err)

	assert.Equal(t, "google/protobuf/timestamp.proto", f.Path)
	assert.Equal(t, "google.protobuf", f.Package)
	require.Len(t, f.Messages, 1)
	assert.Equal(t, "google.protobuf.Timestamp", f.Messages[0].FullName)
	assert.Equal(t, "seconds", f.Messages[0].Fields[0].Name)
}

func TestJSONName(t *testing.T) {
	tests := map[string]string{
		"name":          "name",
		"point_count":   "pointCount",
		"elapsed_time":  "elapsedTime",
		"a_b_c":         "aBC",
		"already_Upper": "alreadyUpper",
		"trailing_":     "trailing",
		"_leading":      "Leading",
		"with_2_digits": "with2Digits",
		"double__under": "doubleUnder",
	}
	for in, want := range tests {
		assert.Equal(t, want, JSONName(in), in)
	}
}
