package descriptor

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/platinummonkey/reflector/pkg/schema"
)

// EncodeError reports a file that could not be serialized. It signals an
// internal fault in the schema model, never a missing symbol.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode descriptor for %q: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

var marshalOptions = proto.MarshalOptions{Deterministic: true}

// Encode serializes the FileDescriptorProto of a file
func Encode(f *schema.ProtoFile) ([]byte, error) {
	if f == nil {
		return nil, &EncodeError{Err: fmt.Errorf("nil file")}
	}
	b, err := marshalOptions.Marshal(ToProto(f))
	if err != nil {
		return nil, &EncodeError{Path: f.Path, Err: err}
	}
	return b, nil
}

// EncodeAll serializes every file, keyed by path. It stops at the first
// failure.
func EncodeAll(files []*schema.ProtoFile) (map[string][]byte, error) {
	out := make(map[string][]byte, len(files))
	for _, f := range files {
		b, err := Encode(f)
		if err != nil {
			return nil, err
		}
		out[f.Path] = b
	}
	return out, nil
}

// ToProto maps a file onto the standard descriptor message. Declaration
// order is preserved throughout.
func ToProto(f *schema.ProtoFile) *descriptorpb.FileDescriptorProto {
	fileProto := &descriptorpb.FileDescriptorProto{
		Name: proto.String(f.Path),
	}
	if f.Package != "" {
		fileProto.Package = proto.String(f.Package)
	}

	// protoc leaves syntax unset for proto2
	switch f.Syntax {
	case schema.SyntaxProto3:
		fileProto.Syntax = proto.String(string(schema.SyntaxProto3))
	case schema.SyntaxEditions:
		fileProto.Syntax = proto.String(string(schema.SyntaxEditions))
		edition := f.Edition
		fileProto.Edition = &edition
	}

	if len(f.Dependencies) > 0 {
		fileProto.Dependency = append([]string(nil), f.Dependencies...)
	}
	if len(f.PublicDependencies) > 0 {
		fileProto.PublicDependency = append([]int32(nil), f.PublicDependencies...)
	}
	if len(f.WeakDependencies) > 0 {
		fileProto.WeakDependency = append([]int32(nil), f.WeakDependencies...)
	}

	for _, msg := range f.Messages {
		fileProto.MessageType = append(fileProto.MessageType, messageToProto(msg))
	}
	for _, enum := range f.Enums {
		fileProto.EnumType = append(fileProto.EnumType, enumToProto(enum))
	}
	for _, svc := range f.Services {
		fileProto.Service = append(fileProto.Service, serviceToProto(svc))
	}
	for _, ext := range f.Extensions {
		fileProto.Extension = append(fileProto.Extension, fieldToProto(ext))
	}

	fileProto.Options = cloneOptions(f.Options)
	return fileProto
}

func messageToProto(msg *schema.Message) *descriptorpb.DescriptorProto {
	msgProto := &descriptorpb.DescriptorProto{
		Name: proto.String(msg.Name),
	}

	for _, field := range msg.Fields {
		msgProto.Field = append(msgProto.Field, fieldToProto(field))
	}
	for _, nested := range msg.Nested {
		msgProto.NestedType = append(msgProto.NestedType, messageToProto(nested))
	}
	for _, enum := range msg.Enums {
		msgProto.EnumType = append(msgProto.EnumType, enumToProto(enum))
	}
	for _, r := range msg.ExtensionRanges {
		msgProto.ExtensionRange = append(msgProto.ExtensionRange, &descriptorpb.DescriptorProto_ExtensionRange{
			Start:   proto.Int32(r.Start),
			End:     proto.Int32(r.End),
			Options: cloneOptions(r.Options),
		})
	}
	for _, ext := range msg.Extensions {
		msgProto.Extension = append(msgProto.Extension, fieldToProto(ext))
	}
	for _, oneof := range msg.Oneofs {
		msgProto.OneofDecl = append(msgProto.OneofDecl, &descriptorpb.OneofDescriptorProto{
			Name:    proto.String(oneof.Name),
			Options: cloneOptions(oneof.Options),
		})
	}
	for _, r := range msg.ReservedRanges {
		msgProto.ReservedRange = append(msgProto.ReservedRange, &descriptorpb.DescriptorProto_ReservedRange{
			Start: proto.Int32(r.Start),
			End:   proto.Int32(r.End),
		})
	}
	if len(msg.ReservedNames) > 0 {
		msgProto.ReservedName = append([]string(nil), msg.ReservedNames...)
	}

	msgProto.Options = cloneOptions(msg.Options)
	return msgProto
}

func fieldToProto(field *schema.Field) *descriptorpb.FieldDescriptorProto {
	label := field.Label
	typ := field.Type
	fieldProto := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(field.Name),
		Number: proto.Int32(field.Number),
		Label:  &label,
		Type:   &typ,
	}

	if field.TypeName != "" {
		fieldProto.TypeName = proto.String("." + field.TypeName)
	}
	if field.Extendee != "" {
		fieldProto.Extendee = proto.String("." + field.Extendee)
	}
	if field.DefaultValue != "" {
		fieldProto.DefaultValue = proto.String(field.DefaultValue)
	}
	if field.OneofIndex != nil {
		fieldProto.OneofIndex = proto.Int32(*field.OneofIndex)
	}
	if field.JSONName != "" {
		fieldProto.JsonName = proto.String(field.JSONName)
	}
	if field.Proto3Optional {
		fieldProto.Proto3Optional = proto.Bool(true)
	}

	fieldProto.Options = cloneOptions(field.Options)
	return fieldProto
}

func enumToProto(enum *schema.Enum) *descriptorpb.EnumDescriptorProto {
	enumProto := &descriptorpb.EnumDescriptorProto{
		Name: proto.String(enum.Name),
	}

	for _, value := range enum.Values {
		enumProto.Value = append(enumProto.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:    proto.String(value.Name),
			Number:  proto.Int32(value.Number),
			Options: cloneOptions(value.Options),
		})
	}
	for _, r := range enum.ReservedRanges {
		enumProto.ReservedRange = append(enumProto.ReservedRange, &descriptorpb.EnumDescriptorProto_EnumReservedRange{
			Start: proto.Int32(r.Start),
			End:   proto.Int32(r.End),
		})
	}
	if len(enum.ReservedNames) > 0 {
		enumProto.ReservedName = append([]string(nil), enum.ReservedNames...)
	}

	enumProto.Options = cloneOptions(enum.Options)
	return enumProto
}

func serviceToProto(svc *schema.Service) *descriptorpb.ServiceDescriptorProto {
	svcProto := &descriptorpb.ServiceDescriptorProto{
		Name: proto.String(svc.Name),
	}

	for _, method := range svc.Methods {
		methodProto := &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(method.Name),
			InputType:  proto.String("." + method.InputType),
			OutputType: proto.String("." + method.OutputType),
			Options:    cloneOptions(method.Options),
		}
		// protoc only writes the streaming flags when set
		if method.ClientStreaming {
			methodProto.ClientStreaming = proto.Bool(true)
		}
		if method.ServerStreaming {
			methodProto.ServerStreaming = proto.Bool(true)
		}
		svcProto.Method = append(svcProto.Method, methodProto)
	}

	svcProto.Options = cloneOptions(svc.Options)
	return svcProto
}

func cloneOptions[T proto.Message](opts T) T {
	var zero T
	if !opts.ProtoReflect().IsValid() {
		return zero
	}
	return proto.Clone(opts).(T)
}
