package schema

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// FromFileDescriptor converts a linked protoreflect.FileDescriptor into a
// ProtoFile.
func FromFileDescriptor(fd protoreflect.FileDescriptor) (*ProtoFile, error) {
	if fd == nil {
		return nil, fmt.Errorf("nil file descriptor")
	}
	return FromFileDescriptorProto(protodesc.ToFileDescriptorProto(fd))
}

// FromFileDescriptorProto converts a linked FileDescriptorProto into a
// ProtoFile. Type references must be fully qualified, as produced by a
// linker; a leading dot is stripped.
func FromFileDescriptorProto(desc *descriptorpb.FileDescriptorProto) (*ProtoFile, error) {
	if desc == nil {
		return nil, fmt.Errorf("nil file descriptor proto")
	}
	if desc.GetName() == "" {
		return nil, fmt.Errorf("file descriptor has no name")
	}

	f := &ProtoFile{
		Path:               desc.GetName(),
		Package:            desc.GetPackage(),
		Syntax:             parseSyntax(desc.GetSyntax()),
		Edition:            desc.GetEdition(),
		Dependencies:       append([]string(nil), desc.GetDependency()...),
		PublicDependencies: append([]int32(nil), desc.GetPublicDependency()...),
		WeakDependencies:   append([]int32(nil), desc.GetWeakDependency()...),
		Options:            cloneOptions(desc.GetOptions()),
	}

	for _, msgDesc := range desc.GetMessageType() {
		f.Messages = append(f.Messages, convertMessage(f.Package, msgDesc))
	}
	for _, enumDesc := range desc.GetEnumType() {
		f.Enums = append(f.Enums, convertEnum(f.Package, enumDesc))
	}
	for _, svcDesc := range desc.GetService() {
		f.Services = append(f.Services, convertService(f.Package, svcDesc))
	}
	for _, extDesc := range desc.GetExtension() {
		f.Extensions = append(f.Extensions, convertField(f.Package, extDesc))
	}

	return f, nil
}

func parseSyntax(s string) Syntax {
	switch s {
	case "proto3":
		return SyntaxProto3
	case "editions":
		return SyntaxEditions
	default:
		return SyntaxProto2
	}
}

// convertMessage converts a DescriptorProto declared under scope
func convertMessage(scope string, desc *descriptorpb.DescriptorProto) *Message {
	fullName := qualify(scope, desc.GetName())
	msg := &Message{
		Name:          desc.GetName(),
		FullName:      fullName,
		ReservedNames: append([]string(nil), desc.GetReservedName()...),
		Options:       cloneOptions(desc.GetOptions()),
	}

	for _, fieldDesc := range desc.GetField() {
		msg.Fields = append(msg.Fields, convertField(fullName, fieldDesc))
	}
	for _, oneofDesc := range desc.GetOneofDecl() {
		msg.Oneofs = append(msg.Oneofs, &Oneof{
			Name:    oneofDesc.GetName(),
			Options: cloneOptions(oneofDesc.GetOptions()),
		})
	}
	for _, nestedDesc := range desc.GetNestedType() {
		msg.Nested = append(msg.Nested, convertMessage(fullName, nestedDesc))
	}
	for _, enumDesc := range desc.GetEnumType() {
		msg.Enums = append(msg.Enums, convertEnum(fullName, enumDesc))
	}
	for _, extDesc := range desc.GetExtension() {
		msg.Extensions = append(msg.Extensions, convertField(fullName, extDesc))
	}
	for _, r := range desc.GetExtensionRange() {
		msg.ExtensionRanges = append(msg.ExtensionRanges, ExtensionRange{
			Range:   Range{Start: r.GetStart(), End: r.GetEnd()},
			Options: cloneOptions(r.GetOptions()),
		})
	}
	for _, r := range desc.GetReservedRange() {
		msg.ReservedRanges = append(msg.ReservedRanges, Range{Start: r.GetStart(), End: r.GetEnd()})
	}

	return msg
}

// convertField converts a FieldDescriptorProto declared under scope. For
// extensions scope is the package or the enclosing message.
func convertField(scope string, desc *descriptorpb.FieldDescriptorProto) *Field {
	field := &Field{
		Name:           desc.GetName(),
		FullName:       qualify(scope, desc.GetName()),
		Number:         desc.GetNumber(),
		Label:          desc.GetLabel(),
		Type:           desc.GetType(),
		TypeName:       strings.TrimPrefix(desc.GetTypeName(), "."),
		Extendee:       strings.TrimPrefix(desc.GetExtendee(), "."),
		DefaultValue:   desc.GetDefaultValue(),
		JSONName:       desc.GetJsonName(),
		Proto3Optional: desc.GetProto3Optional(),
		Options:        cloneOptions(desc.GetOptions()),
	}
	if desc.Label == nil {
		field.Label = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	}
	if desc.OneofIndex != nil {
		idx := desc.GetOneofIndex()
		field.OneofIndex = &idx
	}
	if field.JSONName == "" && !field.IsExtension() {
		field.JSONName = JSONName(field.Name)
	}
	return field
}

// convertEnum converts an EnumDescriptorProto declared under scope
func convertEnum(scope string, desc *descriptorpb.EnumDescriptorProto) *Enum {
	enum := &Enum{
		Name:          desc.GetName(),
		FullName:      qualify(scope, desc.GetName()),
		ReservedNames: append([]string(nil), desc.GetReservedName()...),
		Options:       cloneOptions(desc.GetOptions()),
	}

	for _, valueDesc := range desc.GetValue() {
		enum.Values = append(enum.Values, &EnumValue{
			Name:    valueDesc.GetName(),
			Number:  valueDesc.GetNumber(),
			Options: cloneOptions(valueDesc.GetOptions()),
		})
	}
	for _, r := range desc.GetReservedRange() {
		enum.ReservedRanges = append(enum.ReservedRanges, Range{Start: r.GetStart(), End: r.GetEnd()})
	}

	return enum
}

// convertService converts a ServiceDescriptorProto declared in pkg
func convertService(pkg string, desc *descriptorpb.ServiceDescriptorProto) *Service {
	fullName := qualify(pkg, desc.GetName())
	svc := &Service{
		Name:     desc.GetName(),
		FullName: fullName,
		Options:  cloneOptions(desc.GetOptions()),
	}

	for _, methodDesc := range desc.GetMethod() {
		svc.Methods = append(svc.Methods, &Method{
			Name:            methodDesc.GetName(),
			FullName:        qualify(fullName, methodDesc.GetName()),
			InputType:       strings.TrimPrefix(methodDesc.GetInputType(), "."),
			OutputType:      strings.TrimPrefix(methodDesc.GetOutputType(), "."),
			ClientStreaming: methodDesc.GetClientStreaming(),
			ServerStreaming: methodDesc.GetServerStreaming(),
			Options:         cloneOptions(methodDesc.GetOptions()),
		})
	}

	return svc
}

// JSONName returns the default JSON name protoc derives from a field name:
// underscores are dropped and the following letter is upper-cased.
func JSONName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	upperNext := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		upperNext = false
		b.WriteByte(c)
	}
	return b.String()
}

// cloneOptions deep-copies an options message so the model never aliases
// caller-owned descriptors. Nil and empty options both become nil.
func cloneOptions[T proto.Message](opts T) T {
	var zero T
	if !opts.ProtoReflect().IsValid() || proto.Size(opts) == 0 {
		return zero
	}
	return proto.Clone(opts).(T)
}
