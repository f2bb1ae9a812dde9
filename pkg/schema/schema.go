package schema

import (
	"fmt"

	"google.golang.org/protobuf/types/descriptorpb"
)

// Syntax is the syntax marker declared by a .proto file
type Syntax string

const (
	SyntaxProto2   Syntax = "proto2"
	SyntaxProto3   Syntax = "proto3"
	SyntaxEditions Syntax = "editions"
)

// Label is the cardinality of a field
type Label = descriptorpb.FieldDescriptorProto_Label

// FieldType is the wire type of a field
type FieldType = descriptorpb.FieldDescriptorProto_Type

// Range is a range of field numbers. For message extension and reserved
// ranges End is exclusive; for enum reserved ranges End is inclusive.
type Range struct {
	Start int32
	End   int32
}

// ExtensionRange is a range of field numbers reserved for extensions
type ExtensionRange struct {
	Range
	Options *descriptorpb.ExtensionRangeOptions
}

// ProtoFile represents one parsed .proto source file
type ProtoFile struct {
	Path    string
	Package string
	Syntax  Syntax
	Edition descriptorpb.Edition

	// Dependencies are import paths in declaration order. Public and weak
	// dependencies are indexes into this list.
	Dependencies       []string
	PublicDependencies []int32
	WeakDependencies   []int32

	Messages   []*Message
	Enums      []*Enum
	Services   []*Service
	Extensions []*Field

	Options *descriptorpb.FileOptions
}

// IsPublicDependency reports whether the i-th dependency is a public import
func (f *ProtoFile) IsPublicDependency(i int) bool {
	for _, idx := range f.PublicDependencies {
		if int(idx) == i {
			return true
		}
	}
	return false
}

// Qualify joins the file package and a relative name
func (f *ProtoFile) Qualify(name string) string {
	return qualify(f.Package, name)
}

// Message represents a message declaration, possibly nested
type Message struct {
	Name     string
	FullName string
	File     *ProtoFile

	Fields          []*Field
	Oneofs          []*Oneof
	Nested          []*Message
	Enums           []*Enum
	Extensions      []*Field
	ExtensionRanges []ExtensionRange
	ReservedRanges  []Range
	ReservedNames   []string

	Options *descriptorpb.MessageOptions
}

// IsMapEntry reports whether the message is a synthesized map entry
func (m *Message) IsMapEntry() bool {
	return m.Options.GetMapEntry()
}

// Field represents a message field or an extension declaration
type Field struct {
	Name     string
	FullName string
	File     *ProtoFile

	Number   int32
	Label    Label
	Type     FieldType
	TypeName string // fully qualified, no leading dot
	Extendee string // fully qualified, set only for extensions

	DefaultValue   string
	JSONName       string
	OneofIndex     *int32
	Proto3Optional bool

	Options *descriptorpb.FieldOptions
}

// IsExtension reports whether the field extends another message
func (f *Field) IsExtension() bool {
	return f.Extendee != ""
}

// Oneof represents a oneof declaration inside a message
type Oneof struct {
	Name    string
	Options *descriptorpb.OneofOptions
}

// Enum represents an enum declaration, possibly nested
type Enum struct {
	Name     string
	FullName string
	File     *ProtoFile

	Values         []*EnumValue
	ReservedRanges []Range
	ReservedNames  []string

	Options *descriptorpb.EnumOptions
}

// EnumValue represents an enum value
type EnumValue struct {
	Name    string
	Number  int32
	Options *descriptorpb.EnumValueOptions
}

// Service represents a service declaration
type Service struct {
	Name     string
	FullName string
	File     *ProtoFile

	Methods []*Method
	Options *descriptorpb.ServiceOptions
}

// Method represents an RPC method in a service
type Method struct {
	Name            string
	FullName        string
	InputType       string // fully qualified, no leading dot
	OutputType      string // fully qualified, no leading dot
	ClientStreaming bool
	ServerStreaming bool
	Options         *descriptorpb.MethodOptions
}

// Schema owns a set of parsed files. It is immutable once built.
type Schema struct {
	files    []*ProtoFile
	byPath   map[string]*ProtoFile
	messages map[string]*Message
	enums    map[string]*Enum
	services map[string]*Service
}

// New builds a schema from files in the given order. File paths must be
// unique. Every element's File back-reference is set to its declaring file.
func New(files ...*ProtoFile) (*Schema, error) {
	s := &Schema{
		files:    make([]*ProtoFile, 0, len(files)),
		byPath:   make(map[string]*ProtoFile, len(files)),
		messages: make(map[string]*Message),
		enums:    make(map[string]*Enum),
		services: make(map[string]*Service),
	}

	for _, f := range files {
		if f == nil {
			return nil, fmt.Errorf("nil file")
		}
		if f.Path == "" {
			return nil, fmt.Errorf("file with empty path")
		}
		if _, ok := s.byPath[f.Path]; ok {
			return nil, fmt.Errorf("duplicate file %q", f.Path)
		}
		s.byPath[f.Path] = f
		s.files = append(s.files, f)
		s.register(f)
	}

	return s, nil
}

// register records lookup entries and back-references for a file. Symbol
// clashes are left for the index to report.
func (s *Schema) register(f *ProtoFile) {
	for _, msg := range f.Messages {
		s.registerMessage(f, msg)
	}
	for _, enum := range f.Enums {
		s.registerEnum(f, enum)
	}
	for _, svc := range f.Services {
		if svc.File != f {
			svc.File = f
		}
		if _, ok := s.services[svc.FullName]; !ok {
			s.services[svc.FullName] = svc
		}
	}
	for _, ext := range f.Extensions {
		setFieldFile(f, ext)
	}
}

// Back-references are only written when they change, so a file can be
// shared with a schema that is still being read.
func (s *Schema) registerMessage(f *ProtoFile, msg *Message) {
	if msg.File != f {
		msg.File = f
	}
	if _, ok := s.messages[msg.FullName]; !ok {
		s.messages[msg.FullName] = msg
	}
	for _, field := range msg.Fields {
		setFieldFile(f, field)
	}
	for _, ext := range msg.Extensions {
		setFieldFile(f, ext)
	}
	for _, enum := range msg.Enums {
		s.registerEnum(f, enum)
	}
	for _, nested := range msg.Nested {
		s.registerMessage(f, nested)
	}
}

func (s *Schema) registerEnum(f *ProtoFile, enum *Enum) {
	if enum.File != f {
		enum.File = f
	}
	if _, ok := s.enums[enum.FullName]; !ok {
		s.enums[enum.FullName] = enum
	}
}

func setFieldFile(f *ProtoFile, field *Field) {
	if field.File != f {
		field.File = f
	}
}

// Files returns the files in load order
func (s *Schema) Files() []*ProtoFile {
	out := make([]*ProtoFile, len(s.files))
	copy(out, s.files)
	return out
}

// File returns the file with the given path, or nil
func (s *Schema) File(path string) *ProtoFile {
	return s.byPath[path]
}

// Message returns the message with the given fully-qualified name, or nil
func (s *Schema) Message(fullName string) *Message {
	return s.messages[fullName]
}

// Enum returns the enum with the given fully-qualified name, or nil
func (s *Schema) Enum(fullName string) *Enum {
	return s.enums[fullName]
}

// Service returns the service with the given fully-qualified name, or nil
func (s *Schema) Service(fullName string) *Service {
	return s.services[fullName]
}

// Len returns the number of files
func (s *Schema) Len() int {
	return len(s.files)
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
