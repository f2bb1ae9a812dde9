package cli

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

func (c *Command) newFilesCommand() *Command {
	cmd := c.newSubcommand("files", "List the files a client needs to resolve a symbol, in server order")
	cmd.Flags.Bool("filename", false, "Treat the argument as a file path instead of a symbol")
	cmd.Run = cmd.runFiles
	return cmd
}

func (c *Command) runFiles(args []string) error {
	if err := c.Flags.Parse(args); err != nil {
		return err
	}
	if c.Flags.NArg() != 1 {
		return fmt.Errorf("%w: files takes exactly one argument", ErrUsage)
	}
	target := c.Flags.Arg(0)

	req := &rpb.ServerReflectionRequest{
		MessageRequest: &rpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: target},
	}
	if c.Flags.Lookup("filename").Value.String() == "true" {
		req.MessageRequest = &rpb.ServerReflectionRequest_FileByFilename{FileByFilename: target}
	}

	s, err := c.connect()
	if err != nil {
		return err
	}
	defer s.close()

	resp, err := s.roundTrip(req)
	if err != nil {
		return err
	}
	for _, blob := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		fd := &descriptorpb.FileDescriptorProto{}
		if err := proto.Unmarshal(blob, fd); err != nil {
			return fmt.Errorf("server returned an undecodable descriptor: %w", err)
		}
		fmt.Fprintf(c.out, "%s\t%s\n", fd.GetName(), fd.GetPackage())
	}
	return nil
}

func kindOf(d desc.Descriptor) string {
	switch d.(type) {
	case *desc.ServiceDescriptor:
		return "service"
	case *desc.MethodDescriptor:
		return "method"
	case *desc.MessageDescriptor:
		return "message"
	case *desc.EnumDescriptor:
		return "enum"
	case *desc.FieldDescriptor:
		return "extension"
	default:
		return "symbol"
	}
}
