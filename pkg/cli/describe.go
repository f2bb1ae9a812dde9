package cli

import (
	"fmt"

	"github.com/jhump/protoreflect/desc/protoprint"
)

func (c *Command) newDescribeCommand() *Command {
	cmd := c.newSubcommand("describe", "Print the definition of a service, method, message or enum")
	cmd.Run = cmd.runDescribe
	return cmd
}

func (c *Command) runDescribe(args []string) error {
	if err := c.Flags.Parse(args); err != nil {
		return err
	}
	if c.Flags.NArg() != 1 {
		return fmt.Errorf("%w: describe takes exactly one symbol", ErrUsage)
	}
	symbol := c.Flags.Arg(0)

	s, err := c.connect()
	if err != nil {
		return err
	}
	defer s.close()

	fd, err := s.client.FileContainingSymbol(symbol)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", symbol, err)
	}
	d := fd.FindSymbol(symbol)
	if d == nil {
		return fmt.Errorf("symbol %s not found in %s", symbol, fd.GetName())
	}

	printer := &protoprint.Printer{Compact: true}
	text, err := printer.PrintProtoToString(d)
	if err != nil {
		return fmt.Errorf("failed to print %s: %w", symbol, err)
	}
	fmt.Fprintf(c.out, "%s is a %s in %s:\n\n%s", d.GetFullyQualifiedName(), kindOf(d), fd.GetName(), text)
	return nil
}
