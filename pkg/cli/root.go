package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrUsage is returned when a command is invoked with bad arguments
var ErrUsage = errors.New("invalid usage")

// Dialer opens a client connection to a reflection server
type Dialer func(addr string) (*grpc.ClientConn, error)

// InsecureDialer connects over plaintext
func InsecureDialer(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet

	out  io.Writer
	dial Dialer
}

// NewRootCommand creates the root command. Output goes to out, stdout
// when nil, and connections are opened with dial, InsecureDialer when nil.
func NewRootCommand(out io.Writer, dial Dialer) *Command {
	if out == nil {
		out = os.Stdout
	}
	if dial == nil {
		dial = InsecureDialer
	}

	root := &Command{
		Name:        "reflector-cli",
		Description: "Query a gRPC server through the v1alpha reflection service",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("reflector-cli", flag.ContinueOnError),
		out:         out,
		dial:        dial,
	}

	root.Subcommands["list"] = root.newListCommand()
	root.Subcommands["describe"] = root.newDescribeCommand()
	root.Subcommands["files"] = root.newFilesCommand()

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(c.out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(c.out, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// newSubcommand creates a subcommand sharing the root's output and dialer,
// with the connection flags every command accepts
func (c *Command) newSubcommand(name, description string) *Command {
	cmd := &Command{
		Name:        name,
		Description: description,
		Flags:       flag.NewFlagSet(name, flag.ContinueOnError),
		out:         c.out,
		dial:        c.dial,
	}
	cmd.Flags.SetOutput(c.out)
	cmd.Flags.String("addr", envOr("REFLECTOR_ADDR", "localhost:9090"), "Reflection server address")
	cmd.Flags.Duration("timeout", 10*time.Second, "Request timeout")
	return cmd
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
