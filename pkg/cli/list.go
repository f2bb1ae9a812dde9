package cli

import (
	"fmt"

	"github.com/platinummonkey/reflector/pkg/reflector"
)

func (c *Command) newListCommand() *Command {
	cmd := c.newSubcommand("list", "List services exposed by the server")
	cmd.Flags.Bool("all", false, "Include the reflection service itself")
	cmd.Run = cmd.runList
	return cmd
}

func (c *Command) runList(args []string) error {
	if err := c.Flags.Parse(args); err != nil {
		return err
	}
	all := c.Flags.Lookup("all").Value.String() == "true"

	s, err := c.connect()
	if err != nil {
		return err
	}
	defer s.close()

	services, err := s.client.ListServices()
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}
	for _, name := range services {
		if name == reflector.ServiceName && !all {
			continue
		}
		fmt.Fprintln(c.out, name)
	}
	return nil
}
