package cli

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/platinummonkey/reflector/pkg/loader"
	"github.com/platinummonkey/reflector/pkg/loader/loadertest"
	"github.com/platinummonkey/reflector/pkg/reflector"
	"github.com/platinummonkey/reflector/pkg/server"
)

// newTestRoot serves the fixtures in memory and returns a root command
// wired to them
func newTestRoot(t *testing.T) (*Command, *bytes.Buffer) {
	t.Helper()

	s, err := loader.Compile(context.Background(), loadertest.Merge(loadertest.RouteGuide(), loadertest.Diamond()))
	require.NoError(t, err)
	r, err := reflector.New(s)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	server.Register(srv, server.NewReflectionService(reflector.NewHolder(r), nil))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dial := func(string) (*grpc.ClientConn, error) {
		return grpc.NewClient("passthrough:///bufnet",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}

	var out bytes.Buffer
	return NewRootCommand(&out, dial), &out
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand(nil, nil)

	assert.Equal(t, "reflector-cli", root.Name)
	assert.NotNil(t, root.Flags)
	for _, name := range []string{"list", "describe", "files"} {
		require.Contains(t, root.Subcommands, name)
		sub := root.Subcommands[name]
		assert.NotNil(t, sub.Run)
		assert.NotNil(t, sub.Flags.Lookup("addr"))
		assert.NotNil(t, sub.Flags.Lookup("timeout"))
	}
	assert.Len(t, root.Subcommands, 3)
}

func TestCommandUsage(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand(&out, nil)

	require.NoError(t, root.Execute(nil))
	assert.Contains(t, out.String(), "Usage: reflector-cli <command> [args]")
	assert.Contains(t, out.String(), "describe")
	assert.Less(t, strings.Index(out.String(), "describe"), strings.Index(out.String(), "list"))

	out.Reset()
	require.NoError(t, root.Execute([]string{"--help"}))
	assert.Contains(t, out.String(), "Commands:")

	assert.EqualError(t, root.Execute([]string{"push"}), "unknown command: push")
}

func TestList(t *testing.T) {
	root, out := newTestRoot(t)
	require.NoError(t, root.Execute([]string{"list"}))
	assert.Equal(t, "diamond.AppService\nrouteguide.RouteGuide\n", out.String())

	root, out = newTestRoot(t)
	require.NoError(t, root.Execute([]string{"list", "--all"}))
	assert.Contains(t, out.String(), reflector.ServiceName)
}

func TestDescribe(t *testing.T) {
	root, out := newTestRoot(t)
	require.NoError(t, root.Execute([]string{"describe", "routeguide.RouteGuide"}))
	assert.Contains(t, out.String(), "routeguide.RouteGuide is a service in rguide/routeguide.proto")
	assert.Contains(t, out.String(), "RouteChat")
	assert.Contains(t, out.String(), "stream")

	root, out = newTestRoot(t)
	require.NoError(t, root.Execute([]string{"describe", "diamond.Left"}))
	assert.Contains(t, out.String(), "is a message in diamond/left.proto")

	root, _ = newTestRoot(t)
	assert.Error(t, root.Execute([]string{"describe", "routeguide.Nope"}))

	root, _ = newTestRoot(t)
	assert.ErrorIs(t, root.Execute([]string{"describe"}), ErrUsage)
}

func TestFiles(t *testing.T) {
	root, out := newTestRoot(t)
	require.NoError(t, root.Execute([]string{"files", "diamond.AppService"}))
	assert.Equal(t,
		"diamond/app.proto\tdiamond\ndiamond/left.proto\tdiamond\ndiamond/leaf.proto\tdiamond\ndiamond/right.proto\tdiamond\n",
		out.String(),
	)

	root, out = newTestRoot(t)
	require.NoError(t, root.Execute([]string{"files", "--filename", loadertest.RouteGuidePath}))
	assert.Equal(t, loadertest.RouteGuidePath+"\trouteguide\n", out.String())

	root, _ = newTestRoot(t)
	err := root.Execute([]string{"files", "--filename", "missing.proto"})
	assert.ErrorContains(t, err, "unknown file: missing.proto")

	root, _ = newTestRoot(t)
	assert.ErrorIs(t, root.Execute([]string{"files", "a", "b"}), ErrUsage)
}
