package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/platinummonkey/reflector/pkg/observability"
	"github.com/platinummonkey/reflector/pkg/schema"
)

// ErrNoFiles is returned when a source yields no .proto files
var ErrNoFiles = errors.New("no .proto files")

// Loader turns the current contents of a Source into a linked Schema
type Loader struct {
	source Source
	logger *observability.Logger
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger used to report loads
func WithLogger(logger *observability.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader reading from source
func New(source Source, opts ...Option) *Loader {
	l := &Loader{
		source: source,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source returns the source the loader reads from
func (l *Loader) Source() Source {
	return l.source
}

// Load snapshots the source and compiles it
func (l *Loader) Load(ctx context.Context) (*schema.Schema, error) {
	start := time.Now()

	files, err := l.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", l.source.Name(), err)
	}

	s, err := Compile(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.source.Name(), err)
	}

	l.logger.WithFields(map[string]interface{}{
		"source":   l.source.Name(),
		"sources":  len(files),
		"files":    s.Len(),
		"duration": time.Since(start).String(),
	}).Info("Schema loaded")
	return s, nil
}

// Compile compiles every file in sources, keyed by import path, and returns
// a schema holding them plus everything they import, standard
// google/protobuf files included. Files are ordered dependencies first.
func Compile(ctx context.Context, sources map[string]string) (*schema.Schema, error) {
	if len(sources) == 0 {
		return nil, ErrNoFiles
	}

	paths := make([]string, 0, len(sources))
	for path := range sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		}),
	}

	linked, err := compiler.Compile(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	ordered := make([]protoreflect.FileDescriptor, 0, len(linked))
	seen := make(map[string]bool, len(linked))
	var visit func(fd protoreflect.FileDescriptor)
	visit = func(fd protoreflect.FileDescriptor) {
		if fd == nil || fd.IsPlaceholder() || seen[fd.Path()] {
			return
		}
		seen[fd.Path()] = true
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			visit(imports.Get(i).FileDescriptor)
		}
		ordered = append(ordered, fd)
	}
	for _, fd := range linked {
		visit(fd)
	}

	files := make([]*schema.ProtoFile, 0, len(ordered))
	for _, fd := range ordered {
		f, err := schema.FromFileDescriptor(fd)
		if err != nil {
			return nil, fmt.Errorf("convert %q: %w", fd.Path(), err)
		}
		files = append(files, f)
	}

	return schema.New(files...)
}
