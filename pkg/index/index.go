package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"go.uber.org/multierr"

	"github.com/platinummonkey/reflector/pkg/schema"
)

type extensionKey struct {
	extendee string
	number   int32
}

// Index answers reflection lookups against one schema. It is built once and
// never mutated, so it is safe for concurrent readers.
type Index struct {
	schema *schema.Schema

	filesByPath          map[string]*schema.ProtoFile
	fileBySymbol         map[string]*schema.ProtoFile
	extensionsByExtendee map[string][]*schema.Field
	extensions           map[extensionKey]*schema.Field
	dependencies         map[string][]*schema.ProtoFile
	services             []string
	cycles               [][]string
}

// New indexes a schema. Duplicate symbols, duplicate extension numbers,
// unresolved imports and extensions of unknown messages are reported
// together as one error.
func New(s *schema.Schema) (*Index, error) {
	if s == nil {
		return nil, fmt.Errorf("nil schema")
	}

	ix := &Index{
		schema:               s,
		filesByPath:          make(map[string]*schema.ProtoFile, s.Len()),
		fileBySymbol:         make(map[string]*schema.ProtoFile),
		extensionsByExtendee: make(map[string][]*schema.Field),
		extensions:           make(map[extensionKey]*schema.Field),
		dependencies:         make(map[string][]*schema.ProtoFile, s.Len()),
	}

	var errs error
	for _, f := range s.Files() {
		ix.filesByPath[f.Path] = f
	}
	for _, f := range s.Files() {
		errs = multierr.Append(errs, ix.indexFile(f))
	}
	errs = multierr.Append(errs, ix.buildImportGraph())
	if errs != nil {
		return nil, fmt.Errorf("index schema: %w", errs)
	}

	sort.Strings(ix.services)
	return ix, nil
}

func (ix *Index) indexFile(f *schema.ProtoFile) error {
	var errs error
	// top-level extensions register ahead of nested ones
	for _, ext := range f.Extensions {
		errs = multierr.Append(errs, ix.indexExtension(f, ext))
	}
	for _, msg := range f.Messages {
		errs = multierr.Append(errs, ix.indexMessage(f, msg))
	}
	for _, enum := range f.Enums {
		errs = multierr.Append(errs, ix.setFileForSymbol(f, enum.FullName))
	}
	for _, svc := range f.Services {
		errs = multierr.Append(errs, ix.indexService(f, svc))
	}
	return errs
}

func (ix *Index) indexService(f *schema.ProtoFile, svc *schema.Service) error {
	if err := ix.setFileForSymbol(f, svc.FullName); err != nil {
		return err
	}
	ix.services = append(ix.services, svc.FullName)

	var errs error
	for _, method := range svc.Methods {
		errs = multierr.Append(errs, ix.setFileForSymbol(f, method.FullName))
	}
	return errs
}

func (ix *Index) indexMessage(f *schema.ProtoFile, msg *schema.Message) error {
	errs := ix.setFileForSymbol(f, msg.FullName)
	for _, ext := range msg.Extensions {
		errs = multierr.Append(errs, ix.indexExtension(f, ext))
	}
	for _, nested := range msg.Nested {
		errs = multierr.Append(errs, ix.indexMessage(f, nested))
	}
	for _, enum := range msg.Enums {
		errs = multierr.Append(errs, ix.setFileForSymbol(f, enum.FullName))
	}
	return errs
}

func (ix *Index) indexExtension(f *schema.ProtoFile, ext *schema.Field) error {
	if err := ix.setFileForSymbol(f, ext.FullName); err != nil {
		return err
	}
	if ix.schema.Message(ext.Extendee) == nil {
		return fmt.Errorf("extension %q in %q extends unknown message %q", ext.FullName, f.Path, ext.Extendee)
	}

	key := extensionKey{extendee: ext.Extendee, number: ext.Number}
	if prev, ok := ix.extensions[key]; ok {
		return fmt.Errorf("extension number %d on %q already declared by %q", ext.Number, ext.Extendee, prev.FullName)
	}
	ix.extensions[key] = ext
	ix.extensionsByExtendee[ext.Extendee] = append(ix.extensionsByExtendee[ext.Extendee], ext)
	return nil
}

func (ix *Index) setFileForSymbol(f *schema.ProtoFile, symbol string) error {
	if prev, ok := ix.fileBySymbol[symbol]; ok {
		return fmt.Errorf("symbol %q declared in %q already indexed from %q", symbol, f.Path, prev.Path)
	}
	ix.fileBySymbol[symbol] = f
	return nil
}

// buildImportGraph resolves every import to a file and records import
// cycles. Closure order keeps non-public imports ahead of public ones.
func (ix *Index) buildImportGraph() error {
	g := graph.New(graph.StringHash, graph.Directed())
	for path := range ix.filesByPath {
		if err := g.AddVertex(path); err != nil {
			return fmt.Errorf("add file %q to import graph: %w", path, err)
		}
	}

	var errs error
	var selfImports [][]string
	for _, f := range ix.schema.Files() {
		var direct, public []*schema.ProtoFile
		for i, dep := range f.Dependencies {
			target, ok := ix.filesByPath[dep]
			if !ok {
				errs = multierr.Append(errs, fmt.Errorf("file %q imports %q which is not in the schema", f.Path, dep))
				continue
			}
			if f.IsPublicDependency(i) {
				public = append(public, target)
			} else {
				direct = append(direct, target)
			}
			if dep == f.Path {
				selfImports = append(selfImports, []string{f.Path})
			}
			if err := g.AddEdge(f.Path, dep); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				errs = multierr.Append(errs, fmt.Errorf("add import %q -> %q: %w", f.Path, dep, err))
			}
		}
		ix.dependencies[f.Path] = append(direct, public...)
	}
	if errs != nil {
		return errs
	}

	components, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return fmt.Errorf("analyze import graph: %w", err)
	}
	for _, component := range components {
		if len(component) > 1 {
			sort.Strings(component)
			ix.cycles = append(ix.cycles, component)
		}
	}
	ix.cycles = append(ix.cycles, selfImports...)
	sort.Slice(ix.cycles, func(i, j int) bool {
		return ix.cycles[i][0] < ix.cycles[j][0]
	})
	return nil
}

// Schema returns the indexed schema
func (ix *Index) Schema() *schema.Schema {
	return ix.schema
}

// Files returns every indexed file in schema order
func (ix *Index) Files() []*schema.ProtoFile {
	return ix.schema.Files()
}

// File returns the file with exactly the given path
func (ix *Index) File(path string) (*schema.ProtoFile, error) {
	f, ok := ix.filesByPath[path]
	if !ok {
		return nil, notFound(KindFile, path)
	}
	return f, nil
}

// FileContainingSymbol returns the file declaring a fully-qualified message,
// enum, service, method or extension. A leading dot is accepted.
func (ix *Index) FileContainingSymbol(symbol string) (*schema.ProtoFile, error) {
	f, ok := ix.fileBySymbol[strings.TrimPrefix(symbol, ".")]
	if !ok {
		return nil, notFound(KindSymbol, symbol)
	}
	return f, nil
}

// FileContainingExtension returns the file declaring extension number on
// the extendee message.
func (ix *Index) FileContainingExtension(extendee string, number int32) (*schema.ProtoFile, error) {
	extendee = strings.TrimPrefix(extendee, ".")
	if ix.schema.Message(extendee) == nil {
		return nil, notFound(KindType, extendee)
	}
	ext, ok := ix.extensions[extensionKey{extendee: extendee, number: number}]
	if !ok {
		return nil, notFound(KindExtension, fmt.Sprintf("%d on %s", number, extendee))
	}
	return ext.File, nil
}

// ExtensionNumbers returns the extension numbers declared for a message in
// declaration order. A known message without extensions yields an empty
// slice.
func (ix *Index) ExtensionNumbers(extendee string) ([]int32, error) {
	extendee = strings.TrimPrefix(extendee, ".")
	if ix.schema.Message(extendee) == nil {
		return nil, notFound(KindType, extendee)
	}
	exts := ix.extensionsByExtendee[extendee]
	numbers := make([]int32, 0, len(exts))
	for _, ext := range exts {
		numbers = append(numbers, ext.Number)
	}
	return numbers, nil
}

// ServiceNames returns every fully-qualified service name, sorted
func (ix *Index) ServiceNames() []string {
	out := make([]string, len(ix.services))
	copy(out, ix.services)
	return out
}

// Cycles returns groups of files that import each other, each sorted
func (ix *Index) Cycles() [][]string {
	out := make([][]string, len(ix.cycles))
	copy(out, ix.cycles)
	return out
}

// Closure returns f followed by everything it imports, transitively, with
// no repeats. Traversal is a pre-order depth-first walk: each file is
// followed by its non-public imports and then its public imports, in
// declaration order. Cycles terminate on the visited set.
func (ix *Index) Closure(f *schema.ProtoFile) []*schema.ProtoFile {
	if f == nil {
		return nil
	}

	visited := make(map[string]bool)
	result := make([]*schema.ProtoFile, 0)
	stack := []*schema.ProtoFile{f}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur.Path] {
			continue
		}
		visited[cur.Path] = true
		result = append(result, cur)

		deps := ix.dependencies[cur.Path]
		for i := len(deps) - 1; i >= 0; i-- {
			if !visited[deps[i].Path] {
				stack = append(stack, deps[i])
			}
		}
	}

	return result
}
