// Package index resolves reflection lookups against a schema.Schema:
// files by path, declaring files by symbol or extension, extension numbers
// per message, and the import closure of a file.
package index
