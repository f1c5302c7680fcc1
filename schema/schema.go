// Package schema embeds the Beaver GraphQL schema and the client operation
// documents, and exposes them parsed and validated through gqlparser.
package schema

import (
	"bytes"
	_ "embed"
	"sort"
	"sync"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/archbeaver/beaver/errors"
)

// SDL is the server schema
//
//go:embed schema.graphql
var SDL string

// Documents holds every client fragment, query and mutation
//
//go:embed operations.graphql
var Documents string

var (
	loadOnce sync.Once
	loaded   *ast.Schema
	loadErr  error

	docOnce sync.Once
	doc     *ast.QueryDocument
	docErr  error
)

// Load parses the SDL once and returns the shared schema
func Load() (*ast.Schema, error) {
	loadOnce.Do(func() {
		s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: SDL})
		if err != nil {
			loadErr = errors.Wrap(err, "failed to load GraphQL schema")
			return
		}
		loaded = s
	})
	return loaded, loadErr
}

// MustLoad is Load for package initialization
func MustLoad() *ast.Schema {
	s, err := Load()
	if err != nil {
		panic(err)
	}
	return s
}

// Document parses and validates the client documents against the schema once
func Document() (*ast.QueryDocument, error) {
	docOnce.Do(func() {
		var s *ast.Schema
		if s, docErr = Load(); docErr != nil {
			return
		}
		doc, docErr = ParseAndValidate(s, "operations.graphql", Documents)
	})
	return doc, docErr
}

// ParseAndValidate parses a query document and validates it against s
func ParseAndValidate(s *ast.Schema, name, input string) (*ast.QueryDocument, error) {
	parsed, err := parser.ParseQuery(&ast.Source{Name: name, Input: input})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", name)
	}
	if errs := validator.Validate(s, parsed); len(errs) > 0 {
		return nil, errors.Wrapf(errs, "invalid document %s", name)
	}
	return parsed, nil
}

// OperationNames lists every named operation in the client documents, sorted
func OperationNames() ([]string, error) {
	d, err := Document()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.Operations))
	for _, op := range d.Operations {
		names = append(names, op.Name)
	}
	sort.Strings(names)
	return names, nil
}

// Operation returns a standalone document for one operation: the operation
// plus exactly the fragments it references, printed by the gqlparser formatter.
func Operation(name string) (string, error) {
	d, err := Document()
	if err != nil {
		return "", err
	}
	op := d.Operations.ForName(name)
	if op == nil {
		return "", errors.Newf("unknown operation %q", name)
	}
	out := &ast.QueryDocument{Operations: ast.OperationList{op}}
	seen := make(map[string]bool)
	collectFragments(d, op.SelectionSet, seen, &out.Fragments)
	return Format(out), nil
}

// Format prints a query document
func Format(d *ast.QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(d)
	return buf.String()
}

func collectFragments(d *ast.QueryDocument, set ast.SelectionSet, seen map[string]bool, out *ast.FragmentDefinitionList) {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			collectFragments(d, s.SelectionSet, seen, out)
		case *ast.InlineFragment:
			collectFragments(d, s.SelectionSet, seen, out)
		case *ast.FragmentSpread:
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			frag := d.Fragments.ForName(s.Name)
			if frag == nil {
				continue
			}
			*out = append(*out, frag)
			collectFragments(d, frag.SelectionSet, seen, out)
		}
	}
}
