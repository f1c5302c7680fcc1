package gqlclient

import (
	"bytes"
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/archbeaver/beaver/errors"
)

const typenameField = "__typename"

var typenameDocs sync.Map // document -> rewritten document

// addTypename rewrites doc so that every nested selection set asks for
// __typename, which the normalized cache needs to derive entity keys.
// Operation root selections are left alone.
func addTypename(doc string) (string, error) {
	if cached, ok := typenameDocs.Load(doc); ok {
		return cached.(string), nil
	}

	parsed, err := parser.ParseQuery(&ast.Source{Input: doc})
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "invalid GraphQL document"), errors.ErrInvalidRequest)
	}
	for _, op := range parsed.Operations {
		for _, sel := range op.SelectionSet {
			injectTypename(sel)
		}
	}
	for _, frag := range parsed.Fragments {
		frag.SelectionSet = withTypename(frag.SelectionSet)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(parsed)
	out := buf.String()
	typenameDocs.Store(doc, out)
	return out, nil
}

func injectTypename(sel ast.Selection) {
	switch s := sel.(type) {
	case *ast.Field:
		if len(s.SelectionSet) > 0 {
			s.SelectionSet = withTypename(s.SelectionSet)
		}
	case *ast.InlineFragment:
		for _, child := range s.SelectionSet {
			injectTypename(child)
		}
	}
}

func withTypename(set ast.SelectionSet) ast.SelectionSet {
	has := false
	for _, sel := range set {
		if f, ok := sel.(*ast.Field); ok && f.Name == typenameField && (f.Alias == "" || f.Alias == typenameField) {
			has = true
		}
		injectTypename(sel)
	}
	if has {
		return set
	}
	return append(ast.SelectionSet{&ast.Field{Name: typenameField, Alias: typenameField}}, set...)
}
