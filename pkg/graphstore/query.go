package graphstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bionexus/backend/pkg/common"
)

var identifierPattern = regexp.MustCompile(`^[A-Z][A-Z_]*$`)

// RelationTypeIdentifier validates a relation type for use as a Cypher
// edge label. Values are never interpolated into queries; this is the one
// place an identifier is, so it is restricted to the known relation set.
func RelationTypeIdentifier(t common.RelationType) (string, error) {
	switch t {
	case common.RelationInvestigated, common.RelationReports,
		common.RelationDerivedFrom, common.RelationMentions:
	default:
		return "", fmt.Errorf("unknown relation type %q", t)
	}
	id := string(t)
	if !identifierPattern.MatchString(id) {
		return "", fmt.Errorf("invalid relation identifier %q", id)
	}
	return id, nil
}

// Query composes a Cypher statement with bound parameters. Values never
// appear in the statement text; Bind registers them under generated
// parameter names and returns the placeholder to splice into a clause.
type Query struct {
	clauses []string
	params  map[string]any
}

// NewQuery creates an empty query.
func NewQuery() *Query {
	return &Query{params: map[string]any{}}
}

// Append adds a clause verbatim. Clause text must be static; dynamic
// values go through Bind.
func (q *Query) Append(clause string) *Query {
	q.clauses = append(q.clauses, clause)
	return q
}

// Appendf adds a clause built from static fragments and placeholders
// previously returned by Bind.
func (q *Query) Appendf(format string, args ...any) *Query {
	q.clauses = append(q.clauses, fmt.Sprintf(format, args...))
	return q
}

// Bind registers a parameter value and returns its placeholder ("$p0",
// "$p1", ...).
func (q *Query) Bind(value any) string {
	name := fmt.Sprintf("p%d", len(q.params))
	q.params[name] = value
	return "$" + name
}

// BindNamed registers a parameter under an explicit name.
func (q *Query) BindNamed(name string, value any) string {
	q.params[name] = value
	return "$" + name
}

// Cypher returns the composed statement.
func (q *Query) Cypher() string {
	return strings.Join(q.clauses, "\n")
}

// Params returns the bound parameter map.
func (q *Query) Params() map[string]any {
	return q.params
}
