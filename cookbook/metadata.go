package cookbook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Metadata is the part of a cookbook's metadata delivery-sugar cares about.
type Metadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func ParseMetadataJSON(data []byte) (*Metadata, error) {
	var m Metadata

	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unable to decode json: %w", err)
	}

	return m.validate()
}

var statementRegexp = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(.*)$`)

// ParseMetadataRB reads the name and version out of a metadata.rb.
//
// metadata.rb is Ruby, but it is never executed. Only statements of the form
//
//	name 'foo'
//	version "1.2.3"
//	name('foo')
//
// are understood. Every other statement is ignored.
// A name or version statement whose argument is not a string literal is an error.
func ParseMetadataRB(data []byte) (*Metadata, error) {
	var m Metadata

	s := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for s.Scan() {
		lineNo++

		for _, stmt := range splitStatements(stripComment(s.Text())) {
			setter, value, ok, err := parseStatement(stmt)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", lineNo, setter, err)
			}

			if !ok {
				continue
			}

			switch setter {
			case "name":
				m.Name = value
			case "version":
				m.Version = value
			}
		}
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return m.validate()
}

// parseStatement returns the setter and value of a name or version statement.
// ok is false for every other statement.
func parseStatement(stmt string) (setter, value string, ok bool, err error) {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return "", "", false, nil
	}

	match := statementRegexp.FindStringSubmatch(stmt)
	if match == nil {
		return "", "", false, nil
	}

	setter, rest := match[1], match[2]
	if setter != "name" && setter != "version" {
		return "", "", false, nil
	}

	// `name` on its own, `name = ...` or `name.foo` are not setter calls.
	if rest == "" || !(rest[0] == ' ' || rest[0] == '\t' || rest[0] == '(') {
		return "", "", false, nil
	}

	value, err = parseArgument(rest)
	if err != nil {
		return setter, "", false, err
	}

	return setter, value, true, nil
}

func (m Metadata) validate() (*Metadata, error) {
	if m.Name == "" {
		return nil, fmt.Errorf("metadata has no name")
	}

	if m.Version == "" {
		m.Version = DefaultVersion
	}

	return &m, nil
}

func parseArgument(rest string) (string, error) {
	arg := trimFreeze(strings.TrimSpace(rest))

	if strings.HasPrefix(arg, "(") {
		if !strings.HasSuffix(arg, ")") {
			return "", fmt.Errorf("unbalanced parenthesis in %q", rest)
		}
		arg = trimFreeze(strings.TrimSpace(arg[1 : len(arg)-1]))
	}

	return parseStringLiteral(arg)
}

// trimFreeze drops a trailing `.freeze`, which leaves a string literal's value unchanged.
func trimFreeze(arg string) string {
	return strings.TrimSpace(strings.TrimSuffix(arg, ".freeze"))
}

func parseStringLiteral(lit string) (string, error) {
	if len(lit) < 2 {
		return "", fmt.Errorf("expected a string literal, got %q", lit)
	}

	quote := lit[0]
	if (quote != '\'' && quote != '"') || lit[len(lit)-1] != quote {
		return "", fmt.Errorf("expected a string literal, got %q", lit)
	}

	var (
		b       strings.Builder
		escaped bool
	)

	body := lit[1 : len(lit)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]

		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}

		switch {
		case c == '\\':
			escaped = true
		case c == quote:
			return "", fmt.Errorf("expected a single string literal, got %q", lit)
		case quote == '"' && c == '#' && i+1 < len(body) && body[i+1] == '{':
			return "", fmt.Errorf("string interpolation is not supported: %q", lit)
		default:
			b.WriteByte(c)
		}
	}

	if escaped {
		return "", fmt.Errorf("unterminated escape in %q", lit)
	}

	return b.String(), nil
}

// splitStatements splits a line on the ';' separators outside string literals.
func splitStatements(line string) []string {
	var (
		stmts   []string
		quote   byte
		escaped bool
		start   int
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case escaped:
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == ';':
			stmts = append(stmts, line[start:i])
			start = i + 1
		}
	}

	return append(stmts, line[start:])
}

// stripComment removes a trailing Ruby comment, leaving '#' inside string literals intact.
func stripComment(line string) string {
	var (
		quote   byte
		escaped bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case escaped:
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0 && c == quote:
			quote = 0
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote == 0 && c == '#':
			return line[:i]
		}
	}

	return line
}
