package tether

import (
	"fmt"
	"strings"
	"unicode"
)

// Argument is a parsed literal-or-keypath token.
type Argument struct {
	// Literal reports whether Value holds a primitive.
	Literal bool
	Value   any
	Keypath string
}

// ParseArgument classifies a token: quoted strings, true, false, null, nil,
// undefined, the empty string and numbers are literals, anything else is a
// keypath.
func ParseArgument(token string) Argument {
	token = strings.TrimSpace(token)
	if len(token) >= 2 {
		first, last := token[0], token[len(token)-1]
		if (first == '\'' || first == '"') && first == last {
			return Argument{Literal: true, Value: token[1 : len(token)-1]}
		}
	}
	switch token {
	case "":
		return Argument{Literal: true}
	case "true":
		return Argument{Literal: true, Value: true}
	case "false":
		return Argument{Literal: true, Value: false}
	case "null", "nil", "undefined":
		return Argument{Literal: true}
	}
	if number, ok := parseNumber(token); ok {
		return Argument{Literal: true, Value: number}
	}
	return Argument{Keypath: token}
}

// FormatterCall is one stage of a pipeline.
type FormatterCall struct {
	Name string
	Args []Argument
	Raw  string
}

// Directive is a parsed binding declaration of the form
// `keypath [< dep ...] (| formatter arg*)*`.
type Directive struct {
	Target       Argument
	Keypath      string
	Dependencies []string
	Formatters   []FormatterCall
	Raw          string
}

// FormatterNames returns the formatter names in pipeline order.
func (d Directive) FormatterNames() []string {
	names := make([]string, len(d.Formatters))
	for i, call := range d.Formatters {
		names[i] = call.Name
	}
	return names
}

// ParseDirective parses a directive value. Failures wrap
// ErrMalformedDirective.
func ParseDirective(src string) (Directive, error) {
	directive := Directive{Raw: src}
	pipes, err := splitPipes(src)
	if err != nil {
		return directive, err
	}

	head := pipes[0]
	target := head
	if index := indexUnquoted(head, '<'); index >= 0 {
		target = head[:index]
		deps := strings.Fields(head[index+1:])
		if len(deps) == 0 {
			return directive, fmt.Errorf("%w: %q: dependency list is empty", ErrMalformedDirective, src)
		}
		directive.Dependencies = deps
	}
	target = strings.TrimSpace(target)
	directive.Target = ParseArgument(target)
	if !directive.Target.Literal && strings.IndexFunc(target, unicode.IsSpace) >= 0 {
		return directive, fmt.Errorf("%w: %q: unexpected whitespace in keypath", ErrMalformedDirective, src)
	}
	directive.Keypath = target

	for _, pipe := range pipes[1:] {
		tokens, err := splitArgs(pipe)
		if err != nil {
			return directive, fmt.Errorf("%w: %q: %v", ErrMalformedDirective, src, err)
		}
		if len(tokens) == 0 {
			return directive, fmt.Errorf("%w: %q: empty formatter", ErrMalformedDirective, src)
		}
		name := tokens[0]
		if strings.ContainsAny(name, `'"`) {
			return directive, fmt.Errorf("%w: %q: formatter name %s", ErrMalformedDirective, src, name)
		}
		call := FormatterCall{Name: name, Raw: strings.TrimSpace(pipe)}
		for _, token := range tokens[1:] {
			call.Args = append(call.Args, ParseArgument(token))
		}
		directive.Formatters = append(directive.Formatters, call)
	}
	return directive, nil
}

// splitPipes splits on '|' outside quotes.
func splitPipes(src string) ([]string, error) {
	var pipes []string
	var quote rune
	start := 0
	for i, r := range src {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '|':
			pipes = append(pipes, src[start:i])
			start = i + 1
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("%w: %q: unterminated quote", ErrMalformedDirective, src)
	}
	return append(pipes, src[start:]), nil
}

func indexUnquoted(src string, target rune) int {
	var quote rune
	for i, r := range src {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == target:
			return i
		}
	}
	return -1
}

// splitArgs splits a formatter stage into whitespace separated tokens,
// keeping quoted strings whole.
func splitArgs(src string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	var quote rune
	inToken := false
	for _, r := range src {
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
		default:
			if r == '\'' || r == '"' {
				quote = r
			}
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}

// TemplateToken is a span of a text node: literal text or an interpolated
// expression.
type TemplateToken struct {
	Binding bool
	Value   string
}

// ParseTemplate splits text on the open/close delimiter pair. An unclosed
// open delimiter and everything after it stay literal text.
func ParseTemplate(text, open, close string) []TemplateToken {
	var tokens []TemplateToken
	appendText := func(value string) {
		if value == "" {
			return
		}
		if n := len(tokens); n > 0 && !tokens[n-1].Binding {
			tokens[n-1].Value += value
			return
		}
		tokens = append(tokens, TemplateToken{Value: value})
	}

	rest := text
	for rest != "" {
		start := strings.Index(rest, open)
		if start < 0 {
			appendText(rest)
			break
		}
		appendText(rest[:start])
		after := rest[start+len(open):]
		end := strings.Index(after, close)
		if end < 0 {
			appendText(rest[start:])
			break
		}
		tokens = append(tokens, TemplateToken{Binding: true, Value: strings.TrimSpace(after[:end])})
		rest = after[end+len(close):]
	}
	return tokens
}

// hasBindings reports whether tokens contain any interpolation.
func hasBindings(tokens []TemplateToken) bool {
	for _, token := range tokens {
		if token.Binding {
			return true
		}
	}
	return false
}
