package tether

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

var (
	// ErrUnknownBinder indicates a directive that resolved to no binder and no
	// fallback is registered.
	ErrUnknownBinder = errors.New("tether: unknown binder")
	// ErrUnknownFormatter indicates a pipeline naming an unregistered formatter.
	ErrUnknownFormatter = errors.New("tether: unknown formatter")
	// ErrMalformedDirective indicates a directive value that cannot be parsed.
	ErrMalformedDirective = errors.New("tether: malformed directive")
	// ErrBlockConflict indicates two block binders claiming the same node.
	ErrBlockConflict = errors.New("tether: node claimed by more than one block binder")
)

// BuildError captures the node and attribute a build failure originated from.
type BuildError struct {
	Node      *html.Node
	Attribute string
	Err       error
}

func (e *BuildError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("tether: build %s %s: %v", describeNode(e.Node), describeAttribute(e.Attribute), e.Err)
}

func (e *BuildError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeNode(node *html.Node) string {
	return "node=" + nodeLabel(node)
}

func nodeLabel(node *html.Node) string {
	if node == nil {
		return "<nil>"
	}
	switch node.Type {
	case html.TextNode:
		return "#text"
	case html.ElementNode:
		return fmt.Sprintf("<%s>", node.Data)
	case html.CommentNode:
		return "#comment"
	default:
		return "#fragment"
	}
}

func describeAttribute(attr string) string {
	if attr == "" {
		return "attr=<none>"
	}
	return fmt.Sprintf("attr=%q", attr)
}

func wrapBuildError(node *html.Node, attr string, err error) error {
	if err == nil {
		return nil
	}

	var buildErr *BuildError
	if errors.As(err, &buildErr) {
		if buildErr.Node == nil {
			buildErr.Node = node
		}
		if buildErr.Attribute == "" {
			buildErr.Attribute = attr
		}
		return buildErr
	}

	return &BuildError{
		Node:      node,
		Attribute: attr,
		Err:       err,
	}
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("tether: %s evaluator %s: %v", e.Engine, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "tether:") {
		return err
	}
	return fmt.Errorf("tether: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Err:    err,
	}
}
