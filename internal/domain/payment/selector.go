package payment

import (
	"fmt"
	"strings"
)

// BuildParams interprets a selector list against a runtime context and
// returns the resulting value tree. This single interpreter replaces one
// bespoke integration per provider; providers differ only by config row.
func BuildParams(selectors []Selector, ctx *Context) (map[string]any, error) {
	root := make(map[string]any)
	for _, sel := range selectors {
		if err := applySelector(root, sel, ctx); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// BuildHeaders builds a flat header map from header selectors
func BuildHeaders(selectors []Selector, ctx *Context) (map[string]string, error) {
	tree, err := BuildParams(selectors, ctx)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(tree))
	for k, v := range tree {
		headers[k] = stringify(v)
	}
	return headers, nil
}

// applySelector resolves one selector and writes its value into the tree
func applySelector(root map[string]any, sel Selector, ctx *Context) error {
	segs := strings.Split(sel.Field, ".")
	node := root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg]
		if !ok {
			next := make(map[string]any)
			node[seg] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("payment: field %q collides with a scalar at %q", sel.Field, seg)
		}
		node = next
	}

	from, source := sel.From, sel.Selector
	// Conditions are evaluated in declaration order and the FIRST match wins.
	// Config rows rely on this precedence; later matches must not override.
	for _, cond := range sel.Conditions {
		probe, _ := ctx.Lookup(cond.Selector)
		if CheckCondition(cond.Condition, probe, cond.Value) {
			from, source = cond.Data.From, cond.Data.Selector
			break
		}
	}

	value, err := resolveValue(from, source, ctx)
	if err != nil {
		return fmt.Errorf("payment: field %q: %w", sel.Field, err)
	}
	node[segs[len(segs)-1]] = value
	return nil
}

// resolveValue resolves a value from one of the three selector sources
func resolveValue(from ValueSource, selector string, ctx *Context) (any, error) {
	switch from {
	case SourceOptions:
		v, ok := ctx.Options[selector]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrOptionMissing, selector)
		}
		return v, nil
	case SourceTemplate:
		return Interpolate(selector, ctx)
	case SourceExpression:
		return EvalExpression(selector, ctx)
	default:
		return nil, fmt.Errorf("payment: unknown value source %q", from)
	}
}

// ExtractFields applies response selectors to a context whose extra tree
// holds the decoded response (under "response"). Returns the flat result map
// used for invoice fields or auth credentials.
func ExtractFields(selectors []ResponseSelector, ctx *Context) (map[string]any, error) {
	out := make(map[string]any, len(selectors))
	for _, sel := range selectors {
		var (
			v   any
			err error
		)
		switch sel.From {
		case SourceTemplate, SourceExpression, SourceOptions:
			v, err = resolveValue(sel.From, sel.Selector, ctx)
		default:
			// Direct path lookup into the response tree; absent paths
			// yield nil so optional fields stay optional.
			v, _ = ctx.Lookup(sel.Selector)
		}
		if err != nil {
			return nil, fmt.Errorf("payment: response field %q: %w", sel.Field, err)
		}
		out[sel.Field] = v
	}
	return out, nil
}

// EvaluateConditions runs declarative predicates against the context.
// With all=true every condition must match (success checks); with all=false
// one match suffices (auth validity checks). The first failing condition is
// returned so its localized message can surface.
func EvaluateConditions(conds []SuccessCondition, ctx *Context, all bool) (bool, *SuccessCondition) {
	for i := range conds {
		probe, _ := ctx.Lookup(conds[i].Selector)
		matched := CheckCondition(conds[i].Condition, probe, conds[i].Value)
		if all && !matched {
			return false, &conds[i]
		}
		if !all && matched {
			return true, nil
		}
	}
	// all=true over an empty list is vacuously satisfied; any-match over an
	// empty list is not, so an auth block without validity conditions always
	// refreshes.
	return all, nil
}
