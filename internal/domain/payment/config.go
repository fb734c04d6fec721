package payment

import (
	"strings"

	"github.com/shoply/backend/internal/domain/shared"
)

// ValueSource identifies where a selector resolves its value from
type ValueSource string

const (
	// SourceOptions resolves a value by direct key lookup in the option set
	SourceOptions ValueSource = "options"
	// SourceTemplate resolves a value by string interpolation against the context
	SourceTemplate ValueSource = "template"
	// SourceExpression resolves a value by evaluating a sandboxed expression
	SourceExpression ValueSource = "expression"
)

// DataRef names an alternate value source selected by a matching condition
type DataRef struct {
	From     ValueSource `json:"from"`
	Selector string      `json:"selector"`
}

// SelectorCondition is a declarative predicate attached to a selector.
// When it matches, its Data ref overrides the selector's From/Selector.
type SelectorCondition struct {
	Condition ConditionKind `json:"condition"`
	Selector  string        `json:"selector"`
	Value     any           `json:"value,omitempty"`
	Data      DataRef       `json:"data"`
}

// Selector is the declarative descriptor for deriving one field of an
// outbound request from the runtime context.
type Selector struct {
	Field      string              `json:"field"`
	From       ValueSource         `json:"from"`
	Selector   string              `json:"selector"`
	Conditions []SelectorCondition `json:"conditions,omitempty"`
}

// SuccessCondition is a declarative predicate evaluated against a provider
// response. Message is shown to callers when the condition fails; it is the
// merchant-localized text stored with the config row.
type SuccessCondition struct {
	Condition ConditionKind `json:"condition"`
	Selector  string        `json:"selector"`
	Value     any           `json:"value,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// ResponseSelector extracts one result field from a provider response.
// An empty From means a direct path lookup into the response tree.
type ResponseSelector struct {
	Field    string      `json:"field"`
	From     ValueSource `json:"from,omitempty"`
	Selector string      `json:"selector"`
}

// RequestEncoding selects the wire encoding of the request body
type RequestEncoding string

const (
	// EncodingJSON sends the body as application/json (the default)
	EncodingJSON RequestEncoding = "json"
	// EncodingForm sends the body as application/x-www-form-urlencoded
	EncodingForm RequestEncoding = "form"
)

// RequestParams describes how to build and evaluate one request shape
// (auth, create or check) for a provider.
type RequestParams struct {
	URI                string             `json:"uri"`
	Method             string             `json:"method"`
	Encoding           RequestEncoding    `json:"encoding,omitempty"`
	Selectors          []Selector         `json:"selectors"`
	Headers            []Selector         `json:"headers,omitempty"`
	Conditions         []SuccessCondition `json:"conditions,omitempty"`
	ResponseSelectors  []ResponseSelector `json:"response_selectors,omitempty"`
	SensitiveSelectors []string           `json:"sensitive_selectors,omitempty"`
}

// Option is one configured key/value for a provider. Sensitive options are
// stored encrypted and are never echoed in API responses.
type Option struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Sensitive bool   `json:"sensitive"`
}

// ProviderConfig is the persisted, declarative description of one payment
// network integration. It is read-only to this core; admin CRUD edits it
// out-of-band.
type ProviderConfig struct {
	shared.BaseEntity
	UID          Provider       `gorm:"type:varchar(32);uniqueIndex;not null"`
	APIURL       string         `gorm:"column:api_url;not null"`
	AuthParams   *RequestParams `gorm:"serializer:json"`
	CreateParams RequestParams  `gorm:"serializer:json;not null"`
	CheckParams  RequestParams  `gorm:"serializer:json;not null"`
	Options      []Option       `gorm:"serializer:json"`
}

// TableName returns the table name for GORM
func (ProviderConfig) TableName() string {
	return "provider_configs"
}

// ParamsFor returns the request params for the given action
func (c *ProviderConfig) ParamsFor(action Action) (*RequestParams, error) {
	switch action {
	case ActionAuth:
		if c.AuthParams == nil {
			return nil, ErrActionNotConfigured
		}
		return c.AuthParams, nil
	case ActionCreateInvoice:
		return &c.CreateParams, nil
	case ActionCheckInvoice:
		return &c.CheckParams, nil
	default:
		return nil, ErrActionNotConfigured
	}
}

// OptionValue returns the value of an option by key
func (c *ProviderConfig) OptionValue(key string) (string, bool) {
	for _, opt := range c.Options {
		if opt.Key == key {
			return opt.Value, true
		}
	}
	return "", false
}

// OptionsMap returns the options as a flat map
func (c *ProviderConfig) OptionsMap() map[string]string {
	m := make(map[string]string, len(c.Options))
	for _, opt := range c.Options {
		m[opt.Key] = opt.Value
	}
	return m
}

// Sanitized returns a copy with sensitive option values blanked. Used when
// a config row must leave this core (admin listings, diagnostics).
func (c *ProviderConfig) Sanitized() *ProviderConfig {
	clone := *c
	clone.Options = make([]Option, len(c.Options))
	for i, opt := range c.Options {
		if opt.Sensitive {
			opt.Value = maskedValue
		}
		clone.Options[i] = opt
	}
	return &clone
}

// Context carries the runtime inputs a request is built from: the provider's
// base URL, the merged option set (config options, decrypted merchant options
// and cached credentials) and per-call extras such as amount and bill_no.
// Each call gets its own Context; nothing here is shared state.
type Context struct {
	APIURL  string
	Options map[string]string
	Extra   map[string]any
}

// NewContext creates a Context with initialized maps
func NewContext(apiURL string) *Context {
	return &Context{
		APIURL:  apiURL,
		Options: make(map[string]string),
		Extra:   make(map[string]any),
	}
}

// MergeOptions overlays the given options onto the context
func (c *Context) MergeOptions(opts map[string]string) {
	for k, v := range opts {
		c.Options[k] = v
	}
}

// SetExtra sets one per-call extra value
func (c *Context) SetExtra(key string, value any) {
	c.Extra[key] = value
}

// Lookup resolves a dotted path against the context. Root segments:
// "api_url" is the provider base URL, "options.<key>" is an option lookup,
// anything else walks the extra tree (including "response" after a call).
func (c *Context) Lookup(path string) (any, bool) {
	segs := strings.Split(path, ".")
	switch segs[0] {
	case "api_url":
		if len(segs) == 1 {
			return c.APIURL, true
		}
		return nil, false
	case "options":
		if len(segs) == 2 {
			v, ok := c.Options[segs[1]]
			return v, ok
		}
		return nil, false
	default:
		return lookupTree(c.Extra, segs)
	}
}

// lookupTree walks nested string-keyed maps
func lookupTree(tree map[string]any, segs []string) (any, bool) {
	var cur any = tree
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
