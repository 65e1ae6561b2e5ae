package cart

import "encoding/json"

// ErrorLevel ranks cart errors.
type ErrorLevel string

const (
	LevelNotice  ErrorLevel = "notice"
	LevelWarning ErrorLevel = "warning"
	LevelError   ErrorLevel = "error"
)

// Error is a problem reported by a validator.
type Error interface {
	error
	ID() string
	MessageKey() string
	Level() ErrorLevel
	BlockOrder() bool
	Parameters() map[string]any
}

// ErrorCollection holds validation errors keyed by ID; adding an error with an existing ID replaces it.
type ErrorCollection struct {
	items []Error
}

// Add appends err, replacing any earlier error with the same ID.
func (c *ErrorCollection) Add(err Error) {
	for i, existing := range c.items {
		if existing.ID() == err.ID() {
			c.items[i] = err
			return
		}
	}
	c.items = append(c.items, err)
}

// Len returns the number of errors.
func (c ErrorCollection) Len() int { return len(c.items) }

// All returns the errors in insertion order.
func (c ErrorCollection) All() []Error { return append([]Error(nil), c.items...) }

// BlocksOrder reports whether any error prevents checkout.
func (c ErrorCollection) BlocksOrder() bool {
	for _, e := range c.items {
		if e.BlockOrder() {
			return true
		}
	}
	return false
}

type errorView struct {
	ID         string         `json:"id"`
	MessageKey string         `json:"messageKey"`
	Message    string         `json:"message"`
	Level      ErrorLevel     `json:"level"`
	BlockOrder bool           `json:"blockOrder"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// MarshalJSON renders the collection as a list.
func (c ErrorCollection) MarshalJSON() ([]byte, error) {
	out := make([]errorView, 0, len(c.items))
	for _, e := range c.items {
		out = append(out, errorView{
			ID:         e.ID(),
			MessageKey: e.MessageKey(),
			Message:    e.Error(),
			Level:      e.Level(),
			BlockOrder: e.BlockOrder(),
			Parameters: e.Parameters(),
		})
	}
	return json.Marshal(out)
}
