package xml

import (
	"github.com/fiscalfacil/audit-service/internal/model"
)

// Layout parses one municipal XML layout into the canonical Invoice.
type Layout interface {
	// Parse parses normalized UTF-8 content. original carries the bytes
	// as uploaded, retained on the record for the audit trail.
	Parse(content, original []byte) (*model.Invoice, error)

	// CanParse returns true if the layout recognizes this content
	CanParse(content []byte) bool

	// Name returns the layout name
	Name() string
}

// Registry holds all registered layouts.
// Layout drift across municipalities is the dominant real-world failure
// mode, so unrecognized content must come back as a structured error,
// never a fault.
type Registry struct {
	layouts []Layout
}

// NewRegistry creates a registry with the layouts shipped by default
func NewRegistry() *Registry {
	return &Registry{
		layouts: []Layout{
			NewNFSDLayout(),
		},
	}
}

// Register adds a custom layout. Custom layouts take priority over the
// built-in ones.
func (r *Registry) Register(l Layout) {
	r.layouts = append([]Layout{l}, r.layouts...)
}

// Detect identifies the layout of decoded content
func (r *Registry) Detect(content []byte) (Layout, error) {
	for _, l := range r.layouts {
		if l.CanParse(content) {
			return l, nil
		}
	}
	return nil, model.NewParseError(model.ParseErrUnrecognizedLayout, "document",
		"unknown XML layout, check that this is a municipal service invoice", nil)
}

// Parse decodes raw bytes and parses them with the matching layout.
// Every failure is a *model.ParseError.
func (r *Registry) Parse(raw []byte) (*model.Invoice, error) {
	content, err := decode(raw)
	if err != nil {
		return nil, err
	}
	layout, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return layout.Parse(content, raw)
}
