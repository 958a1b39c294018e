// Package schema provides the declarative form model used by every tool page.
//
// A Form is an ordered list of Fields. Each field has a Kind (text, number,
// select, radio, checkbox, multiselect or a repeatable group) and a small set
// of rules (required, positive, min/max, minimum entries). Selection fields
// bind to a backend options key so their allowed values come from the options
// fetched on mount.
//
// Basic usage:
//
//	form := schema.Form{Fields: []schema.Field{
//	    {Name: "carrier", Kind: schema.KindSelect, Required: true},
//	    {Name: "numberOfLabels", Kind: schema.KindNumber, Required: true, Positive: true},
//	}}
//
//	data := schema.Decode(form, r.PostForm)
//	if err := schema.Validate(form, data, state.Options); err != nil {
//	    messages := schema.FieldErrors(err) // "numberOfLabels" -> "must be a positive number"
//	}
//
// Validation never stops at the first failure: all field errors are collected
// into an AggregateError so a form can show every inline message at once.
package schema
