// Package extractor decides whether an element in a parsed HTML document is a
// fillable form field and, when it is, derives a FieldContext from it.
//
// Documents are parsed with goquery on top of golang.org/x/net/html and stay
// live: Extract always reads attributes at call time, and Apply mutates the
// tree and dispatches "input" and "change" events to registered listeners so
// observers can react to the new value.
//
// Label discovery is a fixed chain, first structural match wins:
//  1. <label for="ID"> pointing at the field's id
//  2. an ancestor <label> wrapping the field, the field's own text excluded
//  3. the immediately preceding sibling when it is a <label>
//  4. the element(s) referenced by aria-labelledby
//
// Example Usage:
//
//	doc, err := extractor.LoadString(page)
//	ctx, ok := doc.Extract("bio")
//	if ok {
//	    doc.Apply("bio", "Gopher and part-time baker.")
//	}
package extractor
