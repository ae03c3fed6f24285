// Package format resolves the display transforms named by format attributes.
//
// A format attribute is resolved in order against:
//
//  1. a named formatter registered with Register,
//  2. a plain function registered with RegisterFunc,
//  3. an inline expression prefixed with "js:".
//
// Inline expressions use a small, side-effect free language: literals,
// the bound value as value, member access, arithmetic, comparison, logical
// operators, the ternary operator, string concatenation with +, and calls
// to the built-in functions (upper, lower, trim, title, number, fixed, json,
// len, string, html). Nothing else is reachable from an expression.
//
//	<span state-binding="price" format="js:value > 0 ? '$' + fixed(value, 2) : 'free'"></span>
package format
