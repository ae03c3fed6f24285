// Package binding connects the declarative attribute protocol in markup to
// the state store and the renderer.
//
// Elements declare a key with state-binding and an optional display
// transform with format:
//
//	<span state-binding="total" format="number"></span>
//	<input state-binding="query">
//
// The Binder implements state.Sink. Form controls are written directly and
// get two-way sync; every other element is rendered through the batched
// renderer. After any bulk DOM replacement the owner calls Mount so new
// markup is bound and removed elements are released.
package binding
