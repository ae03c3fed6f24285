// Package state implements the hooks-style store behind state bindings.
//
// Each key owns one Binding holding the current and previous value and the
// elements bound to it. Setting a key pushes the new value to every bound
// element through a Sink (the binding layer), emits a Change on the key's
// event bus, and publishes the update to an optional Syncer.
//
//	count := store.UseState("counter", 0)
//	count.Set(func(prev any) any { return prev.(int) + 1 })
//
// A Store is confined to the page's event loop: every method must be called
// from the loop goroutine. Other goroutines hand work over with loop.Post.
package state
