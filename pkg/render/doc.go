// Package render commits virtual DOM trees into a live document.
//
// A Renderer keeps the last committed root list per container. The first
// render into a container clears it, discarding server-rendered markup, and
// mounts the new tree. Later renders are diffed positionally and only the
// resulting patches touch the DOM.
//
// # Batching
//
// Render queues work per container and schedules one flush on the page's
// microtask queue. Renders for the same container within one turn collapse
// to the last one queued; renders for different containers all commit in
// the same flush, in no particular order. Pass Sync() to commit immediately:
//
//	r.Render(vdom.Text("saved"), status, render.Sync())
//
// # Errors
//
// Commit failures are logged per container and never stop the flush of
// other containers. A patch whose target path no longer exists falls back
// to a full remount of that container.
package render
