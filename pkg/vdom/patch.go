package vdom

import (
	"fmt"
	"strconv"
	"strings"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText     PatchOp = 0x01 // Update text node content
	PatchSetAttr     PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr  PatchOp = 0x03 // Remove attribute
	PatchInsert      PatchOp = 0x04 // Append new node under the parent path
	PatchRemove      PatchOp = 0x05 // Remove node
	PatchReplace     PatchOp = 0x06 // Replace node entirely
	PatchSetEvent    PatchOp = 0x07 // Bind or rebind an event handler
	PatchRemoveEvent PatchOp = 0x08 // Unbind an event handler
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsert:
		return "Insert"
	case PatchRemove:
		return "Remove"
	case PatchReplace:
		return "Replace"
	case PatchSetEvent:
		return "SetEvent"
	case PatchRemoveEvent:
		return "RemoveEvent"
	default:
		return "Unknown"
	}
}

// Path addresses a node by child indexes from the container. Path{1, 0} is
// the first child of the container's second child.
type Path []int

// String renders the path as "1/0".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

func (p Path) child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Patch represents a single DOM operation to apply.
//
// For PatchInsert the last element of Path is the insert position under the
// parent addressed by the rest of Path.
type Patch struct {
	Op      PatchOp // Operation type
	Path    Path    // Target node
	Key     string  // Attribute name or event type
	Value   string  // New text or attribute value
	Handler Handler // For SetEvent
	Node    *VNode  // For Insert/Replace
}

// String returns a debug form of the patch.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetText:
		return fmt.Sprintf("%s %s %q", p.Op, p.Path, p.Value)
	case PatchSetAttr:
		return fmt.Sprintf("%s %s %s=%q", p.Op, p.Path, p.Key, p.Value)
	case PatchRemoveAttr, PatchSetEvent, PatchRemoveEvent:
		return fmt.Sprintf("%s %s %s", p.Op, p.Path, p.Key)
	case PatchInsert, PatchReplace:
		return fmt.Sprintf("%s %s %s", p.Op, p.Path, p.Node)
	default:
		return fmt.Sprintf("%s %s", p.Op, p.Path)
	}
}
