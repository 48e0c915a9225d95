// Package preview renders a booking page settings snapshot into a
// framework-neutral element tree that a client can paint.
package preview

// Node kinds emitted by the renderer.
const (
	KindCard         = "card"
	KindDialog       = "dialog"
	KindPage         = "page"
	KindHeader       = "header"
	KindLogo         = "logo"
	KindTitle        = "title"
	KindText         = "text"
	KindSection      = "section"
	KindProgress     = "progress"
	KindProgressItem = "progress_item"
	KindStep         = "step"
	KindButton       = "button"
	KindConfirmation = "confirmation"

	KindServicePicker      = "service_picker"
	KindDateTimePicker     = "datetime_picker"
	KindClientForm         = "client_form"
	KindPaymentPlaceholder = "payment_placeholder"
)

// Node is one element of the rendered tree.
type Node struct {
	Kind     string            `json:"kind"`
	Key      string            `json:"key,omitempty"`
	Text     string            `json:"text,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

func newNode(kind, key, text string) *Node {
	return &Node{Kind: kind, Key: key, Text: text}
}

func (n *Node) prop(k, v string) *Node {
	if n.Props == nil {
		n.Props = make(map[string]string)
	}
	n.Props[k] = v
	return n
}

func (n *Node) add(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// Find returns the first node of kind in depth-first order, or nil.
func (n *Node) Find(kind string) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(kind); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every node of kind in depth-first order.
func (n *Node) FindAll(kind string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur == nil {
			return
		}
		if cur.Kind == kind {
			out = append(out, cur)
		}
		for _, c := range cur.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// EnabledStepIDs returns the step ids shown by a rendered tree, in display order.
// For a stepped layout this is the progress indicator; for all-in-one it is the
// list of step sections.
func EnabledStepIDs(root *Node) []string {
	var ids []string
	if progress := root.Find(KindProgress); progress != nil {
		for _, item := range progress.Children {
			ids = append(ids, item.Key)
		}
		return ids
	}
	for _, step := range root.FindAll(KindStep) {
		ids = append(ids, step.Key)
	}
	return ids
}
