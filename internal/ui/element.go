package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemElement is an in-memory Element.
type MemElement struct {
	mu       sync.RWMutex
	text     string
	class    string
	disabled bool
	style    map[string]string
	attrs    map[string]string
}

func NewMemElement(text string) *MemElement {
	return &MemElement{
		text:  text,
		style: make(map[string]string),
		attrs: make(map[string]string),
	}
}

func (e *MemElement) SetText(text string) {
	e.mu.Lock()
	e.text = text
	e.mu.Unlock()
}

func (e *MemElement) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.text
}

func (e *MemElement) SetClass(class string) {
	e.mu.Lock()
	e.class = class
	e.mu.Unlock()
}

func (e *MemElement) Class() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.class
}

func (e *MemElement) SetStyle(property, value string) {
	e.mu.Lock()
	e.style[property] = value
	e.mu.Unlock()
}

func (e *MemElement) Style(property string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.style[property]
}

func (e *MemElement) SetDisabled(disabled bool) {
	e.mu.Lock()
	e.disabled = disabled
	e.mu.Unlock()
}

func (e *MemElement) Disabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.disabled
}

func (e *MemElement) SetAttribute(name, value string) {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
}

func (e *MemElement) Attribute(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.attrs[name]
}

// Visible reports whether display is anything but "none".
func (e *MemElement) Visible() bool {
	return e.Style(displayStyleProperty) != "none"
}

// Snapshot is a JSON-friendly copy of an element's state.
type Snapshot struct {
	Text     string `json:"text"`
	Class    string `json:"class"`
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
}

func (e *MemElement) Snapshot() Snapshot {
	return Snapshot{
		Text:     e.Text(),
		Class:    e.Class(),
		Visible:  e.Visible(),
		Disabled: e.Disabled(),
	}
}

// TermElement prints a line to w each time it becomes visible, which is
// how a message element surfaces on a terminal.
type TermElement struct {
	*MemElement
	w io.Writer
}

func NewTermElement(w io.Writer) *TermElement {
	return &TermElement{MemElement: NewMemElement(""), w: w}
}

func (e *TermElement) SetStyle(property, value string) {
	e.MemElement.SetStyle(property, value)
	if property == displayStyleProperty && value == "block" {
		kind := strings.TrimSpace(strings.TrimPrefix(e.Class(), "message"))
		if kind == "" {
			kind = ClassInfo
		}
		fmt.Fprintf(e.w, "[%s] %s\n", kind, e.Text())
	}
}
