//go:build js && wasm

// Package dom adapts DOM elements to ui.Element.
package dom

import (
	"context"
	"syscall/js"
)

type Element struct{ v js.Value }

// ByID looks up an element by id. ok is false when it does not exist.
func ByID(id string) (*Element, bool) {
	v := js.Global().Get("document").Call("getElementById", id)
	if v.IsNull() || v.IsUndefined() {
		return nil, false
	}
	return &Element{v: v}, true
}

func Wrap(v js.Value) *Element { return &Element{v: v} }

func (e *Element) Value() js.Value { return e.v }

func (e *Element) SetText(text string)   { e.v.Set("textContent", text) }
func (e *Element) Text() string          { return e.v.Get("textContent").String() }
func (e *Element) SetClass(class string) { e.v.Set("className", class) }

func (e *Element) SetStyle(property, value string) {
	e.v.Get("style").Set(property, value)
}

func (e *Element) SetDisabled(disabled bool) { e.v.Set("disabled", disabled) }

func (e *Element) SetAttribute(name, value string) {
	e.v.Call("setAttribute", name, value)
}

func (e *Element) Attribute(name string) string {
	a := e.v.Call("getAttribute", name)
	if a.IsNull() {
		return ""
	}
	return a.String()
}

// InputValue reads the value of an <input>.
func (e *Element) InputValue() string { return e.v.Get("value").String() }

// Navigator assigns window.location.href.
type Navigator struct{}

func (Navigator) Navigate(_ context.Context, url string) error {
	js.Global().Get("window").Get("location").Set("href", url)
	return nil
}
