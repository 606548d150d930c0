// Package web holds static assets served by the chat service.
package web

import _ "embed"

// WidgetJS is the embeddable widget script served at /widget.js.
//
//go:embed widget.js
var WidgetJS []byte
