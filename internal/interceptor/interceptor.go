// internal/interceptor/interceptor.go

// Package interceptor captures history API responses inside the host page and
// delivers them to Go as typed messages.
package interceptor

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/valpere/ActivityScrapexter/internal/utils"
)

const (
	// DefaultEndpointPattern identifies history API requests.
	DefaultEndpointPattern = "batchexecute"
	// DefaultBinding is the runtime binding the page script calls.
	DefaultBinding = "__activityScrapexterForward"
)

//go:embed inject.js
var injectSource string

// Script renders the page script for the given endpoint pattern and binding
// name. Both values are embedded as JavaScript string literals.
func Script(endpointPattern, binding string) (string, error) {
	if endpointPattern == "" {
		endpointPattern = DefaultEndpointPattern
	}
	if binding == "" {
		binding = DefaultBinding
	}

	endpoint, err := sonic.MarshalString(endpointPattern)
	if err != nil {
		return "", fmt.Errorf("failed to quote endpoint pattern: %w", err)
	}
	name, err := sonic.MarshalString(binding)
	if err != nil {
		return "", fmt.Errorf("failed to quote binding name: %w", err)
	}

	return strings.NewReplacer("__ENDPOINT__", endpoint, "__BINDING__", name).Replace(injectSource), nil
}

// Matches reports whether url belongs to the history endpoint. It mirrors the
// check done by the page script.
func Matches(url, pattern string) bool {
	if pattern == "" {
		pattern = DefaultEndpointPattern
	}
	return strings.Contains(url, pattern)
}

// Kind distinguishes message types on the port.
type Kind string

const (
	KindPayload Kind = "payload"
	KindReady   Kind = "ready"
)

// Message is the envelope posted by the page script.
type Message struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload"`
	Source  string `json:"source"`
	URL     string `json:"url"`
}

// Forwarder decodes binding calls and pushes them onto a port.
type Forwarder struct {
	binding string
	port    *Port
	logger  utils.Logger
}

// NewForwarder creates a forwarder for the named binding.
func NewForwarder(binding string, port *Port, logger utils.Logger) *Forwarder {
	if binding == "" {
		binding = DefaultBinding
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Forwarder{
		binding: binding,
		port:    port,
		logger:  logger.WithField("component", "interceptor"),
	}
}

// Binding returns the binding name the page script must call.
func (f *Forwarder) Binding() string {
	return f.binding
}

// HandleBinding processes one binding call. Calls for other bindings are
// ignored; malformed envelopes are logged and dropped. It never blocks.
func (f *Forwarder) HandleBinding(name, raw string) bool {
	if name != f.binding {
		return false
	}

	var msg Message
	if err := sonic.UnmarshalString(raw, &msg); err != nil {
		f.logger.Warnf("dropping malformed interceptor message: %v", err)
		return false
	}

	switch msg.Kind {
	case KindPayload, KindReady:
	default:
		f.logger.WithField("kind", string(msg.Kind)).Warn("dropping interceptor message of unknown kind")
		return false
	}

	if !f.port.Send(msg) {
		f.logger.Debug("port closed, dropping interceptor message")
		return false
	}
	return true
}
