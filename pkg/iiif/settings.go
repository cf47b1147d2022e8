package iiif

import "sync/atomic"

// Settings are the base URLs the generated ids are built from.
type Settings struct {
	ResourceBaseURL     string
	AnnoPageBaseURL     string
	AnnotationBaseURL   string
	SearchBaseURL       string
	AnnoPageDirectory   string
	AnnotationDirectory string
}

// SettingsHolder shares Settings between request handlers and a config
// watcher that replaces them.
type SettingsHolder struct {
	v atomic.Pointer[Settings]
}

// NewSettingsHolder returns a holder initialized with s.
func NewSettingsHolder(s Settings) *SettingsHolder {
	h := &SettingsHolder{}
	h.Store(s)
	return h
}

// Load returns the current settings.
func (h *SettingsHolder) Load() Settings {
	return *h.v.Load()
}

// Store replaces the settings.
func (h *SettingsHolder) Store(s Settings) {
	h.v.Store(&s)
}
