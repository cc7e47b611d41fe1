// Package provider implements machine-translation backends for gotmt.
package provider

import "github.com/ZaguanLabs/gotmt"

// Provider is an alias to the main package interface for convenience.
type Provider = gotmt.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = gotmt.TranslateRequest
