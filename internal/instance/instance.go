// Package instance defines the canonical record for one managed bot
// connection and the merge rules used to fold partial server responses
// into the in-memory list.
package instance

import (
	"fmt"
	"strings"
)

// Lifecycle labels reported by the backend. State is free text on the wire;
// these are the values the console itself writes.
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// Defaults applied to optional fields when a brand-new instance is created
// from a partial record.
const (
	DefaultLogLevel = "INFO"
	DefaultPrefix   = "/"
)

// Instance represents one managed backend connection.
type Instance struct {
	ID                int            `json:"id"`
	UserID            int            `json:"user_id,omitempty"`
	Name              string         `json:"name"`
	Type              string         `json:"type"`
	Host              string         `json:"host"`
	Port              int            `json:"port"`
	Path              string         `json:"path"`
	IgnoreSelfMessage bool           `json:"ignoreSelfMessage"`
	LogLevel          string         `json:"logLevel"`
	Prefix            string         `json:"prefix"`
	CreatedAt         string         `json:"created_at"`
	Filename          string         `json:"filename"`
	State             string         `json:"state"`
	Plugins           []string       `json:"plugins"`
	Config            map[string]any `json:"config,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the stored slice or map.
func (i Instance) Clone() Instance {
	out := i
	if i.Plugins != nil {
		out.Plugins = append([]string(nil), i.Plugins...)
	}
	if i.Config != nil {
		out.Config = make(map[string]any, len(i.Config))
		for k, v := range i.Config {
			out.Config[k] = v
		}
	}
	return out
}

// Partial is a server-reported instance record where any field may be
// absent. Nil means "not supplied"; the merge rules decide what absence
// falls back to.
type Partial struct {
	ID                *int            `json:"id"`
	UserID            *int            `json:"user_id"`
	Name              *string         `json:"name"`
	Type              *string         `json:"type"`
	Host              *string         `json:"host"`
	Port              *int            `json:"port"`
	Path              *string         `json:"path"`
	IgnoreSelfMessage *bool           `json:"ignoreSelfMessage"`
	LogLevel          *string         `json:"logLevel"`
	Prefix            *string         `json:"prefix"`
	CreatedAt         *string         `json:"created_at"`
	Filename          *string         `json:"filename"`
	State             *string         `json:"state"`
	Plugins           *[]string       `json:"plugins"`
	Config            *map[string]any `json:"config"`
}

// MissingFieldsError reports a partial record that tried to create a new
// instance without the identity fields that have no safe default.
type MissingFieldsError struct {
	ID     int
	Fields []string
}

func (e MissingFieldsError) Error() string {
	return fmt.Sprintf("instance %d: partial record missing required fields: %s",
		e.ID, strings.Join(e.Fields, ", "))
}
