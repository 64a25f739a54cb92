package api

import "github.com/arcletproject/entari-console/internal/instance"

// User is the authenticated operator profile as the backend reports it.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginRequest carries operator credentials.
type LoginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginResult is the login response envelope. Failed logins come back
// with HTTP 200 and Success=false; callers must branch on the flag.
type LoginResult struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Token     string              `json:"token"`
	User      User                `json:"user"`
	Instances []instance.Instance `json:"instances"`
}

// CreateInstanceRequest creates a named instance, optionally seeding its
// backing config file.
type CreateInstanceRequest struct {
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
}

// Plugin is one backend extension module, tracked independently of
// instances and keyed by ID.
type Plugin struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Desc         string         `json:"desc"`
	Version      string         `json:"version"`
	Author       string         `json:"author,omitempty"`
	Status       bool           `json:"status"`
	Builtin      bool           `json:"builtin,omitempty"`
	Configurable bool           `json:"configurable,omitempty"`
	Installed    bool           `json:"installed"`
	Config       map[string]any `json:"config,omitempty"`
}

// NetworkConfig is one connection endpoint in the global bot config.
type NetworkConfig struct {
	Type  string `json:"type" yaml:"type"`
	Host  string `json:"host" yaml:"host"`
	Port  int    `json:"port" yaml:"port"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// LogSaveConfig controls on-disk log retention.
type LogSaveConfig struct {
	Enable      bool   `json:"enable" yaml:"enable"`
	Rotation    string `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Compression string `json:"compression,omitempty" yaml:"compression,omitempty"`
	Colorize    *bool  `json:"colorize,omitempty" yaml:"colorize,omitempty"`
}

// LogConfig is the runtime's logging section.
type LogConfig struct {
	Level   string         `json:"level" yaml:"level"`
	Ignores []string       `json:"ignores,omitempty" yaml:"ignores,omitempty"`
	Save    *LogSaveConfig `json:"save,omitempty" yaml:"save,omitempty"`
}

// BasicConfig is the runtime's basic section.
type BasicConfig struct {
	Network           []NetworkConfig `json:"network" yaml:"network"`
	IgnoreSelfMessage bool            `json:"ignore_self_message" yaml:"ignore_self_message"`
	Log               LogConfig       `json:"log" yaml:"log"`
	Prefix            []string        `json:"prefix" yaml:"prefix"`
	SkipReqMissing    *bool           `json:"skip_req_missing,omitempty" yaml:"skip_req_missing,omitempty"`
	CmdCount          int             `json:"cmd_count,omitempty" yaml:"cmd_count,omitempty"`
	ExternalDirs      []string        `json:"external_dirs,omitempty" yaml:"external_dirs,omitempty"`
}

// Config is the global runtime configuration. Plugin sections are
// heterogeneous per plugin, so they stay untyped.
type Config struct {
	Basic   BasicConfig    `json:"basic" yaml:"basic"`
	Plugins map[string]any `json:"plugins" yaml:"plugins"`
}

// SaveResult acknowledges a config write.
type SaveResult struct {
	Success bool `json:"success"`
}
