package instance

import (
	"errors"
	"time"
)

// ErrMissingID indicates a partial record without an id, which cannot be
// matched against the canonical list at all.
var ErrMissingID = errors.New("instance: partial record has no id")

// timeNow is swapped out in tests.
var timeNow = time.Now

// Merge folds a partial server-reported record into a snapshot of the
// canonical list and returns the updated list. The input slice is never
// modified.
//
// The merged record is built in three layers, later layers winning:
//  1. documented defaults for every optional field,
//  2. the previously stored record when an entry with the same id exists,
//  3. the fields actually present on the partial.
//
// A matching id replaces the entry in place; otherwise the record is
// appended. A brand-new instance must carry every identity field
// (name, type, host, port, filename); there is no safe value to invent
// for those, so their absence is returned as a MissingFieldsError.
func Merge(list []Instance, p Partial) ([]Instance, error) {
	if p.ID == nil {
		return nil, ErrMissingID
	}
	id := *p.ID

	idx := -1
	for i := range list {
		if list[i].ID == id {
			idx = i
			break
		}
	}

	var base Instance
	if idx >= 0 {
		base = list[idx].Clone()
	} else {
		if missing := missingIdentityFields(p); len(missing) > 0 {
			return nil, MissingFieldsError{ID: id, Fields: missing}
		}
		base = Instance{
			ID:                id,
			Path:              "",
			IgnoreSelfMessage: true,
			LogLevel:          DefaultLogLevel,
			Prefix:            DefaultPrefix,
			CreatedAt:         timeNow().UTC().Format(time.RFC3339),
			State:             StateStopped,
			Plugins:           []string{},
		}
	}

	applyPartial(&base, p)

	out := make([]Instance, len(list), len(list)+1)
	copy(out, list)
	if idx >= 0 {
		out[idx] = base
	} else {
		out = append(out, base)
	}
	return out, nil
}

func missingIdentityFields(p Partial) []string {
	var missing []string
	if p.Name == nil {
		missing = append(missing, "name")
	}
	if p.Type == nil {
		missing = append(missing, "type")
	}
	if p.Host == nil {
		missing = append(missing, "host")
	}
	if p.Port == nil {
		missing = append(missing, "port")
	}
	if p.Filename == nil {
		missing = append(missing, "filename")
	}
	return missing
}

// applyPartial overrides base with every field present on p. Explicit
// values always win, including over values stored at the same id.
func applyPartial(base *Instance, p Partial) {
	if p.UserID != nil {
		base.UserID = *p.UserID
	}
	if p.Name != nil {
		base.Name = *p.Name
	}
	if p.Type != nil {
		base.Type = *p.Type
	}
	if p.Host != nil {
		base.Host = *p.Host
	}
	if p.Port != nil {
		base.Port = *p.Port
	}
	if p.Path != nil {
		base.Path = *p.Path
	}
	if p.IgnoreSelfMessage != nil {
		base.IgnoreSelfMessage = *p.IgnoreSelfMessage
	}
	if p.LogLevel != nil {
		base.LogLevel = *p.LogLevel
	}
	if p.Prefix != nil {
		base.Prefix = *p.Prefix
	}
	if p.CreatedAt != nil {
		base.CreatedAt = *p.CreatedAt
	}
	if p.Filename != nil {
		base.Filename = *p.Filename
	}
	if p.State != nil {
		base.State = *p.State
	}
	if p.Plugins != nil {
		base.Plugins = append([]string(nil), (*p.Plugins)...)
	}
	if p.Config != nil {
		base.Config = make(map[string]any, len(*p.Config))
		for k, v := range *p.Config {
			base.Config[k] = v
		}
	}
}
