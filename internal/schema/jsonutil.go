// Package schema holds the on-disk JSON models shared by the inbox
// engine, daemon, and CLI: messages, team configuration, members, tasks,
// and settings. Every type here round-trips any field it doesn't know
// about, so an older atm binary never corrupts data written by a newer
// one (or by Claude Code itself, for settings.json).
package schema

import "encoding/json"

// splitKnown unmarshals data into a map and removes the keys in known,
// returning whatever remains. Callers decode the known fields themselves
// (typically via a private alias struct) and stash the remainder as
// unknown fields for later round-trip.
func splitKnown(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	return raw, nil
}

// mergeUnknown marshals alias (a struct carrying only the known fields)
// to JSON, then merges in the unknown fields without letting them shadow
// a known one, and returns the combined object.
func mergeUnknown(alias interface{}, unknown map[string]json.RawMessage) ([]byte, error) {
	knownJSON, err := json.Marshal(alias)
	if err != nil {
		return nil, err
	}
	if len(unknown) == 0 {
		return knownJSON, nil
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(knownJSON, &merged); err != nil {
		return nil, err
	}
	for k, v := range unknown {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
