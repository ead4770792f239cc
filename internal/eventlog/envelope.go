package eventlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/CLIAIMONITOR/internal/types"
)

// hashEnvelope computes event_hash = sha256(canonical_json(envelope with
// event_hash omitted)), hex-encoded. prev must already be set on env.
func hashEnvelope(env types.Event) (string, error) {
	env.EventHash = ""
	data, err := canonicalJSON(env)
	if err != nil {
		return "", err
	}
	// canonicalJSON round-trips through a generic map/interface decode,
	// which drops the empty event_hash key entirely only if the struct
	// tag omits it on empty -- it does not, so strip it from the decoded
	// map form before hashing to match the "field omitted" wording of the
	// chain law exactly.
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &asMap); err != nil {
		return "", err
	}
	delete(asMap, "event_hash")
	final, err := canonicalJSON(asMap)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(final)
	return hex.EncodeToString(sum[:]), nil
}

// chainNext fills in prev_event_hash and event_hash for the next envelope
// in a file given the previous event's hash (nil for the first event).
func chainNext(env types.Event, prevHash *string) (types.Event, error) {
	env.PrevEventHash = prevHash
	hash, err := hashEnvelope(env)
	if err != nil {
		return env, err
	}
	env.EventHash = hash
	return env, nil
}
