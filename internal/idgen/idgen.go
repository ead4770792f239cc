// Package idgen mints the prefixed, sortable identifiers used across every
// persisted entity in the workspace.
package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefix is the entity-kind tag prepended to every generated id.
type Prefix string

// Known id prefixes, one per entity kind that the workspace persists.
const (
	PrefixCompany      Prefix = "cmp"
	PrefixTeam         Prefix = "team"
	PrefixAgent        Prefix = "agent"
	PrefixProject      Prefix = "proj"
	PrefixConversation Prefix = "conv"
	PrefixMessage      Prefix = "msg"
	PrefixTask         Prefix = "task"
	PrefixMilestone    Prefix = "ms"
	PrefixRun          Prefix = "run"
	PrefixJob          Prefix = "job"
	PrefixArtifact     Prefix = "art"
	PrefixContextPack  Prefix = "ctx"
	PrefixSharePack    Prefix = "share"
	PrefixReview       Prefix = "rev"
	PrefixHelpRequest  Prefix = "help"
	PrefixComment      Prefix = "cmt"
	PrefixEvent        Prefix = "evt"
)

// knownPrefixes lists every prefix New will accept, so a typo in a call
// site fails loudly instead of minting a bogus id silently.
var knownPrefixes = map[Prefix]bool{
	PrefixCompany: true, PrefixTeam: true, PrefixAgent: true, PrefixProject: true,
	PrefixConversation: true, PrefixMessage: true, PrefixTask: true, PrefixMilestone: true,
	PrefixRun: true, PrefixJob: true, PrefixArtifact: true, PrefixContextPack: true,
	PrefixSharePack: true, PrefixReview: true, PrefixHelpRequest: true, PrefixComment: true,
	PrefixEvent: true,
}

// Factory mints monotonic ULID-based ids. Two ids minted in the same
// millisecond from the same Factory are lexically ordered by mint order,
// matching the spec's "monotonic within a single process" requirement.
type Factory struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewFactory creates an id Factory seeded from crypto/rand.
func NewFactory() *Factory {
	return &Factory{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New mints a new id of the form "{prefix}_{ULID}". It panics on an unknown
// prefix, since that indicates a programming error, not a runtime failure.
func (f *Factory) New(prefix Prefix) string {
	if !knownPrefixes[prefix] {
		panic(fmt.Sprintf("idgen: unknown prefix %q", prefix))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), f.entropy)
	return fmt.Sprintf("%s_%s", prefix, id.String())
}

// defaultFactory is a process-wide Factory for call sites that don't carry their
// own (tests construct their own Factory so ids stay deterministic-ish).
var defaultFactory = NewFactory()

// New mints an id from the process-wide default Factory.
func New(prefix Prefix) string {
	return defaultFactory.New(prefix)
}

// SplitPrefix returns the prefix portion of an id, e.g. "run" from
// "run_01ARZ3NDEKTSV4RRFFQ69G5FAV". ok is false if the id has no
// underscore-delimited prefix at all.
func SplitPrefix(id string) (prefix string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '_' {
			return id[:i], true
		}
	}
	return "", false
}
