package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CLIAIMONITOR/internal/corerr"
	"github.com/CLIAIMONITOR/internal/types"
)

// ReplayResult is the outcome of streaming one events.jsonl file.
type ReplayResult struct {
	Events              []types.Event
	ParseIssues         []corerr.ParseIssue
	VerificationIssues  []corerr.VerificationIssue
}

// Replay streams path line by line. Malformed lines are collected as
// ParseIssue and do not abort the stream. When verified is true, each
// line's hash chain is recomputed and mismatches are collected as
// VerificationIssue, but replay still continues to the end of the file.
func Replay(path string, verified bool) (ReplayResult, error) {
	var result ReplayResult

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return result, &corerr.IOError{Op: "open " + path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	seq := 0
	var prevHash *string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		seq++

		var env types.Event
		if err := json.Unmarshal(line, &env); err != nil {
			result.ParseIssues = append(result.ParseIssues, corerr.ParseIssue{
				Seq: seq, Raw: string(line), Error: err.Error(),
			})
			continue
		}

		if verified {
			if issue, ok := verifyLink(seq, env, prevHash); !ok {
				result.VerificationIssues = append(result.VerificationIssues, issue)
			}
		}

		result.Events = append(result.Events, env)
		hash := env.EventHash
		prevHash = &hash
	}
	if err := scanner.Err(); err != nil {
		return result, &corerr.IOError{Op: "scan " + path, Err: err}
	}
	return result, nil
}

// verifyLink checks one event's chain linkage and recomputed hash against
// its stored event_hash, returning a VerificationIssue on mismatch.
func verifyLink(seq int, env types.Event, expectedPrev *string) (corerr.VerificationIssue, bool) {
	if seq == 1 {
		if env.PrevEventHash != nil {
			return corerr.VerificationIssue{
				Seq: seq, Code: "PREV_HASH_NOT_NIL",
				Message: "first event must have prev_event_hash = null",
			}, false
		}
	} else {
		if expectedPrev == nil || env.PrevEventHash == nil || *env.PrevEventHash != *expectedPrev {
			return corerr.VerificationIssue{
				Seq: seq, Code: "CHAIN_BROKEN",
				Message: "prev_event_hash does not match previous event's event_hash",
			}, false
		}
	}

	recomputed, err := hashEnvelope(env)
	if err != nil {
		return corerr.VerificationIssue{
			Seq: seq, Code: "HASH_COMPUTE_FAILED", Message: err.Error(),
		}, false
	}
	if recomputed != env.EventHash {
		return corerr.VerificationIssue{
			Seq: seq, Code: "HASH_MISMATCH",
			Message: fmt.Sprintf("stored event_hash %s does not match recomputed %s", env.EventHash, recomputed),
		}, false
	}
	return corerr.VerificationIssue{}, true
}
