package review

import "os"

// readFileTolerant reads path, returning (nil, nil) if it does not exist
// rather than an error — callers treat an absent agent.yaml or memory.md
// as "nothing yet", not a failure.
func readFileTolerant(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
