package trace

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// VerifyResult is the outcome of verifying a trace file.
type VerifyResult struct {
	EventCount     int
	Valid          bool
	BrokenAt       int // -1 if no break
	Signed         bool
	SignatureOK    bool
	SignatureNoKey bool // signature present but no key to verify
	SigningKeyID   string
	ChainHash      string
	Error          string
}

// VerifyFile verifies the hash chain and optional signature of a trace file.
func VerifyFile(path string) (*VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	return Verify(f)
}

// Verify checks hash chain integrity and optional HMAC signature.
func Verify(r io.Reader) (*VerifyResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB max line

	expectedPrevHash := Genesis
	count := 0
	var lastEvent Event

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		count++

		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return &VerifyResult{
				EventCount: count,
				Valid:      false,
				BrokenAt:   count,
				Error:      fmt.Sprintf("event %d: invalid JSON: %v", count, err),
			}, nil
		}

		// Check prev_hash
		if evt.PrevHash != expectedPrevHash {
			return &VerifyResult{
				EventCount: count,
				Valid:      false,
				BrokenAt:   count,
				Error:      fmt.Sprintf("event %d: prev_hash mismatch (expected %s, got %s)", count, short(expectedPrevHash), short(evt.PrevHash)),
			}, nil
		}

		// Compute hash of this event's JSON for next comparison
		h := sha256.Sum256(line)
		expectedPrevHash = hex.EncodeToString(h[:])

		lastEvent = evt
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	result := &VerifyResult{
		EventCount: count,
		Valid:      true,
		BrokenAt:   -1,
	}

	// Check chain hash and signature on run_complete event
	if lastEvent.Type == EventRunComplete && lastEvent.Data != nil {
		if chainHash, ok := lastEvent.Data["chain_hash"].(string); ok {
			result.ChainHash = chainHash
			if chainHash != lastEvent.PrevHash {
				result.Valid = false
				result.BrokenAt = count
				result.Error = fmt.Sprintf("event %d: chain_hash does not match prev_hash", count)
				return result, nil
			}
		}
		if sig, ok := lastEvent.Data["signature"].(string); ok {
			result.Signed = true
			keyID, _ := lastEvent.Data["signing_key_id"].(string)
			result.SigningKeyID = keyID

			sigKey := os.Getenv(SigningKeyEnv)
			if sigKey == "" {
				result.SignatureNoKey = true
			} else if result.ChainHash != "" {
				result.SignatureOK = hmac.Equal([]byte(sig), []byte(sign(sigKey, result.ChainHash)))
			}
		}
	}

	return result, nil
}

func short(h string) string {
	if len(h) > 16 {
		return h[:16] + "..."
	}
	return h
}

// ReadFile decodes every event of a trace file without verifying it.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(scanner.Bytes(), &evt); err != nil {
			return nil, fmt.Errorf("event %d: %w", len(events)+1, err)
		}
		events = append(events, evt)
	}
	return events, scanner.Err()
}
