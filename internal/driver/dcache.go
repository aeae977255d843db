package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"yangls/internal/diag"
	"yangls/internal/rules"
	"yangls/internal/source"
)

// Current schema version - increment when DiskPayload format changes.
const diskCacheSchemaVersion uint16 = 1

// Digest is a SHA-256 content hash.
type Digest = [32]byte

// DiskCache stores lint results on disk, keyed by document content and the
// active rule set. Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedFinding is one diagnostic in cacheable form. Spans are stored as
// bare offsets; the FileID is rebound when the entry is restored.
type CachedFinding struct {
	Severity uint8
	Code     uint16
	RuleID   string
	Message  string
	Start    uint32
	End      uint32
	GroupID  string
}

// DiskPayload stores one document's lint outcome. Fixes are not cached:
// they are synthesized from the live deviation index on demand.
type DiskPayload struct {
	Schema      uint16
	RulesetHash Digest
	Suppressed  int
	Findings    []CachedFinding
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt places the cache in an explicit directory. Tests use this.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// cacheKey derives the entry key from the document hash and the rule set
// hash, so either changing invalidates the entry.
func cacheKey(contentHash, rulesetHash Digest) Digest {
	buf := make([]byte, 0, len(contentHash)+len(rulesetHash))
	buf = append(buf, contentHash[:]...)
	buf = append(buf, rulesetHash[:]...)
	return sha256.Sum256(buf)
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// a "lint" subdirectory keeps entries easy to inspect and clear
	return filepath.Join(c.dir, "lint", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads and deserializes a payload from the disk cache.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "failed to close cache entry: %v\n", closeErr)
		}
	}()
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// resultToDiskPayload converts a validation result to its cacheable form.
func resultToDiskPayload(res rules.Result, rulesetHash Digest) *DiskPayload {
	payload := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		RulesetHash: rulesetHash,
		Suppressed:  res.Suppressed,
		Findings:    make([]CachedFinding, len(res.Diagnostics)),
	}
	for i, d := range res.Diagnostics {
		payload.Findings[i] = CachedFinding{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			RuleID:   d.RuleID,
			Message:  d.Message,
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			GroupID:  d.GroupID,
		}
	}
	return payload
}

// diskPayloadToResult restores a cached outcome, rebinding spans to fileID.
// Stale schemas or rule sets yield nil.
func diskPayloadToResult(payload *DiskPayload, rulesetHash Digest, fileID source.FileID) *rules.Result {
	if payload == nil || payload.Schema != diskCacheSchemaVersion || payload.RulesetHash != rulesetHash {
		return nil
	}
	res := &rules.Result{
		Diagnostics: make([]diag.Diagnostic, len(payload.Findings)),
		Suppressed:  payload.Suppressed,
	}
	for i, f := range payload.Findings {
		res.Diagnostics[i] = diag.Diagnostic{
			Severity: diag.Severity(f.Severity),
			Code:     diag.Code(f.Code),
			RuleID:   f.RuleID,
			Message:  f.Message,
			Primary:  source.Span{File: fileID, Start: f.Start, End: f.End},
			GroupID:  f.GroupID,
		}
	}
	return res
}
