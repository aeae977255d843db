package driver

import (
	"crypto/sha256"
	"testing"

	"yangls/internal/diag"
	"yangls/internal/rules"
	"yangls/internal/source"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}

	rulesetHash := sha256.Sum256([]byte("ruleset"))
	res := rules.Result{
		Diagnostics: []diag.Diagnostic{{
			Severity: diag.SevWarning,
			Code:     diag.RuleViolation,
			RuleID:   "r1",
			Message:  "m",
			Primary:  source.Span{File: 7, Start: 3, End: 9},
			GroupID:  "/x",
		}},
		Suppressed: 2,
	}
	key := cacheKey(sha256.Sum256([]byte("content")), rulesetHash)

	if err := cache.Put(key, resultToDiskPayload(res, rulesetHash)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var payload DiskPayload
	ok, err := cache.Get(key, &payload)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}

	restored := diskPayloadToResult(&payload, rulesetHash, source.FileID(42))
	if restored == nil {
		t.Fatal("restore rejected a fresh payload")
	}
	if restored.Suppressed != 2 || len(restored.Diagnostics) != 1 {
		t.Fatalf("restored = %+v", restored)
	}
	d := restored.Diagnostics[0]
	if d.RuleID != "r1" || d.GroupID != "/x" {
		t.Fatalf("identity fields lost: %+v", d)
	}
	// spans rebind to the new FileID but keep their offsets
	if d.Primary.File != 42 || d.Primary.Start != 3 || d.Primary.End != 9 {
		t.Fatalf("span = %+v", d.Primary)
	}
}

func TestDiskCacheRejectsStalePayloads(t *testing.T) {
	rulesetHash := sha256.Sum256([]byte("a"))
	payload := resultToDiskPayload(rules.Result{}, rulesetHash)

	otherHash := sha256.Sum256([]byte("b"))
	if diskPayloadToResult(payload, otherHash, 0) != nil {
		t.Fatal("payload for a different rule set accepted")
	}

	payload.Schema = diskCacheSchemaVersion + 1
	if diskPayloadToResult(payload, rulesetHash, 0) != nil {
		t.Fatal("payload with a future schema accepted")
	}
}

func TestDiskCacheMissingEntry(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	var payload DiskPayload
	ok, err := cache.Get(sha256.Sum256([]byte("nope")), &payload)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("hit for a key that was never written")
	}
}
