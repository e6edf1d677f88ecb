package cache

import "testing"

func TestKey_Deterministic(t *testing.T) {
	a := Key("I feel better this week.")
	b := Key("I feel better this week.")
	if a != b {
		t.Errorf("identical transcripts produced different keys: %s vs %s", a, b)
	}
}

func TestKey_DistinguishesTranscripts(t *testing.T) {
	a := Key("I feel better this week.")
	b := Key("I feel better this week. ")
	if a == b {
		t.Error("different transcripts produced the same key")
	}
}

func TestKey_KnownDigest(t *testing.T) {
	// md5("hello")
	if got := Key("hello"); got != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("unexpected digest: %s", got)
	}
}
