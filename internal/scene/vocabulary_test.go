package scene

import "testing"

func TestVocabularyDefaultBucket(t *testing.T) {
	v := NewVocabulary()
	if v.Len() != 1 {
		t.Fatalf("new vocabulary has %d entries, want 1", v.Len())
	}
	if v.Name(0) != DefaultBucket {
		t.Errorf("index 0 = %q, want %q", v.Name(0), DefaultBucket)
	}
}

func TestVocabularyRegisterIdempotent(t *testing.T) {
	v := NewVocabulary()
	first := v.Register("cup")
	second := v.Register("cup")
	if first != second {
		t.Errorf("re-registering returned %d, want %d", second, first)
	}
	if v.Len() != 2 {
		t.Errorf("vocabulary has %d entries, want 2", v.Len())
	}
}

func TestVocabularyLookupFallback(t *testing.T) {
	v := NewVocabulary()
	v.Register("cup")

	if idx := v.Lookup("cup"); idx != 1 {
		t.Errorf("Lookup(cup) = %d, want 1", idx)
	}
	if idx := v.Lookup("teapot"); idx != 0 {
		t.Errorf("Lookup(teapot) = %d, want 0 (default bucket)", idx)
	}
	if hits := v.DefaultHits(); hits != 1 {
		t.Errorf("DefaultHits = %d, want 1", hits)
	}
	// lookup must not grow the vocabulary
	if v.Len() != 2 {
		t.Errorf("vocabulary has %d entries after fallback lookup, want 2", v.Len())
	}
}

func TestVocabularyIndexStrict(t *testing.T) {
	v := NewVocabulary()
	v.Register("cup")

	if _, ok := v.Index("teapot"); ok {
		t.Error("Index(teapot) reported registered for an unseen type")
	}
	if hits := v.DefaultHits(); hits != 0 {
		t.Errorf("strict Index counted %d default hits, want 0", hits)
	}
}

func TestVocabularyNamesIsCopy(t *testing.T) {
	v := NewVocabulary()
	v.Register("cup")
	names := v.Names()
	names[0] = "mutated"
	if v.Name(0) != DefaultBucket {
		t.Error("mutating the Names copy changed the vocabulary")
	}
}
