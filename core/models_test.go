package core

import (
	"math"
	"testing"
	"time"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "2401.00001"},
		{name: "empty string", content: ""},
		{name: "long content", content: "Deep reinforcement learning for optimal order execution in limit order books"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestID_String(t *testing.T) {
	if got := ID(0xab).String(); got != "00000000000000ab" {
		t.Errorf("ID.String() = %q", got)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("arxiv-2024", "text-embedding-3-small")
	b := Fingerprint("arxiv-2024", "text-embedding-3-small")
	if a != b {
		t.Fatalf("Fingerprint() not stable: %s vs %s", a, b)
	}
	if len(a) != 24 {
		t.Errorf("Fingerprint() length = %d, want 24", len(a))
	}
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Errorf("Fingerprint() must separate parts")
	}
}

func TestCategory_EmbeddingText(t *testing.T) {
	c := Category{Code: "cs.CR", Name: "Cryptography and Security", Description: "Blockchain, smart contracts."}
	want := "Cryptography and Security: Blockchain, smart contracts."
	if got := c.EmbeddingText(); got != want {
		t.Errorf("EmbeddingText() = %q, want %q", got, want)
	}
}

func TestCandidateItem_Text(t *testing.T) {
	tests := []struct {
		name string
		item CandidateItem
		want string
	}{
		{
			name: "title and summary",
			item: CandidateItem{Title: "SEC approves ETF", Summary: "Spot bitcoin funds cleared."},
			want: "SEC approves ETF\n\nSpot bitcoin funds cleared.",
		},
		{
			name: "title only",
			item: CandidateItem{Title: "SEC approves ETF"},
			want: "SEC approves ETF",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewCandidateItem_DedupesHints(t *testing.T) {
	item, err := NewCandidateItem("n1", " Title ", "", []string{"cs.CR", " cs.CR", "", "q-fin.TR"}, 5)
	if err != nil {
		t.Fatalf("NewCandidateItem() error = %v", err)
	}
	if item.Title != "Title" {
		t.Errorf("Title = %q, want trimmed", item.Title)
	}
	want := []string{"cs.CR", "q-fin.TR"}
	if len(item.HintCategories) != len(want) {
		t.Fatalf("HintCategories = %v, want %v", item.HintCategories, want)
	}
	for i := range want {
		if item.HintCategories[i] != want[i] {
			t.Errorf("HintCategories[%d] = %q, want %q", i, item.HintCategories[i], want[i])
		}
	}
}

func TestCandidateDocument_Text(t *testing.T) {
	d := CandidateDocument{Title: "Attention", Abstract: "We propose..."}
	if got := d.Text(); got != "Attention\nWe propose..." {
		t.Errorf("Text() = %q", got)
	}
}

func TestSnapshot_Lookup(t *testing.T) {
	s := &Snapshot{Categories: []Category{
		{Code: "cs.AI", Name: "AI"},
		{Code: "cs.CR", Name: "Crypto", Embedding: []float32{1, 0}},
	}}

	c, ok := s.Lookup("cs.CR")
	if !ok || c.Name != "Crypto" {
		t.Errorf("Lookup(cs.CR) = %v, %v", c, ok)
	}
	if _, ok := s.Lookup("cs.XX"); ok {
		t.Errorf("Lookup(cs.XX) should miss")
	}
	if d := s.Dimensions(); d != 2 {
		t.Errorf("Dimensions() = %d, want 2", d)
	}
}

func TestSnapshotMUS_RoundTrip(t *testing.T) {
	in := Snapshot{
		Key:             "abc123",
		ModelID:         "openai:text-embedding-3-small",
		TaxonomyVersion: "arxiv-finance-ai/1",
		RefreshedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Categories: []Category{
			{Code: "cs.AI", Name: "Artificial Intelligence", Description: "Reasoning.", Embedding: []float32{0.25, -0.5, float32(math.Pi)}},
			{Code: "q-fin.TR", Name: "Trading", Description: "Order books."},
		},
	}

	bs := make([]byte, SnapshotMUS.Size(in))
	n := SnapshotMUS.Marshal(in, bs)
	if n != len(bs) {
		t.Fatalf("Marshal wrote %d bytes, Size reported %d", n, len(bs))
	}

	out, m, err := SnapshotMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if m != n {
		t.Errorf("Unmarshal consumed %d bytes, want %d", m, n)
	}
	if out.Key != in.Key || out.ModelID != in.ModelID || out.TaxonomyVersion != in.TaxonomyVersion {
		t.Errorf("header mismatch: %+v", out)
	}
	if !out.RefreshedAt.Equal(in.RefreshedAt) {
		t.Errorf("RefreshedAt = %v, want %v", out.RefreshedAt, in.RefreshedAt)
	}
	if len(out.Categories) != 2 || len(out.Categories[0].Embedding) != 3 || out.Categories[1].Embedding != nil {
		t.Fatalf("categories mismatch: %+v", out.Categories)
	}
	if out.Categories[0].Embedding[2] != float32(math.Pi) {
		t.Errorf("embedding value lost precision: %v", out.Categories[0].Embedding[2])
	}
}

func TestSnapshotMUS_Garbage(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x07},
		{0x01, 0xff, 0xff, 0xff, 0xff, 0x0f},
	}
	for _, bs := range inputs {
		if _, _, err := SnapshotMUS.Unmarshal(bs); err == nil {
			t.Errorf("Unmarshal(%v) expected error", bs)
		}
	}
}
