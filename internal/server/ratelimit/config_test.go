package ratelimit

import "testing"

func TestMatchRouting(t *testing.T) {
	c := NewConfig(Rates{WritePerMin: 120, AnalyzePerMin: 30, ReadPerMin: 6000})
	defer c.Close()

	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/api/health", ""},
		{"POST", "/api/ws/analyze", "analyze"},
		{"POST", "/api/ws/documents", "write"},
		{"PATCH", "/api/ws/documents/abc.md", "write"},
		{"DELETE", "/api/ws/folders/f1", "write"},
		{"PUT", "/api/ws/graphs/g1", "write"},
		{"GET", "/api/ws/library", "read"},
		{"GET", "/api/ws/documents/abc.md/file", "read"},
	}
	for _, tt := range tests {
		tier := c.Match(tt.method, tt.path)
		got := ""
		if tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("Match(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey("1.2.3.4", "write"); got != "ip:1.2.3.4:write" {
		t.Fatalf("BuildKey = %q", got)
	}
}

func TestBurstFloor(t *testing.T) {
	c := NewConfig(Rates{WritePerMin: 1, AnalyzePerMin: 1, ReadPerMin: 1})
	defer c.Close()
	if r := c.Write.Limiter.Allow("k"); !r.Allowed {
		t.Fatal("budget of one per minute must still admit one request")
	}
}
