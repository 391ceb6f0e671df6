package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/api/v1/records/42", "/api/v1/records/{id}"},
		{"/api/v1/groups/7", "/api/v1/groups/{id}"},
		{"/api/v1/records/42/resolve", "/api/v1/records/{id}/resolve"},
		{"/api/v1/test-sets", "/api/v1/test-sets"},
	}
	for _, tc := range tests {
		if got := normalizedPath(tc.in); got != tc.want {
			t.Errorf("normalizedPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractRecordID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"/api/v1/records/42", 42},
		{"/api/v1/records/42/resolve", 42},
		{"/api/v1/records", 0},
		{"/api/v1/groups/9", 0},
		{"/api/v1/records/abc", 0},
	}
	for _, tc := range tests {
		if got := extractRecordID(tc.in); got != tc.want {
			t.Errorf("extractRecordID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
