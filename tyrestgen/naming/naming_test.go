package naming

import (
	"sync"
	"testing"
)

func TestTypeName(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"root", "post", "Request"}, "RootPostRequest"},
		{[]string{"user items", "get", "Response"}, "UserItemsGetResponse"},
		{[]string{"user-items", "get"}, "UserItemsGet"},
		{[]string{"a  - -b"}, "AB"},
		{[]string{"-leading", "trailing-"}, "LeadingTrailing"},
		{[]string{"already", "camelCase"}, "AlreadyCamelCase"},
		{[]string{"123 go"}, "_123Go"},
		{[]string{"v1.items"}, "V1items"},
		{nil, ""},
		{[]string{"", " "}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := TypeName(tt.parts...)
			if got != tt.want {
				t.Errorf("TypeName(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestPropertyName(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"X-Request-Id"}, "xRequestId"},
		{[]string{"Root", "post", "Handler"}, "rootPostHandler"},
		{[]string{"page size"}, "pageSize"},
		{[]string{"ID"}, "iD"},
		{[]string{"éclair", "tart"}, "éclairTart"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := PropertyName(tt.parts...)
			if got != tt.want {
				t.Errorf("PropertyName(%q) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Pure(t *testing.T) {
	inputs := [][]string{
		{"items", "get", "Request"},
		{"X-Rate-Limit"},
		{"nested resource", "delete", "Response"},
	}
	want := make([]string, len(inputs))
	for i, in := range inputs {
		want[i] = TypeName(in...)
	}

	// Interleave calls from many goroutines; every call must reproduce the
	// first result regardless of ordering.
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				i := (n + offset) % len(inputs)
				_ = PropertyName(inputs[i]...)
				if got := TypeName(inputs[i]...); got != want[i] {
					t.Errorf("TypeName(%q) = %q, want %q", inputs[i], got, want[i])
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"abc", true},
		{"_1", true},
		{"1a", false},
		{"a-b", false},
		{"status200", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsIdentifier(tt.input); got != tt.want {
				t.Errorf("IsIdentifier(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
