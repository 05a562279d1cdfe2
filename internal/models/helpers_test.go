package models

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "hello", "hello"},
		{"uppercase", "Hello World", "hello-world"},
		{"underscores", "my_doc_name", "my-doc-name"},
		{"special chars stripped", "Hello, World!", "hello-world"},
		{"numbers preserved", "doc-v2.1", "doc-v21"},
		{"empty string", "", ""},
		{"only special chars", "!@#$%", ""},
		{"consecutive spaces", "hello   world", "hello---world"},
		{"unicode stripped", "café résumé", "caf-rsum"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.in)
			if got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"bare domain gets scheme", "docs.example.com", "https://docs.example.com/", false},
		{"trailing slash stripped", "https://docs.example.com/api/", "https://docs.example.com/api", false},
		{"root slash kept", "https://docs.example.com/", "https://docs.example.com/", false},
		{"fragment dropped", "https://docs.example.com/api#install", "https://docs.example.com/api", false},
		{"host lowercased", "https://Docs.Example.COM/API", "https://docs.example.com/API", false},
		{"tracking params stripped", "https://docs.example.com/api?utm_source=x&page=2", "https://docs.example.com/api?page=2", false},
		{"all params tracking", "https://docs.example.com/api?utm_source=x&fbclid=y", "https://docs.example.com/api", false},
		{"empty", "", "", true},
		{"no host", "https:///path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeURL(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeURL(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://docs.example.com/api/",
		"docs.example.com/guide#setup",
		"https://Docs.Example.com/?utm_source=x",
	}
	for _, in := range inputs {
		once, err := NormalizeURL(in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", in, err)
		}
		twice, err := NormalizeURL(once)
		if err != nil {
			t.Fatalf("NormalizeURL(%q) error: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestDocNameFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://docs.stripe.com/api", "stripe"},
		{"https://react.dev/learn", "react"},
		{"https://www.postgresql.org/docs", "postgresql"},
		{"https://docs.github.com/en/rest", "github"},
		{"https://api.docs.dev/widgets", "widgets"},
	}
	for _, tt := range tests {
		if got := DocNameFromURL(tt.in); got != tt.want {
			t.Errorf("DocNameFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDocIdentifiers(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"https://docs.stripe.com/api/charges", []string{"stripe", "charges"}},
		{"https://react.dev/learn", []string{"react"}},
		{"https://docs.example.com/docs/api", []string{"example"}},
	}
	for _, tt := range tests {
		got := DocIdentifiers(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("DocIdentifiers(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("DocIdentifiers(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
