package extract

import (
	"fmt"
	"testing"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

func makeSections(n int, content func(i int) string) []models.Section {
	sections := make([]models.Section, n)
	for i := range sections {
		sections[i] = models.Section{
			Content:   content(i),
			Type:      models.SectionTypeSection,
			Heading:   fmt.Sprintf("Section %d", i),
			Level:     2,
			Position:  i % 50,
			SourceURL: fmt.Sprintf("https://docs.example.com/page-%d", i/50),
			BaseURL:   "https://docs.example.com/",
			DocName:   "example",
			Category:  models.CategoryGeneral,
		}
	}
	return sections
}

func TestDeduplicateUnderCap(t *testing.T) {
	sections := makeSections(100, func(i int) string {
		return "identical boilerplate repeated on every page"
	})
	got := Deduplicate(sections, 500, DefaultDedupKeyChars)
	if len(got) != 100 {
		t.Errorf("under the cap must be a no-op, got %d sections", len(got))
	}
}

func TestDeduplicateOverCap(t *testing.T) {
	// 550 unique + 50 sharing one duplicated blurb.
	sections := makeSections(600, func(i int) string {
		if i >= 550 {
			return "install the package with npm and restart your dev server to apply"
		}
		return fmt.Sprintf("unique content for section number %d with enough text to rank", i)
	})

	got := Deduplicate(sections, 500, DefaultDedupKeyChars)
	if len(got) != 500 {
		t.Fatalf("got %d sections, want exactly 500", len(got))
	}

	dupes := 0
	for _, s := range got {
		if s.Content == "install the package with npm and restart your dev server to apply" {
			dupes++
		}
	}
	if dupes > 1 {
		t.Errorf("duplicate blurb survived %d times, want at most 1", dupes)
	}
}

func TestDeduplicatePrefersLongerAndImportant(t *testing.T) {
	sections := make([]models.Section, 0, 10)
	for i := 0; i < 8; i++ {
		sections = append(sections, models.Section{
			Content:   fmt.Sprintf("short filler text %d", i),
			Heading:   "Misc",
			Category:  models.CategoryGeneral,
			SourceURL: "https://docs.example.com/a",
			Position:  i,
		})
	}
	sections = append(sections, models.Section{
		Content:   "a long installation walkthrough covering every platform and package manager in detail",
		Heading:   "Installation",
		Category:  models.CategoryInstallation,
		SourceURL: "https://docs.example.com/b",
		Position:  0,
	})

	got := Deduplicate(sections, 4, DefaultDedupKeyChars)
	found := false
	for _, s := range got {
		if s.Category == models.CategoryInstallation {
			found = true
		}
	}
	if !found {
		t.Error("installation section was evicted despite priority ranking")
	}
}

func TestDeduplicateKeepsPageOrder(t *testing.T) {
	sections := makeSections(600, func(i int) string {
		return fmt.Sprintf("unique content for section number %d with enough text to rank", i)
	})
	got := Deduplicate(sections, 500, DefaultDedupKeyChars)

	lastPos := map[string]int{}
	for _, s := range got {
		if last, ok := lastPos[s.SourceURL]; ok && s.Position <= last {
			t.Fatalf("positions out of order within %s: %d after %d", s.SourceURL, s.Position, last)
		}
		lastPos[s.SourceURL] = s.Position
	}
}
