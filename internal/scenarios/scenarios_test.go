package scenarios

import (
	"strings"
	"testing"
)

func TestAllScenariosMatchExpectedOrder(t *testing.T) {
	cases, err := Load()
	if err != nil {
		t.Fatalf("failed to load scenarios.yaml: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("expected at least one scenario")
	}

	for _, c := range cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			rendered, err := Run(c)
			if err != nil {
				t.Fatalf("failed to run scenario: %v", err)
			}

			offset := 0
			for _, want := range c.ExpectOrder {
				idx := strings.Index(rendered[offset:], want)
				if idx < 0 {
					t.Fatalf("expected %q to appear (in order) after offset %d in:\n%s", want, offset, rendered)
				}
				offset += idx + len(want)
			}
		})
	}
}

func TestEveryBuilderHasAMatchingFixtureEntry(t *testing.T) {
	cases, err := Load()
	if err != nil {
		t.Fatalf("failed to load scenarios.yaml: %v", err)
	}
	seen := make(map[string]bool, len(cases))
	for _, c := range cases {
		seen[c.Name] = true
	}
	for name := range builders {
		if !seen[name] {
			t.Errorf("builder %q has no fixture entry in scenarios.yaml", name)
		}
	}
	for name := range seen {
		if _, ok := builders[name]; !ok {
			t.Errorf("fixture entry %q has no registered tree builder", name)
		}
	}
}
