package study_test

import (
	"fmt"
	"strings"
	"testing"

	"studynotes/internal/study"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name       string
		artifact   string
		want       study.ArtifactReport
		wellFormed bool
	}{
		{
			name:     "complete artifact",
			artifact: sampleArtifact,
			want: study.ArtifactReport{
				HasSummary: true, SummaryPoints: 2,
				HasQuiz: true, Questions: 3, Answers: 3,
			},
			wellFormed: true,
		},
		{
			name:     "summary only",
			artifact: "<h3>Summary</h3><ul><li>one</li></ul>",
			want:     study.ArtifactReport{HasSummary: true, SummaryPoints: 1},
		},
		{
			name:     "error message",
			artifact: "AI Service Error: connection refused",
			want:     study.ArtifactReport{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := study.Inspect(tt.artifact)
			if got != tt.want {
				t.Errorf("Inspect() = %+v, want %+v", got, tt.want)
			}
			if got.WellFormed() != tt.wellFormed {
				t.Errorf("WellFormed() = %v, want %v", got.WellFormed(), tt.wellFormed)
			}
		})
	}
}

func TestToMarkdown(t *testing.T) {
	md, err := study.ToMarkdown(sampleArtifact)
	if err != nil {
		t.Fatalf("ToMarkdown() error = %v", err)
	}
	for _, want := range []string{"### Summary", "TCP provides reliable delivery.", "### Self-Check Quiz", "**Answer: A**"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "<h3>") {
		t.Errorf("markdown still contains HTML tags:\n%s", md)
	}
}

func ExampleNormalize() {
	fmt.Println(study.Normalize("```html\n<h3>Summary</h3>\n```"))
	// Output: <h3>Summary</h3>
}

func ExampleTruncate() {
	prompt, truncated := study.Truncate("Network layers", 7)
	fmt.Printf("%q %v\n", prompt, truncated)
	// Output: "Network" true
}
