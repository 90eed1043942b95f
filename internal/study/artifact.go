package study

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// QuizQuestions is the number of questions an artifact is expected to contain.
const QuizQuestions = 3

// ArtifactReport describes how closely an artifact follows the summary and quiz layout.
type ArtifactReport struct {
	HasSummary    bool `json:"has_summary"`
	SummaryPoints int  `json:"summary_points"`
	HasQuiz       bool `json:"has_quiz"`
	Questions     int  `json:"questions"`
	Answers       int  `json:"answers"`
}

// WellFormed reports whether both sections exist and the quiz has three answered questions.
func (r ArtifactReport) WellFormed() bool {
	return r.HasSummary && r.SummaryPoints > 0 && r.HasQuiz &&
		r.Questions == QuizQuestions && r.Answers == QuizQuestions
}

type section int

const (
	sectionNone section = iota
	sectionSummary
	sectionQuiz
)

// Inspect parses an artifact and counts its summary points and quiz questions.
// Model output is not guaranteed to follow the layout; the report is informational.
func Inspect(artifact string) ArtifactReport {
	var report ArtifactReport

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(artifact), body)
	if err != nil {
		return report
	}

	current := sectionNone
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3, atom.H4:
				heading := strings.ToLower(textOf(n))
				switch {
				case strings.Contains(heading, "summary"):
					current = sectionSummary
					report.HasSummary = true
				case strings.Contains(heading, "quiz"):
					current = sectionQuiz
					report.HasQuiz = true
				default:
					current = sectionNone
				}
				return
			case atom.Li:
				if current == sectionSummary {
					report.SummaryPoints++
				}
			case atom.Strong, atom.B:
				if current == sectionQuiz {
					label := strings.TrimSpace(textOf(n))
					switch {
					case strings.HasPrefix(strings.ToLower(label), "answer"):
						report.Answers++
					case strings.HasPrefix(label, "Q"):
						report.Questions++
					}
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range nodes {
		walk(n)
	}
	return report
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textOf(c))
	}
	return sb.String()
}

var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// ToMarkdown converts an HTML artifact to Markdown.
func ToMarkdown(artifact string) (string, error) {
	md, err := markdownConverter.ConvertString(artifact)
	if err != nil {
		return "", fmt.Errorf("convert artifact to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
