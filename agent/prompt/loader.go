package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/analyzer.txt
	analyzerRaw string

	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/summarizer.txt
	summarizerRaw string

	//go:embed template/generic.txt
	genericRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Analyzer   string
	Classifier string
	Planner    string
	Summarizer string
	Generic    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to
// call concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Analyzer:   strings.TrimSpace(analyzerRaw),
		Classifier: strings.TrimSpace(classifierRaw),
		Planner:    strings.TrimSpace(plannerRaw),
		Summarizer: strings.TrimSpace(summarizerRaw),
		Generic:    strings.TrimSpace(genericRaw),
	}
}
