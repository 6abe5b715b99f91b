// SPDX-License-Identifier: Apache-2.0

package present

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hazeproj/haze-mcp/internal/walk"
)

// DefaultMinLineLength is the shortest storyline line kept as an image prompt.
const DefaultMinLineLength = 20

// Mention is a site worth bringing up in the narrative.
type Mention struct {
	Label       string          `json:"label" yaml:"label" msgpack:"label"`
	Probability float64         `json:"probability" yaml:"probability" msgpack:"probability"`
	Likelihood  walk.Likelihood `json:"likelihood" yaml:"likelihood" msgpack:"likelihood"`
}

// NarrativeInput is everything a text generator needs to tell the story of
// a run.
type NarrativeInput struct {
	StartLabel string               `json:"start_label" yaml:"start_label" msgpack:"start_label"`
	Entropy    walk.EntropyCategory `json:"entropy" yaml:"entropy" msgpack:"entropy"`
	Mentions   []Mention            `json:"mentions" yaml:"mentions" msgpack:"mentions"`
}

// Narrative selects the topN most probable sites of result, most probable
// first. Ties keep site order, absent sites are skipped and topN <= 0
// keeps every remaining site.
func Narrative(result walk.Result, topN int) NarrativeInput {
	mentions := make([]Mention, 0, len(result.Sites))
	for _, s := range result.Sites {
		if s.Likelihood == walk.Absent {
			continue
		}
		mentions = append(mentions, Mention{Label: s.Label, Probability: s.Probability, Likelihood: s.Likelihood})
	}
	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].Probability > mentions[j].Probability
	})
	if topN > 0 && len(mentions) > topN {
		mentions = mentions[:topN]
	}

	return NarrativeInput{
		StartLabel: result.StartLabel,
		Entropy:    result.Entropy.Category,
		Mentions:   mentions,
	}
}

var likelihoodPhrases = map[walk.Likelihood]string{
	walk.Likely:   "likely went to",
	walk.Possible: "may have gone to",
}

// Prompt renders the input as a single generation prompt.
func (n NarrativeInput) Prompt() string {
	var b strings.Builder
	b.WriteString("Someone cannot remember how they got here. Tell the story of them trying to remember, in three descriptive steps. ")
	fmt.Fprintf(&b, "They had %s %s time before waking up at %s", article(string(n.Entropy)), n.Entropy, n.StartLabel)
	if len(n.Mentions) > 0 {
		b.WriteString(", and before that")
		for _, m := range n.Mentions {
			fmt.Fprintf(&b, ", they %s %s", likelihoodPhrases[m.Likelihood], m.Label)
		}
	}
	b.WriteString(".")
	return b.String()
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

// SplitStoryline splits generated prose into one image prompt per line,
// keeping trimmed lines longer than minLen runes.
func SplitStoryline(text string, minLen int) []string {
	if minLen <= 0 {
		minLen = DefaultMinLineLength
	}
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) > minLen {
			lines = append(lines, line)
		}
	}
	return lines
}
