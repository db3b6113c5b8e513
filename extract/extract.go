// Package extract recovers typed data from free-form generation output.
// Providers wrap their JSON in commentary, drop fields, or emit nothing
// parseable at all; every entry point here degrades to a usable value
// instead of returning an error.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// JSONObject returns the first balanced {...} span in s. It tracks string
// literals and escapes, so braces inside values do not end the span.
func JSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// WordCloudTerm is one weighted term for the word-cloud rendering.
type WordCloudTerm struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// DocumentSection is one top-level heading and its subsections.
type DocumentSection struct {
	Title       string   `json:"title"`
	Subsections []string `json:"subsections"`
}

// StructuredSummary is the typed document summary. All four fields are
// always populated: missing ones get their placeholder independently.
type StructuredSummary struct {
	KeyTopics         []string          `json:"keyTopics"`
	Entities          []string          `json:"entities"`
	WordCloud         []WordCloudTerm   `json:"wordCloudData"`
	DocumentStructure []DocumentSection `json:"documentStructure"`
}

// Summary recovers a StructuredSummary from a generation response. A
// response with no parseable JSON object yields the canned fallback
// verbatim, never an error.
func Summary(response string) StructuredSummary {
	span, ok := JSONObject(response)
	if !ok {
		return FallbackSummary()
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return FallbackSummary()
	}

	summary := StructuredSummary{
		KeyTopics:         placeholderTopics(),
		Entities:          placeholderEntities(),
		WordCloud:         placeholderWordCloud(),
		DocumentStructure: placeholderStructure(),
	}

	if field, ok := raw["keyTopics"]; ok {
		var topics []string
		if json.Unmarshal(field, &topics) == nil {
			summary.KeyTopics = topics
		}
	}
	if field, ok := raw["entities"]; ok {
		var entities []string
		if json.Unmarshal(field, &entities) == nil {
			summary.Entities = entities
		}
	}
	if field, ok := raw["wordCloudData"]; ok {
		var terms []WordCloudTerm
		if json.Unmarshal(field, &terms) == nil {
			summary.WordCloud = terms
		}
	}
	if field, ok := raw["documentStructure"]; ok {
		var sections []DocumentSection
		if json.Unmarshal(field, &sections) == nil {
			summary.DocumentStructure = sections
		}
	}

	return summary
}

// QuizQuestion is one validated multiple-choice question.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type quizPayload struct {
	Questions []QuizQuestion `json:"questions"`
}

// minValidQuestions is the survival threshold below which the whole parsed
// set is replaced by the canned fallback.
const minValidQuestions = 3

// QuizQuestions recovers up to numQuestions validated questions from a
// generation response. Questions missing required fields, whose correct
// answer is not among the options, or whose id collides with an earlier
// question are dropped, not repaired; ids are synthesized where absent.
// Too few survivors replaces the entire set with the fallback list.
func QuizQuestions(response string, numQuestions int) []QuizQuestion {
	if numQuestions <= 0 {
		return nil
	}

	span, ok := JSONObject(response)
	if !ok {
		return FallbackQuizQuestions(numQuestions)
	}

	var payload quizPayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return FallbackQuizQuestions(numQuestions)
	}

	seen := make(map[string]struct{})
	valid := make([]QuizQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if q.Text == "" || len(q.Options) == 0 || q.CorrectAnswer == "" {
			continue
		}
		if !contains(q.Options, q.CorrectAnswer) {
			continue
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		valid = append(valid, q)
	}

	threshold := minValidQuestions
	if numQuestions < threshold {
		threshold = numQuestions
	}
	if len(valid) < threshold {
		return FallbackQuizQuestions(numQuestions)
	}

	if len(valid) > numQuestions {
		valid = valid[:numQuestions]
	}
	return valid
}

// SuggestedQuestions extracts three suggested questions from a generation
// response, trying progressively looser strategies: a JSON string array,
// quoted strings, lines containing a question mark, and finally a canned
// set.
func SuggestedQuestions(response string) []string {
	trimmed := strings.TrimSpace(response)

	var parsed []string
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil && len(parsed) >= suggestedCount {
		return parsed[:suggestedCount]
	}

	quoted := quotedStrings(response)
	if len(quoted) >= suggestedCount {
		return quoted[:suggestedCount]
	}

	questions := make([]string, 0, suggestedCount)
	for _, line := range strings.Split(response, "\n") {
		if strings.Contains(line, "?") {
			questions = append(questions, strings.TrimSpace(line))
		}
	}
	if len(questions) >= suggestedCount {
		return questions[:suggestedCount]
	}

	return FallbackSuggestedQuestions()
}

const suggestedCount = 3

func quotedStrings(s string) []string {
	result := make([]string, 0)
	for {
		open := strings.IndexAny(s, `"'`)
		if open < 0 {
			break
		}
		quote := s[open]
		rest := s[open+1:]
		close := strings.IndexByte(rest, quote)
		if close < 0 {
			break
		}
		if value := rest[:close]; value != "" {
			result = append(result, value)
		}
		s = rest[close+1:]
	}
	return result
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
