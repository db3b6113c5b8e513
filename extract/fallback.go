package extract

import "github.com/google/uuid"

// FallbackSummary is returned whenever no JSON object can be recovered
// from a summary response.
func FallbackSummary() StructuredSummary {
	return StructuredSummary{
		KeyTopics: []string{"Error parsing document structure"},
		Entities:  []string{"Please try again"},
		WordCloud: []WordCloudTerm{
			{Text: "Error", Value: 50},
		},
		DocumentStructure: []DocumentSection{
			{Title: "Document structure unavailable", Subsections: []string{}},
		},
	}
}

func placeholderTopics() []string {
	return []string{"Topic extraction failed"}
}

func placeholderEntities() []string {
	return []string{"Entity extraction failed"}
}

func placeholderWordCloud() []WordCloudTerm {
	return []WordCloudTerm{{Text: "Data", Value: 50}}
}

func placeholderStructure() []DocumentSection {
	return []DocumentSection{{Title: "Structure unavailable", Subsections: []string{}}}
}

var fallbackQuizTexts = []struct {
	text    string
	options []string
	correct string
}{
	{
		text: "What is the main purpose of retrieval-augmented generation?",
		options: []string{
			"To ground model answers in source documents",
			"To train a model from scratch",
			"To compress documents for storage",
			"To translate documents between languages",
		},
		correct: "To ground model answers in source documents",
	},
	{
		text: "What does a semantic index store for each chunk of text?",
		options: []string{
			"An embedding vector",
			"A compressed archive",
			"A syntax tree",
			"A word frequency table",
		},
		correct: "An embedding vector",
	},
	{
		text: "How are the most relevant chunks selected for a question?",
		options: []string{
			"By similarity between the question and chunk embeddings",
			"By alphabetical order",
			"By chunk length",
			"At random",
		},
		correct: "By similarity between the question and chunk embeddings",
	},
	{
		text: "Why are documents split into overlapping chunks?",
		options: []string{
			"So context spanning a boundary is not lost",
			"To make files smaller",
			"To remove duplicate sentences",
			"To speed up downloads",
		},
		correct: "So context spanning a boundary is not lost",
	},
	{
		text: "What should an assistant do when the answer is not in the retrieved context?",
		options: []string{
			"Say it does not know the answer",
			"Invent a plausible answer",
			"Repeat the question",
			"Return an empty response",
		},
		correct: "Say it does not know the answer",
	},
}

// FallbackQuizQuestions returns n generic questions, cycling through the
// canned set with fresh ids so callers always get distinct entries.
func FallbackQuizQuestions(n int) []QuizQuestion {
	if n <= 0 {
		return nil
	}
	questions := make([]QuizQuestion, 0, n)
	for i := 0; i < n; i++ {
		canned := fallbackQuizTexts[i%len(fallbackQuizTexts)]
		questions = append(questions, QuizQuestion{
			ID:            uuid.NewString(),
			Text:          canned.text,
			Options:       append([]string(nil), canned.options...),
			CorrectAnswer: canned.correct,
		})
	}
	return questions
}

// FallbackSuggestedQuestions returns the generic suggestions used when a
// response yields nothing that looks like a question.
func FallbackSuggestedQuestions() []string {
	return []string{
		"What is the main topic of this document?",
		"What are the key points discussed in the document?",
		"How can I apply the information in this document?",
	}
}
