// Package reasoning talks to the language and vision service: it classifies
// questions, describes selected frames and answers general questions.
package reasoning

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned when the service answers with something
// that cannot be parsed into the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// MaxCategories is the most relevant categories a classification keeps.
const MaxCategories = 3

// Classification is the interpreted form of a user question.
type Classification struct {
	NeedsVisual bool     `json:"needs_visual"`
	Categories  []string `json:"categories"`
}

// Classifier decides whether a question needs the camera and which object
// categories it is about.
type Classifier interface {
	ClassifyQuestion(ctx context.Context, question string) (Classification, error)
}

// Describer answers a visual question from a set of JPEG frames.
type Describer interface {
	DescribeFrames(ctx context.Context, question string, images [][]byte, categories []string) (string, error)
}

// Answerer answers a question that needs no visual context.
type Answerer interface {
	DirectAnswer(ctx context.Context, question string) (string, error)
}

// Reasoner bundles the three capabilities. OpenAIClient implements it.
type Reasoner interface {
	Classifier
	Describer
	Answerer
}
