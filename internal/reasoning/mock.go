package reasoning

import (
	"context"
	"sync"
)

// DescribeCall records the arguments of one DescribeFrames call.
type DescribeCall struct {
	Question   string
	Images     [][]byte
	Categories []string
}

// MockReasoner is a test implementation of Reasoner.
// It allows tests to control classifications and answers.
type MockReasoner struct {
	mu             sync.Mutex
	classification Classification
	classifyErr    error
	description    string
	describeErr    error
	answer         string
	answerErr      error
	gate           chan struct{}

	describeCalls []DescribeCall
	answerCalls   []string
	classifyCalls []string
}

// NewMockReasoner creates a MockReasoner that answers every call with
// fixed text.
func NewMockReasoner() *MockReasoner {
	return &MockReasoner{
		description: "mock description",
		answer:      "mock answer",
	}
}

// SetClassification sets the result of ClassifyQuestion.
func (m *MockReasoner) SetClassification(c Classification, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classification = c
	m.classifyErr = err
}

// SetDescription sets the result of DescribeFrames.
func (m *MockReasoner) SetDescription(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.description = text
	m.describeErr = err
}

// SetAnswer sets the result of DirectAnswer.
func (m *MockReasoner) SetAnswer(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answer = text
	m.answerErr = err
}

// HoldClassification makes ClassifyQuestion block until the returned
// function is called or the context ends.
func (m *MockReasoner) HoldClassification() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (m *MockReasoner) ClassifyQuestion(ctx context.Context, question string) (Classification, error) {
	m.mu.Lock()
	m.classifyCalls = append(m.classifyCalls, question)
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return Classification{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := Classification{
		NeedsVisual: m.classification.NeedsVisual,
		Categories:  append([]string(nil), m.classification.Categories...),
	}
	return c, m.classifyErr
}

func (m *MockReasoner) DescribeFrames(ctx context.Context, question string, images [][]byte, categories []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.describeCalls = append(m.describeCalls, DescribeCall{
		Question:   question,
		Images:     images,
		Categories: append([]string(nil), categories...),
	})
	if m.describeErr != nil {
		return "", m.describeErr
	}
	return m.description, nil
}

func (m *MockReasoner) DirectAnswer(ctx context.Context, question string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answerCalls = append(m.answerCalls, question)
	if m.answerErr != nil {
		return "", m.answerErr
	}
	return m.answer, nil
}

// DescribeCalls returns the recorded DescribeFrames calls.
func (m *MockReasoner) DescribeCalls() []DescribeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DescribeCall(nil), m.describeCalls...)
}

// AnswerCalls returns the questions passed to DirectAnswer.
func (m *MockReasoner) AnswerCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.answerCalls...)
}

// ClassifyCalls returns the questions passed to ClassifyQuestion.
func (m *MockReasoner) ClassifyCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.classifyCalls...)
}
