package moderation

import (
	"context"
)

// Verdict is the result of one classifier call: a flagged/clean outcome plus
// the raw classifier response for logging. It is never persisted.
type Verdict struct {
	Flagged bool
	Raw     string
}

// PolicyClassifier is a remote service that decides whether text violates
// broad content policy (violence, sexual content, hate). Input is raw trimmed
// text, output is a flagged boolean.
type PolicyClassifier interface {
	ClassifyText(ctx context.Context, text string) (Verdict, error)
}

// Prompt is a single chat-completion classification request. ImageURL is
// optional; when set the classifier is expected to inspect the image.
type Prompt struct {
	System   string
	Text     string
	ImageURL string
}

// ChatClassifier is a remote chat-completion model used as a classifier. The
// pipeline only ever asks it questions whose answer is a short yes/no token.
type ChatClassifier interface {
	Answer(ctx context.Context, prompt Prompt) (string, error)
}
