package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uniroom/backend/internal/errors"
	"github.com/uniroom/backend/internal/logger"
	"github.com/uniroom/backend/internal/metrics"
	"github.com/uniroom/backend/internal/storage"
	"github.com/uniroom/backend/internal/util"
	"go.uber.org/zap"
)

// ContentKind names the entity being reviewed; it appears in user-facing
// rejection messages ("Post violates community guidelines").
type ContentKind string

const (
	KindPost    ContentKind = "Post"
	KindComment ContentKind = "Comment"
)

const (
	// languageCheckMaxRunes bounds the text sent to the language-specific
	// classifier. The policy classifier receives the full trimmed text.
	languageCheckMaxRunes = 2000

	// signedURLTTL is how long the vision classifier's image URL stays valid
	signedURLTTL = 5 * time.Minute
)

// languageCheckPrompt instructs the chat classifier to detect abusive
// language across the scripts and transliterations our community writes in.
// The generic policy classifier handles broad categories but misses
// transliterated profanity, which is why this second stage exists.
const languageCheckPrompt = `You are a content moderator for a university student community in Kazakhstan. Decide whether the message contains profanity, slurs, or targeted insults in any language or script, including Kazakh, Russian and English written in Cyrillic, Latin, or mixed transliteration.

A message that complains about or vents at an unnamed role or institution (a course, "my professor", the dorm administration) is ALLOWED. A message that names and attacks a specific real person is NOT allowed.

Answer with a single word: YES if the message contains disallowed language, NO otherwise.`

// imageCheckPrompt instructs the vision classifier. The answer must be
// exactly YES for the image to pass.
const imageCheckPrompt = `You are a content moderator for a university student community. Look at the image and decide if it is appropriate for a public student feed. Nudity, sexual content, graphic violence, hate symbols, or visible offensive text in any language (including Kazakh and Russian, in any script) make it inappropriate.

Answer with a single word: YES if the image is appropriate, NO if it is not.`

// Submission is the ephemeral input to one pipeline run. It is constructed
// from the request body, consumed once, and discarded.
type Submission struct {
	Kind     ContentKind
	Text     string
	ImageKey string
}

// Pipeline runs the ordered moderation stages over submitted content:
// generic policy classification, then language-specific abuse classification,
// then image classification when an image is attached. It short-circuits on
// the first failing stage. Cheap text checks run before the image check so a
// flagrant text violation never incurs image-classification cost.
type Pipeline struct {
	policy PolicyClassifier
	chat   ChatClassifier
	signer storage.ObjectSigner
}

// NewPipeline creates a moderation pipeline. The signer may be nil when the
// deployment has no object storage; image-bearing submissions then fail with
// an upstream error rather than skipping the check.
func NewPipeline(policy PolicyClassifier, chat ChatClassifier, signer storage.ObjectSigner) *Pipeline {
	return &Pipeline{
		policy: policy,
		chat:   chat,
		signer: signer,
	}
}

// Review runs every applicable stage and returns the trimmed text ready for
// persistence. On failure it returns an *errors.APIError: MODERATION_REJECTED
// when a classifier turned the content away, UPSTREAM_FAILED when a
// classifier or the object store could not produce a verdict at all. No state
// is created either way.
func (p *Pipeline) Review(ctx context.Context, sub Submission) (string, error) {
	trimmed := strings.TrimSpace(sub.Text)

	// Text fields are optional: an image-only submission skips the text
	// stages entirely.
	if trimmed != "" {
		if err := p.checkPolicy(ctx, sub.Kind, trimmed); err != nil {
			return "", err
		}
		if err := p.checkLanguage(ctx, sub.Kind, trimmed); err != nil {
			return "", err
		}
	}

	if sub.ImageKey != "" {
		if err := p.checkImage(ctx, sub.ImageKey); err != nil {
			return "", err
		}
	}

	return trimmed, nil
}

// checkPolicy runs the generic content-policy classifier
func (p *Pipeline) checkPolicy(ctx context.Context, kind ContentKind, text string) error {
	m := metrics.Get()
	start := time.Now()
	verdict, err := p.policy.ClassifyText(ctx, text)
	m.ModerationCheckDuration.WithLabelValues("policy").Observe(time.Since(start).Seconds())

	if err != nil {
		m.ModerationChecksTotal.WithLabelValues("policy", "error").Inc()
		logger.ErrorWithFields("policy classifier call failed", err)
		return errors.UpstreamFailure("Failed to verify content")
	}

	if verdict.Flagged {
		m.ModerationChecksTotal.WithLabelValues("policy", "rejected").Inc()
		logger.Log.Warn("content rejected by policy classifier",
			zap.String("kind", string(kind)),
		)
		return errors.ModerationRejected(fmt.Sprintf("%s violates community guidelines", kind))
	}

	m.ModerationChecksTotal.WithLabelValues("policy", "pass").Inc()
	return nil
}

// checkLanguage runs the language-specific abuse classifier over a
// length-bounded copy of the text
func (p *Pipeline) checkLanguage(ctx context.Context, kind ContentKind, text string) error {
	m := metrics.Get()
	start := time.Now()
	answer, err := p.chat.Answer(ctx, Prompt{
		System: languageCheckPrompt,
		Text:   util.TruncateRunes(text, languageCheckMaxRunes),
	})
	m.ModerationCheckDuration.WithLabelValues("language").Observe(time.Since(start).Seconds())

	if err != nil {
		m.ModerationChecksTotal.WithLabelValues("language", "error").Inc()
		logger.ErrorWithFields("language classifier call failed", err)
		return errors.UpstreamFailure("Failed to verify content")
	}

	// The classifier is instructed to answer a single token, but any answer
	// containing YES counts as a rejection.
	if strings.Contains(strings.ToUpper(answer), "YES") {
		m.ModerationChecksTotal.WithLabelValues("language", "rejected").Inc()
		logger.Log.Warn("content rejected by language classifier",
			zap.String("kind", string(kind)),
			zap.String("answer", answer),
		)
		return errors.ModerationRejected(fmt.Sprintf("%s contains language that is not allowed", kind))
	}

	m.ModerationChecksTotal.WithLabelValues("language", "pass").Inc()
	return nil
}

// checkImage signs a short-lived read URL for the stored image and asks the
// vision classifier about it. The answer must be exactly YES.
func (p *Pipeline) checkImage(ctx context.Context, imageKey string) error {
	m := metrics.Get()

	if p.signer == nil {
		m.ModerationChecksTotal.WithLabelValues("image", "error").Inc()
		return errors.UpstreamFailure("Failed to process image")
	}

	signedURL, err := p.signer.SignedURL(ctx, imageKey, signedURLTTL)
	if err != nil {
		m.ModerationChecksTotal.WithLabelValues("image", "error").Inc()
		logger.ErrorWithFields("failed to sign image URL for moderation", err)
		return errors.UpstreamFailure("Failed to process image")
	}

	start := time.Now()
	answer, err := p.chat.Answer(ctx, Prompt{
		Text:     imageCheckPrompt,
		ImageURL: signedURL,
	})
	m.ModerationCheckDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())

	if err != nil {
		m.ModerationChecksTotal.WithLabelValues("image", "error").Inc()
		logger.ErrorWithFields("image classifier call failed", err)
		return errors.UpstreamFailure("Failed to process image")
	}

	if strings.TrimSpace(answer) != "YES" {
		m.ModerationChecksTotal.WithLabelValues("image", "rejected").Inc()
		logger.Log.Warn("image rejected by vision classifier",
			zap.String("answer", answer),
		)
		return errors.ModerationRejected("Image violates community guidelines")
	}

	m.ModerationChecksTotal.WithLabelValues("image", "pass").Inc()
	return nil
}
