package moderation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/uniroom/backend/internal/errors"
	"github.com/uniroom/backend/internal/logger"
)

func init() {
	// Pipeline logs rejections; tests need a live logger
	_ = logger.Initialize("error", "/dev/null")
}

// fakePolicy is a PolicyClassifier with call tracking
type fakePolicy struct {
	flagged bool
	err     error
	calls   int
	inputs  []string
}

func (f *fakePolicy) ClassifyText(_ context.Context, text string) (Verdict, error) {
	f.calls++
	f.inputs = append(f.inputs, text)
	if f.err != nil {
		return Verdict{}, f.err
	}
	return Verdict{Flagged: f.flagged, Raw: "{}"}, nil
}

// fakeChat is a ChatClassifier that answers differently for text and image
// prompts, with call tracking
type fakeChat struct {
	textAnswer  string
	imageAnswer string
	err         error
	textCalls   int
	imageCalls  int
	prompts     []Prompt
}

func (f *fakeChat) Answer(_ context.Context, prompt Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if prompt.ImageURL != "" {
		f.imageCalls++
		if f.err != nil {
			return "", f.err
		}
		return f.imageAnswer, nil
	}
	f.textCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.textAnswer, nil
}

// fakeSigner is an ObjectSigner with call tracking
type fakeSigner struct {
	url   string
	err   error
	calls int
	keys  []string
}

func (f *fakeSigner) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.calls++
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func cleanFakes() (*fakePolicy, *fakeChat, *fakeSigner) {
	return &fakePolicy{},
		&fakeChat{textAnswer: "NO", imageAnswer: "YES"},
		&fakeSigner{url: "https://storage.example/signed"}
}

func TestReviewCleanTextPasses(t *testing.T) {
	policy, chat, signer := cleanFakes()
	p := NewPipeline(policy, chat, signer)

	content, err := p.Review(context.Background(), Submission{
		Kind: KindComment,
		Text: "  this class sucks  ",
	})

	require.NoError(t, err)
	assert.Equal(t, "this class sucks", content, "returned content should be trimmed")
	assert.Equal(t, 1, policy.calls)
	assert.Equal(t, 1, chat.textCalls)
	assert.Equal(t, 0, chat.imageCalls)
	assert.Equal(t, 0, signer.calls, "no image, no signing")
}

func TestReviewEmptyTextSkipsTextStages(t *testing.T) {
	policy, chat, signer := cleanFakes()
	p := NewPipeline(policy, chat, signer)

	for _, text := range []string{"", "   ", "\n\t "} {
		content, err := p.Review(context.Background(), Submission{Kind: KindPost, Text: text})
		require.NoError(t, err)
		assert.Empty(t, content)
	}

	assert.Equal(t, 0, policy.calls, "whitespace-only text must not reach the policy classifier")
	assert.Equal(t, 0, chat.textCalls)
}

func TestReviewImageOnlySubmission(t *testing.T) {
	policy, chat, signer := cleanFakes()
	p := NewPipeline(policy, chat, signer)

	content, err := p.Review(context.Background(), Submission{
		Kind:     KindPost,
		ImageKey: "images/2026/08/u1/photo.jpg",
	})

	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Equal(t, 0, policy.calls)
	assert.Equal(t, 0, chat.textCalls)
	assert.Equal(t, 1, signer.calls)
	assert.Equal(t, 1, chat.imageCalls)
	assert.Equal(t, []string{"images/2026/08/u1/photo.jpg"}, signer.keys)
}

func TestReviewPolicyFlaggedShortCircuits(t *testing.T) {
	policy, chat, signer := cleanFakes()
	policy.flagged = true
	p := NewPipeline(policy, chat, signer)

	_, err := p.Review(context.Background(), Submission{
		Kind:     KindPost,
		Text:     "something vile",
		ImageKey: "images/x.jpg",
	})

	require.Error(t, err)
	apiErr, ok := err.(*apperrors.APIError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrModeration, apiErr.Code)
	assert.Equal(t, "Post violates community guidelines", apiErr.Message)
	assert.Equal(t, 400, apiErr.Status)

	// Short-circuit: the later, more expensive stages never ran
	assert.Equal(t, 0, chat.textCalls)
	assert.Equal(t, 0, chat.imageCalls)
	assert.Equal(t, 0, signer.calls)
}

func TestReviewLanguageClassifierYes(t *testing.T) {
	policy, chat, signer := cleanFakes()
	chat.textAnswer = "YES"
	p := NewPipeline(policy, chat, signer)

	_, err := p.Review(context.Background(), Submission{
		Kind: KindComment,
		Text: "Kotakbas Aidar",
	})

	require.Error(t, err)
	apiErr, ok := err.(*apperrors.APIError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrModeration, apiErr.Code)
	assert.Equal(t, "Comment contains language that is not allowed", apiErr.Message)
	assert.Equal(t, 1, policy.calls, "policy stage ran and passed first")
}

func TestReviewLanguageAnswerContainingYes(t *testing.T) {
	// Any answer containing YES is a rejection, even a chatty one
	policy, chat, signer := cleanFakes()
	chat.textAnswer = "Yes, this contains a slur."
	p := NewPipeline(policy, chat, signer)

	_, err := p.Review(context.Background(), Submission{Kind: KindComment, Text: "bad words"})
	require.Error(t, err)
	apiErr := err.(*apperrors.APIError)
	assert.Equal(t, apperrors.ErrModeration, apiErr.Code)
}

func TestReviewLanguageStageTextIsBounded(t *testing.T) {
	policy, chat, signer := cleanFakes()
	p := NewPipeline(policy, chat, signer)

	long := strings.Repeat("ә", 5000)
	_, err := p.Review(context.Background(), Submission{Kind: KindPost, Text: long})
	require.NoError(t, err)

	// The policy stage sees the full text, the language stage a bounded copy
	require.Len(t, policy.inputs, 1)
	assert.Equal(t, 5000, len([]rune(policy.inputs[0])))
	require.Len(t, chat.prompts, 1)
	assert.Equal(t, languageCheckMaxRunes, len([]rune(chat.prompts[0].Text)))
}

func TestReviewSignerFailure(t *testing.T) {
	policy, chat, signer := cleanFakes()
	signer.err = fmt.Errorf("bucket unavailable")
	p := NewPipeline(policy, chat, signer)

	_, err := p.Review(context.Background(), Submission{
		Kind:     KindPost,
		Text:     "clean text",
		ImageKey: "images/x.jpg",
	})

	require.Error(t, err)
	apiErr := err.(*apperrors.APIError)
	assert.Equal(t, apperrors.ErrUpstream, apiErr.Code)
	assert.Equal(t, "Failed to process image", apiErr.Message)
	assert.Equal(t, 0, chat.imageCalls, "vision classifier must not run without a signed URL")
}

func TestReviewVisionAnswerMustBeExactlyYes(t *testing.T) {
	for _, answer := range []string{"NO", "", "yes", "YES.", "I think YES", "MAYBE"} {
		policy, chat, signer := cleanFakes()
		chat.imageAnswer = answer
		p := NewPipeline(policy, chat, signer)

		_, err := p.Review(context.Background(), Submission{Kind: KindPost, ImageKey: "k"})
		require.Error(t, err, "answer %q must be rejected", answer)
		apiErr := err.(*apperrors.APIError)
		assert.Equal(t, apperrors.ErrModeration, apiErr.Code)
		assert.Equal(t, "Image violates community guidelines", apiErr.Message)
	}

	// Surrounding whitespace is tolerated
	policy, chat, signer := cleanFakes()
	chat.imageAnswer = " YES\n"
	p := NewPipeline(policy, chat, signer)
	_, err := p.Review(context.Background(), Submission{Kind: KindPost, ImageKey: "k"})
	assert.NoError(t, err)
	_ = policy
	_ = signer
}

func TestReviewClassifierTransportError(t *testing.T) {
	policy, chat, signer := cleanFakes()
	policy.err = fmt.Errorf("connection refused")
	p := NewPipeline(policy, chat, signer)

	_, err := p.Review(context.Background(), Submission{Kind: KindComment, Text: "hello"})
	require.Error(t, err)
	apiErr := err.(*apperrors.APIError)
	assert.Equal(t, apperrors.ErrUpstream, apiErr.Code, "an infrastructure error is not a moderation rejection")
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, 0, chat.textCalls)
}

func TestReviewIsIdempotentOverCleanInput(t *testing.T) {
	// Two identical clean reviews both pass independently; the pipeline
	// holds no state between runs.
	policy, chat, signer := cleanFakes()
	p := NewPipeline(policy, chat, signer)

	for i := 0; i < 2; i++ {
		content, err := p.Review(context.Background(), Submission{Kind: KindPost, Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
	}
	assert.Equal(t, 2, policy.calls)
	assert.Equal(t, 2, chat.textCalls)
}
