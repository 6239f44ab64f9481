package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/pkg/metrics"
	"go.uber.org/zap"
)

// State is the terminal state of a generation, used as a metric label.
type State string

const (
	StateSucceeded        State = "succeeded"
	StateCacheHit         State = "cache_hit"
	StateExhaustedRetries State = "exhausted_retries"
	StateQuotaDenied      State = "quota_denied"
	StateNotEntitled      State = "not_entitled"
	StateUpstreamError    State = "upstream_error"
	StateInvalid          State = "invalid"
)

// Options tune the pipeline.
type Options struct {
	Models         Models
	TTLs           TTLs
	AttemptTimeout time.Duration
	MaxNoteChars   int
}

// Pipeline runs a generation from quota check to ledger update.
type Pipeline struct {
	ledger    *quota.Ledger
	cache     Cache
	completer Completer
	opts      Options
	log       *zap.Logger
	now       func() time.Time
}

func NewPipeline(ledger *quota.Ledger, cache Cache, completer Completer, opts Options, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Pipeline{
		ledger:    ledger,
		cache:     cache,
		completer: timeoutCompleter{next: completer, timeout: opts.AttemptTimeout},
		opts:      opts,
		log:       logger.Named("ai"),
		now:       time.Now,
	}
}

func (p *Pipeline) Models() Models { return p.opts.Models }

// Generate runs one request through the pipeline.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*Result, error) {
	kind := string(req.Subject.Kind)
	res, state, err := p.generate(ctx, req)
	metrics.Generations.WithLabelValues(kind, string(state)).Inc()
	return res, err
}

func (p *Pipeline) generate(ctx context.Context, req Request) (*Result, State, error) {
	prefs, err := normalizeRequest(&req)
	if err != nil {
		return nil, StateInvalid, err
	}

	account, err := p.checkQuota(ctx, req, prefs)
	if err != nil {
		if errors.Is(err, quota.ErrNotEntitled) {
			return nil, StateNotEntitled, err
		}
		return nil, StateQuotaDenied, err
	}

	cacheable := !req.hasNotes()
	key := Fingerprint(req.Subject, prefs)
	if cacheable {
		if entry, ok := p.lookup(ctx, key); ok {
			b := quota.BalanceOf(account)
			return &Result{
				Text:             entry.Text,
				FromCache:        true,
				CreditsRemaining: b.Remaining,
				CreditsTotal:     b.Total,
			}, StateCacheHit, nil
		}
	}

	started := p.now()
	attempts, err := p.runLadder(ctx, req, prefs)
	metrics.GenerationDuration.WithLabelValues(string(req.Subject.Kind)).Observe(p.now().Sub(started).Seconds())
	if err != nil {
		return nil, StateUpstreamError, err
	}

	final := attempts[len(attempts)-1]
	complete := IsComplete(final.Text, final.Preferences.StudyGuide)
	text := final.Text
	incomplete := LooksCutOff(text, final.Preferences.StudyGuide)
	if incomplete {
		text = WithAdvisory(text, prefs.Language)
	}

	balance, err := p.settle(ctx, req)
	if err != nil {
		return nil, StateQuotaDenied, err
	}

	if cacheable && complete {
		entry := CacheEntry{Text: text, CreatedAt: p.now(), Preferences: prefs}
		if err := p.cache.Put(ctx, key, entry, p.opts.TTLs.For(req.Subject.Kind)); err != nil {
			p.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	state := StateSucceeded
	if !complete {
		state = StateExhaustedRetries
	}
	return &Result{
		Text:             text,
		Model:            final.Model,
		Attempts:         len(attempts),
		Incomplete:       incomplete,
		CreditsRemaining: balance.Remaining,
		CreditsTotal:     balance.Total,
		AttemptLog:       attempts,
	}, state, nil
}

func normalizeRequest(req *Request) (Preferences, error) {
	req.Subject.Title = strings.TrimSpace(req.Subject.Title)
	req.Subject.Author = strings.TrimSpace(req.Subject.Author)
	if req.UserID == "" {
		return Preferences{}, &ValidationError{Reason: "user is required"}
	}
	switch req.Subject.Kind {
	case KindBook:
		if req.Subject.Title == "" {
			return Preferences{}, &ValidationError{Reason: "title is required"}
		}
	case KindAuthor:
		req.Subject.Title = ""
	default:
		return Preferences{}, &ValidationError{Reason: fmt.Sprintf("unknown subject kind %q", req.Subject.Kind)}
	}
	if req.Subject.Author == "" {
		return Preferences{}, &ValidationError{Reason: "author is required"}
	}
	prefs := req.Preferences.WithDefaults()
	if err := prefs.Validate(req.Subject.Kind); err != nil {
		return Preferences{}, &ValidationError{Reason: err.Error()}
	}
	return prefs, nil
}

// checkQuota resolves the two denial reasons: missing entitlement and an
// empty balance. A pre-deducted request must carry a live receipt instead.
func (p *Pipeline) checkQuota(ctx context.Context, req Request, prefs Preferences) (*models.UserModel, error) {
	account, err := p.ledger.Account(ctx, req.UserID, req.Email)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	for _, feature := range requiredFeatures(req.Subject.Kind, prefs) {
		if err := p.ledger.CheckEntitlement(account, feature); err != nil {
			return nil, err
		}
	}

	if req.CreditsDeducted {
		if err := p.ledger.VerifyReceipt(ctx, req.UserID, req.Receipt); err != nil {
			return nil, err
		}
		p.log.Warn("generation uses a pre-deducted credit", zap.String("user_id", req.UserID))
		return account, nil
	}
	if err := p.ledger.CheckCredits(account); err != nil {
		return nil, err
	}
	return account, nil
}

func requiredFeatures(kind SubjectKind, prefs Preferences) []quota.Feature {
	var out []quota.Feature
	if kind == KindAuthor {
		out = append(out, quota.FeatureAuthorSummaries)
	}
	if prefs.StudyGuide {
		out = append(out, quota.FeatureStudyGuide)
	}
	if prefs.ExamFocus || prefs.LiteraryContext {
		out = append(out, quota.FeatureExtraContext)
	}
	return out
}

func (p *Pipeline) lookup(ctx context.Context, key string) (*CacheEntry, bool) {
	entry, ok, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	case !ok:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return entry, true
	}
}

// runLadder makes at most MaxAttempts sequential calls. It stops at the first
// complete text or at the last rung, whatever its completeness.
func (p *Pipeline) runLadder(ctx context.Context, req Request, prefs Preferences) ([]Attempt, error) {
	inputLen := utf8.RuneCountInString(strings.TrimSpace(req.Notes))
	attempts := make([]Attempt, 0, MaxAttempts)

	for i := 1; i <= MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return attempts, &UpstreamError{Attempts: len(attempts), Err: err}
		}

		ap := AttemptPreferences(prefs, i)
		sel := SelectModel(p.opts.Models, ap, inputLen, i)
		prompt := BuildPrompt(req.Subject, req.Notes, ap, p.opts.MaxNoteChars)

		start := p.now()
		text, err := p.completer.Complete(ctx, CompletionRequest{
			Model:            sel.Model,
			System:           prompt.System,
			User:             prompt.User,
			MaxTokens:        sel.MaxTokens,
			Temperature:      temperatureFor(ap.Style),
			FrequencyPenalty: frequencyPenalty,
			PresencePenalty:  presencePenalty,
		})
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyCompletion
		}
		attempt := Attempt{
			Index:       i,
			Preferences: ap,
			Model:       sel.Model,
			ModelTier:   sel.Tier,
			MaxTokens:   sel.MaxTokens,
			Text:        text,
			Err:         err,
			Duration:    p.now().Sub(start),
		}
		attempts = append(attempts, attempt)

		p.log.Info("generation attempt",
			zap.Int("attempt", i),
			zap.String("model", sel.Model),
			zap.String("tier", string(sel.Tier)),
			zap.Int("max_tokens", sel.MaxTokens),
			zap.Duration("duration", attempt.Duration),
		)

		if err != nil {
			outcome := "error"
			if errors.Is(err, ErrEmptyCompletion) {
				outcome = "empty"
			}
			metrics.GenerationAttempts.WithLabelValues(string(sel.Tier), outcome).Inc()
			if i == MaxAttempts {
				return attempts, &UpstreamError{Attempts: i, Err: err}
			}
			p.log.Warn("generation attempt failed, retrying", zap.Int("attempt", i), zap.Error(err))
			continue
		}

		if IsComplete(text, ap.StudyGuide) {
			metrics.GenerationAttempts.WithLabelValues(string(sel.Tier), "complete").Inc()
			return attempts, nil
		}
		metrics.GenerationAttempts.WithLabelValues(string(sel.Tier), "incomplete").Inc()
		if i < MaxAttempts {
			p.log.Warn("generation incomplete, retrying", zap.Int("attempt", i), zap.Int("chars", utf8.RuneCountInString(text)))
		}
	}
	return attempts, nil
}

// settle takes the credit for a delivered generation. A pre-deducted request
// redeems its receipt; if the receipt lapsed meanwhile a credit is taken.
func (p *Pipeline) settle(ctx context.Context, req Request) (quota.Balance, error) {
	if req.CreditsDeducted {
		err := p.ledger.RedeemReceipt(ctx, req.UserID, req.Receipt)
		if err == nil {
			account, getErr := p.ledger.Get(ctx, req.UserID)
			if getErr != nil {
				return quota.Balance{}, fmt.Errorf("load account: %w", getErr)
			}
			return quota.BalanceOf(account), nil
		}
		if !errors.Is(err, quota.ErrInvalidReceipt) {
			return quota.Balance{}, fmt.Errorf("redeem receipt: %w", err)
		}
		p.log.Warn("receipt lapsed during generation, charging a credit", zap.String("user_id", req.UserID))
	}
	return p.ledger.Consume(ctx, req.UserID)
}
