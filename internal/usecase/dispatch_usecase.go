package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SelectionPrefix prefixes the callback token of a backend choice
const SelectionPrefix = "gen:"

// DefaultGenerationTimeout bounds one adapter call
const DefaultGenerationTimeout = 90 * time.Second

// Choice is one button offered under the user choice policy
type Choice struct {
	Label string
	Token string
}

// ChoiceToken builds the callback token for a provider
func ChoiceToken(providerID string) string {
	return SelectionPrefix + providerID
}

// ParseChoiceToken extracts the provider id from a callback token
func ParseChoiceToken(data string) (string, bool) {
	if !strings.HasPrefix(data, SelectionPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(data, SelectionPrefix)
	return id, id != ""
}

// Notifier is the outbound side of the chat transport
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendImage(ctx context.Context, chatID int64, image entity.Image, caption string) error
	PresentChoices(ctx context.Context, chatID int64, text string, choices []Choice) error
}

// OutcomeObserver receives every finished dispatch
type OutcomeObserver interface {
	ObserveOutcome(policy entity.PolicyKind, outcome entity.Outcome)
}

// DispatchUseCase turns user prompts into delivered images
type DispatchUseCase interface {
	Start(ctx context.Context, sender entity.Sender)
	Help(ctx context.Context, sender entity.Sender)
	SubmitPrompt(ctx context.Context, sender entity.Sender, text string) entity.Outcome
	Select(ctx context.Context, sender entity.Sender, providerID string) entity.Outcome
}

// DispatchOptions tunes the workflow around the policy
type DispatchOptions struct {
	Policy entity.DispatchPolicy

	// Timeout bounds each adapter call; zero means DefaultGenerationTimeout
	Timeout time.Duration
	// ProgressNotice sends a short "generating" message before dispatching
	ProgressNotice bool
	// SelectionTTL expires parked prompts; zero keeps them until used
	SelectionTTL time.Duration

	Observer     OutcomeObserver
	Now          func() time.Time
	NewRequestID func() string
}

type dispatchUseCase struct {
	policy     entity.DispatchPolicy
	generators map[string]repository.ImageGenerator
	order      []string
	selections repository.SelectionRepository
	notifier   Notifier
	observer   OutcomeObserver
	logger     *zap.Logger

	timeout      time.Duration
	progress     bool
	selectionTTL time.Duration
	now          func() time.Time
	newRequestID func() string
}

// NewDispatchUseCase validates the policy against the generators and
// builds the workflow. selections is required only for the choice policy.
func NewDispatchUseCase(
	generators []repository.ImageGenerator,
	selections repository.SelectionRepository,
	notifier Notifier,
	opts DispatchOptions,
	logger *zap.Logger,
) (DispatchUseCase, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := make(map[string]repository.ImageGenerator, len(generators))
	order := make([]string, 0, len(generators))
	for _, gen := range generators {
		if _, dup := registry[gen.ID()]; dup {
			return nil, fmt.Errorf("provider %q registered twice", gen.ID())
		}
		registry[gen.ID()] = gen
		order = append(order, gen.ID())
	}

	known := func(id string) bool {
		_, ok := registry[id]
		return ok
	}
	if err := opts.Policy.Validate(known); err != nil {
		return nil, fmt.Errorf("invalid dispatch policy: %w", err)
	}
	if opts.Policy.Kind == entity.PolicyUserChoice && selections == nil {
		return nil, errors.New("choice policy needs a selection repository")
	}

	u := &dispatchUseCase{
		policy:       opts.Policy,
		generators:   registry,
		order:        order,
		selections:   selections,
		notifier:     notifier,
		observer:     opts.Observer,
		logger:       logger.With(zap.String("component", "dispatch"), zap.String("policy", string(opts.Policy.Kind))),
		timeout:      opts.Timeout,
		progress:     opts.ProgressNotice,
		selectionTTL: opts.SelectionTTL,
		now:          opts.Now,
		newRequestID: opts.NewRequestID,
	}
	if u.timeout <= 0 {
		u.timeout = DefaultGenerationTimeout
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.newRequestID == nil {
		u.newRequestID = uuid.NewString
	}
	return u, nil
}

func (u *dispatchUseCase) Start(ctx context.Context, sender entity.Sender) {
	u.sendText(ctx, sender.ChatID, greetingText)
}

func (u *dispatchUseCase) Help(ctx context.Context, sender entity.Sender) {
	u.sendText(ctx, sender.ChatID, u.helpText())
}

// SubmitPrompt runs the workflow for one prompt, or parks it when the user
// has to pick a backend first.
func (u *dispatchUseCase) SubmitPrompt(ctx context.Context, sender entity.Sender, text string) entity.Outcome {
	requestID := u.newRequestID()
	log := u.logger.With(zap.String("request_id", requestID), zap.Int64("user_id", sender.UserID))

	prompt, err := entity.NewPrompt(sender, text, requestID, u.now())
	if err != nil {
		log.Info("prompt rejected", zap.Error(err))
		u.sendText(ctx, sender.ChatID, emptyPromptText)
		return u.finish(entity.Outcome{RequestID: requestID, Class: entity.OutcomeRejected, Err: err})
	}

	switch u.policy.Kind {
	case entity.PolicySingle:
		u.sendProgress(ctx, sender.ChatID, u.generators[u.policy.Primary].Label())
		return u.finish(u.runChain(ctx, log, sender.ChatID, prompt, u.chain(u.policy.Primary)))

	case entity.PolicyFallback:
		u.sendProgress(ctx, sender.ChatID, u.generators[u.policy.Primary].Label())
		return u.finish(u.runChain(ctx, log, sender.ChatID, prompt, u.chain(u.policy.Primary, u.policy.Secondary)))

	case entity.PolicyBroadcast:
		u.sendProgress(ctx, sender.ChatID, "")
		return u.finish(u.broadcast(ctx, log, sender.ChatID, prompt))

	default:
		return u.finish(u.awaitSelection(ctx, log, sender, prompt))
	}
}

// Select resumes a parked prompt with the chosen provider. The pending
// entry is consumed here, so a second tap on the same keyboard finds nothing.
func (u *dispatchUseCase) Select(ctx context.Context, sender entity.Sender, providerID string) entity.Outcome {
	log := u.logger.With(zap.Int64("user_id", sender.UserID), zap.String("choice", providerID))

	// stale keyboard from a run with another policy
	if u.policy.Kind != entity.PolicyUserChoice || u.selections == nil {
		log.Info("selection outside user choice policy")
		u.sendText(ctx, sender.ChatID, selectionNotFoundText)
		return u.finish(entity.Outcome{Class: entity.OutcomeNoSelection, Err: entity.ErrSelectionNotFound})
	}

	if !u.offered(providerID) {
		log.Warn("unknown choice")
		u.sendText(ctx, sender.ChatID, unknownChoiceText)
		return entity.Outcome{Class: entity.OutcomeRejected, Err: fmt.Errorf("choice %q: %w", providerID, entity.ErrUnknownProvider)}
	}

	pending, err := u.selections.Take(ctx, sender.UserID)
	if err != nil {
		if errors.Is(err, entity.ErrSelectionNotFound) {
			log.Info("no pending selection")
			u.sendText(ctx, sender.ChatID, selectionNotFoundText)
			return u.finish(entity.Outcome{Class: entity.OutcomeNoSelection, Err: err})
		}
		log.Error("failed to take pending selection", zap.Error(err))
		u.sendText(ctx, sender.ChatID, internalErrorText)
		return u.finish(entity.Outcome{Class: entity.OutcomeFailure, Err: err})
	}

	log = log.With(zap.String("request_id", pending.Prompt.RequestID))
	chatID := pending.ChatID
	if chatID == 0 {
		chatID = sender.ChatID
	}

	ids := []string{providerID}
	if u.policy.ChoiceFallback {
		for _, id := range u.policy.Providers {
			if id != providerID {
				ids = append(ids, id)
			}
		}
	}

	u.sendProgress(ctx, chatID, u.generators[providerID].Label())
	return u.finish(u.runChain(ctx, log, chatID, pending.Prompt, u.chain(ids...)))
}

func (u *dispatchUseCase) awaitSelection(ctx context.Context, log *zap.Logger, sender entity.Sender, prompt entity.Prompt) entity.Outcome {
	now := u.now()
	pending := entity.PendingSelection{
		UserID:    sender.UserID,
		ChatID:    sender.ChatID,
		Username:  sender.Username,
		Prompt:    prompt,
		CreatedAt: now,
	}
	if u.selectionTTL > 0 {
		pending.ExpiresAt = now.Add(u.selectionTTL)
	}

	if err := u.selections.Put(ctx, pending); err != nil {
		log.Error("failed to store pending selection", zap.Error(err))
		u.sendText(ctx, sender.ChatID, internalErrorText)
		return entity.Outcome{RequestID: prompt.RequestID, Class: entity.OutcomeFailure, Err: err}
	}

	choices := make([]Choice, 0, len(u.policy.Providers))
	for _, id := range u.policy.Providers {
		choices = append(choices, Choice{Label: u.generators[id].Label(), Token: ChoiceToken(id)})
	}

	if err := u.notifier.PresentChoices(ctx, sender.ChatID, chooseText, choices); err != nil {
		log.Error("failed to present choices", zap.Error(err))
		if _, takeErr := u.selections.Take(ctx, sender.UserID); takeErr != nil && !errors.Is(takeErr, entity.ErrSelectionNotFound) {
			log.Warn("failed to drop pending selection", zap.Error(takeErr))
		}
		u.sendText(ctx, sender.ChatID, internalErrorText)
		return entity.Outcome{RequestID: prompt.RequestID, Class: entity.OutcomeFailure, Err: err}
	}

	log.Info("prompt parked for selection")
	return entity.Outcome{RequestID: prompt.RequestID, Class: entity.OutcomeAwaitingChoice}
}

// runChain tries generators in order and stops at the first success. The
// next generator is called only after the previous one resolved.
func (u *dispatchUseCase) runChain(ctx context.Context, log *zap.Logger, chatID int64, prompt entity.Prompt, chain []repository.ImageGenerator) entity.Outcome {
	out := entity.Outcome{RequestID: prompt.RequestID}

	var lastErr error
	for _, gen := range chain {
		result := u.generate(ctx, log, gen, prompt)
		if !result.OK() {
			out.Masked = append(out.Masked, gen.ID())
			lastErr = result.Err
			continue
		}

		if len(out.Masked) > 0 && u.policy.AnnounceFallback {
			u.sendText(ctx, chatID, fallbackText(u.labels(out.Masked), gen.Label()))
		}
		out.Delivered = u.deliver(ctx, log, chatID, gen, result.Images)
		out.Used = []string{gen.ID()}
		out.Class = entity.OutcomeSuccess
		return out
	}

	out.Failed, out.Masked = out.Masked, nil
	out.Class = entity.OutcomeFailure
	if len(chain) == 1 {
		out.Err = lastErr
		u.sendText(ctx, chatID, failureText(chain[0]))
	} else {
		out.Err = entity.ErrAllBackendsFailed
		u.sendText(ctx, chatID, allFailedText(out.Failed))
	}
	log.Warn("dispatch failed", zap.Strings("failed", out.Failed), zap.Error(out.Err))
	return out
}

// broadcast calls every configured generator. Each success is delivered as
// soon as it resolves; failure notices go out once all calls are done.
func (u *dispatchUseCase) broadcast(ctx context.Context, log *zap.Logger, chatID int64, prompt entity.Prompt) entity.Outcome {
	chain := u.chain(u.policy.Providers...)
	results := make([]entity.ImageResult, len(chain))

	var (
		mu        sync.Mutex
		delivered int
	)
	run := func(i int, gen repository.ImageGenerator) {
		results[i] = u.generate(ctx, log, gen, prompt)
		if !results[i].OK() {
			return
		}
		n := u.deliver(ctx, log, chatID, gen, results[i].Images)
		mu.Lock()
		delivered += n
		mu.Unlock()
	}

	if u.policy.Sequential {
		for i, gen := range chain {
			run(i, gen)
		}
	} else {
		var g errgroup.Group
		for i, gen := range chain {
			g.Go(func() error {
				run(i, gen)
				return nil
			})
		}
		_ = g.Wait()
	}

	out := entity.Outcome{RequestID: prompt.RequestID, Delivered: delivered}
	var failures []repository.ImageGenerator
	for i, result := range results {
		if result.OK() {
			out.Used = append(out.Used, chain[i].ID())
			continue
		}
		out.Failed = append(out.Failed, chain[i].ID())
		failures = append(failures, chain[i])
	}

	switch {
	case len(failures) == 0:
		out.Class = entity.OutcomeSuccess
	case len(failures) == len(chain):
		out.Class = entity.OutcomeFailure
		if len(chain) == 1 {
			out.Err = results[0].Err
			u.sendText(ctx, chatID, failureText(chain[0]))
		} else {
			out.Err = entity.ErrAllBackendsFailed
			u.sendText(ctx, chatID, allFailedText(out.Failed))
		}
		log.Warn("broadcast failed", zap.Strings("failed", out.Failed))
	default:
		out.Class = entity.OutcomePartial
		if !u.policy.SuppressPartialFailures {
			for _, gen := range failures {
				u.sendText(ctx, chatID, failureText(gen))
			}
		}
		log.Info("broadcast partially failed", zap.Strings("failed", out.Failed), zap.Strings("used", out.Used))
	}
	return out
}

// generate calls one adapter under the per-call timeout. A panicking adapter
// becomes a failed result.
func (u *dispatchUseCase) generate(ctx context.Context, log *zap.Logger, gen repository.ImageGenerator, prompt entity.Prompt) (result entity.ImageResult) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	start := u.now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("adapter panicked", zap.String("provider", gen.ID()), zap.Any("panic", r))
			result = entity.Failure(gen.ID(), fmt.Errorf("adapter panic: %v", r))
		}
		if result.OK() {
			log.Info("image generated",
				zap.String("provider", gen.ID()),
				zap.Int("images", len(result.Images)),
				zap.Duration("duration", u.now().Sub(start)))
		} else {
			log.Warn("generation failed",
				zap.String("provider", gen.ID()),
				zap.Duration("duration", u.now().Sub(start)),
				zap.Error(result.Err))
		}
	}()

	result = gen.Generate(ctx, prompt)
	if !result.OK() && result.Err == nil {
		result = entity.Failure(gen.ID(), entity.ErrNoImage)
	}
	return result
}

// deliver sends every image and returns how many reached the chat
func (u *dispatchUseCase) deliver(ctx context.Context, log *zap.Logger, chatID int64, gen repository.ImageGenerator, images []entity.Image) int {
	sent := 0
	for i, img := range images {
		if err := u.notifier.SendImage(ctx, chatID, img, caption(gen.Label(), i, len(images))); err != nil {
			log.Error("failed to send image", zap.String("provider", gen.ID()), zap.Int("index", i), zap.Error(err))
			continue
		}
		sent++
	}
	if sent == 0 && len(images) > 0 {
		u.sendText(ctx, chatID, deliveryFailedText)
	}
	return sent
}

func (u *dispatchUseCase) finish(out entity.Outcome) entity.Outcome {
	if u.observer != nil {
		u.observer.ObserveOutcome(u.policy.Kind, out)
	}
	return out
}

func (u *dispatchUseCase) chain(ids ...string) []repository.ImageGenerator {
	gens := make([]repository.ImageGenerator, 0, len(ids))
	for _, id := range ids {
		gens = append(gens, u.generators[id])
	}
	return gens
}

func (u *dispatchUseCase) offered(providerID string) bool {
	for _, id := range u.policy.Providers {
		if id == providerID {
			return true
		}
	}
	return false
}

func (u *dispatchUseCase) labels(ids []string) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, u.generators[id].Label())
	}
	return labels
}

func (u *dispatchUseCase) sendProgress(ctx context.Context, chatID int64, label string) {
	if !u.progress {
		return
	}
	u.sendText(ctx, chatID, progressText(label))
}

func (u *dispatchUseCase) sendText(ctx context.Context, chatID int64, text string) {
	if err := u.notifier.SendText(ctx, chatID, text); err != nil {
		u.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (u *dispatchUseCase) helpText() string {
	var b strings.Builder
	b.WriteString("Send any text and I will turn it into an image.\n\n")

	switch u.policy.Kind {
	case entity.PolicySingle:
		fmt.Fprintf(&b, "Model: %s", u.generators[u.policy.Primary].Label())
	case entity.PolicyFallback:
		fmt.Fprintf(&b, "Model: %s, falling back to %s",
			u.generators[u.policy.Primary].Label(), u.generators[u.policy.Secondary].Label())
	case entity.PolicyUserChoice:
		fmt.Fprintf(&b, "You pick the model after sending a prompt: %s", strings.Join(u.labels(u.policy.Providers), ", "))
	case entity.PolicyBroadcast:
		fmt.Fprintf(&b, "Every prompt goes to: %s", strings.Join(u.labels(u.policy.Providers), ", "))
	}

	b.WriteString("\n\nCommands:\n/start - greeting\n/help - this message")
	return b.String()
}
