package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
)

type fakeGenerator struct {
	id    string
	label string

	mu      sync.Mutex
	calls   []string
	images  int
	err     error
	panicky bool
	// block waits for release or ctx before answering
	block   chan struct{}
	onStart func()
}

func succeeding(id string, images int) *fakeGenerator {
	return &fakeGenerator{id: id, label: "Label " + id, images: images}
}

func failing(id string) *fakeGenerator {
	return &fakeGenerator{id: id, label: "Label " + id, err: errors.New(id + " is down")}
}

func (g *fakeGenerator) ID() string    { return g.id }
func (g *fakeGenerator) Label() string { return g.label }

func (g *fakeGenerator) Generate(ctx context.Context, prompt entity.Prompt) entity.ImageResult {
	g.mu.Lock()
	g.calls = append(g.calls, prompt.Text)
	onStart := g.onStart
	g.mu.Unlock()

	if onStart != nil {
		onStart()
	}
	if g.panicky {
		panic("adapter bug")
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return entity.Failure(g.id, ctx.Err())
		}
	}
	if g.err != nil {
		return entity.Failure(g.id, g.err)
	}

	images := make([]entity.Image, g.images)
	for i := range images {
		images[i] = entity.Image{Data: []byte(g.id), MIMEType: "image/png"}
	}
	return entity.Success(g.id, images)
}

func (g *fakeGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type sentImage struct {
	ChatID  int64
	Image   entity.Image
	Caption string
}

type presented struct {
	ChatID  int64
	Text    string
	Choices []Choice
}

type fakeNotifier struct {
	mu       sync.Mutex
	texts    []string
	images   []sentImage
	choices  []presented
	imageErr   error
	presentErr error
	// imageSent receives after every delivered image when set
	imageSent chan sentImage
}

func (n *fakeNotifier) SendText(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

func (n *fakeNotifier) SendImage(ctx context.Context, chatID int64, image entity.Image, caption string) error {
	n.mu.Lock()
	if n.imageErr != nil {
		n.mu.Unlock()
		return n.imageErr
	}
	img := sentImage{ChatID: chatID, Image: image, Caption: caption}
	n.images = append(n.images, img)
	ch := n.imageSent
	n.mu.Unlock()

	if ch != nil {
		ch <- img
	}
	return nil
}

func (n *fakeNotifier) PresentChoices(ctx context.Context, chatID int64, text string, choices []Choice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.presentErr != nil {
		return n.presentErr
	}
	n.choices = append(n.choices, presented{ChatID: chatID, Text: text, Choices: choices})
	return nil
}

func (n *fakeNotifier) Texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

func (n *fakeNotifier) Images() []sentImage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentImage(nil), n.images...)
}

func (n *fakeNotifier) Presented() []presented {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]presented(nil), n.choices...)
}

// fakeSelections shares the clock with the workflow under test.
type fakeSelections struct {
	mu      sync.Mutex
	now     func() time.Time
	pending map[int64]entity.PendingSelection
}

func newFakeSelections(now func() time.Time) *fakeSelections {
	return &fakeSelections{now: now, pending: make(map[int64]entity.PendingSelection)}
}

func (s *fakeSelections) Put(ctx context.Context, selection entity.PendingSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[selection.UserID] = selection
	return nil
}

func (s *fakeSelections) Take(ctx context.Context, userID int64) (*entity.PendingSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.pending[userID]
	delete(s.pending, userID)
	if !ok || sel.Expired(s.now()) {
		return nil, entity.ErrSelectionNotFound
	}
	return &sel, nil
}

func (s *fakeSelections) Close() error { return nil }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []entity.Outcome
	policies []entity.PolicyKind
}

func (o *recordingObserver) ObserveOutcome(policy entity.PolicyKind, outcome entity.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.policies = append(o.policies, policy)
	o.outcomes = append(o.outcomes, outcome)
}
