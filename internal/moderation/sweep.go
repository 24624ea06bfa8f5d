package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vaayuronics/anticlanker/internal/events"
	"github.com/vaayuronics/anticlanker/internal/oracle"
)

// membershipNoticeTokens mark system-generated membership-change previews
// that the sweep must never classify.
var membershipNoticeTokens = []string{"joined", "left"}

// Sweeper re-scans the group's subgroups a short while after a reckoning.
// Spammers often cross-post into topic streams the webhook does not cover;
// the delay gives the platform's own notices time to appear so they can be
// recognized and skipped.
type Sweeper struct {
	platform     Platform
	classifier   oracle.Classifier
	engine       *Engine
	broadcaster  *events.Broadcaster
	delay        time.Duration
	botName      string
	mentionToken string
	exemptNames  []string // lower-cased

	// baseCtx outlives individual webhook requests; sweeps are
	// fire-and-forget and end only with the process.
	baseCtx context.Context
}

// NewSweeper creates a subgroup sweeper. baseCtx bounds the lifetime of all
// scheduled sweeps.
func NewSweeper(baseCtx context.Context, platform Platform, classifier oracle.Classifier, engine *Engine, broadcaster *events.Broadcaster, delay time.Duration, botName, mentionToken string, exemptNames []string) *Sweeper {
	return &Sweeper{
		platform:     platform,
		classifier:   classifier,
		engine:       engine,
		broadcaster:  broadcaster,
		delay:        delay,
		botName:      botName,
		mentionToken: strings.ToLower(mentionToken),
		exemptNames:  exemptNames,
		baseCtx:      baseCtx,
	}
}

// Schedule runs one sweep for the given offender asynchronously after the
// configured delay. It never blocks the caller and runs at most once per
// invocation.
func (s *Sweeper) Schedule(name, userID string) {
	go func() {
		select {
		case <-time.After(s.delay):
		case <-s.baseCtx.Done():
			return
		}
		s.sweep(s.baseCtx, name, userID)
	}()
}

func (s *Sweeper) sweep(ctx context.Context, name, userID string) {
	slog.Info("Sweeping subgroups for missed spam", "user_id", userID)

	subgroups, err := s.platform.ListSubgroups(ctx)
	if err != nil {
		slog.Error("Sweep failed to list subgroups", "error", err)
		return
	}

	for _, sg := range subgroups {
		// Each stream is evaluated independently; a failure on one must
		// not prevent evaluation of the others.
		s.sweepOne(ctx, sg.Name, sg.Messages.Preview.Nickname, sg.Messages.Preview.Text, sg.Messages.LastMessageID, name, userID)
	}
}

func (s *Sweeper) sweepOne(ctx context.Context, streamName, previewName, previewText, messageID, offenderName, offenderID string) {
	if skip, reason := s.shouldSkip(previewName, previewText); skip {
		slog.Debug("Sweep skipping stream", "stream", streamName, "reason", reason)
		return
	}
	if strings.TrimSpace(previewText) == "" {
		return
	}

	result, err := s.classifier.Classify(ctx, previewText)
	if err != nil {
		slog.Warn("Sweep classification failed", "error", err, "stream", streamName)
		return
	}
	if result.Verdict != oracle.VerdictYes {
		return
	}

	slog.Info("Sweep found missed spam", "stream", streamName, "user_id", offenderID, "message_id", messageID)
	s.broadcaster.Publish(events.Event{Type: events.TypeSweepHit, UserID: offenderID, UserName: offenderName, Detail: previewText})
	s.engine.Reckon(ctx, offenderName, offenderID, previewText, messageID)
}

// shouldSkip applies the preview attribution rules: the bot's own posts,
// system membership notices, exempt identities, and bot mentions are never
// classified.
func (s *Sweeper) shouldSkip(previewName, previewText string) (bool, string) {
	lowerText := strings.ToLower(previewText)

	if strings.EqualFold(previewName, s.botName) {
		return true, "own bot message"
	}
	for _, token := range membershipNoticeTokens {
		if strings.Contains(lowerText, token) {
			return true, "membership notice"
		}
	}
	if s.mentionToken != "" && strings.Contains(lowerText, s.mentionToken) {
		return true, "bot mention"
	}
	lowerName := strings.ToLower(previewName)
	for _, exempt := range s.exemptNames {
		if strings.Contains(lowerName, exempt) {
			return true, "exempt identity"
		}
	}
	return false, ""
}
