package progression

import (
	"context"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// AwardResult is what an award transaction reports back to the caller.
type AwardResult struct {
	// UserID is the awarded user.
	UserID shared.UserID

	// XPAwarded is the delta applied by this call.
	XPAwarded int

	// TotalXP is the lifetime total after the award.
	TotalXP int

	// Level is the level after the award.
	Level int

	// XPToNextLevel is the remaining XP needed for the next level.
	XPToNextLevel int

	// LevelProgressPercent is progress through the current level, 0-100.
	LevelProgressPercent int

	// IsLevelUp reports whether this award crossed a level boundary.
	IsLevelUp bool
}

// Ledger owns the award-XP transaction: read the user's current total,
// compute the delta for the action, apply it through the level curve, and
// persist the new pair. Exactly one persisted update per call and no
// retries; concurrent awards for the same logical event are fenced by the
// idempotency store, not by locks.
type Ledger struct {
	store Store
	idem  IdempotencyStore
	log   *logger.Logger
}

// NewLedger creates a Ledger. The idempotency store may be nil, in which
// case event keys are not checked (callers then carry the full burden of
// not replaying events).
func NewLedger(store Store, idem IdempotencyStore, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Default()
	}
	return &Ledger{
		store: store,
		idem:  idem,
		log:   log.With(logger.Component("progression_ledger")),
	}
}

// AwardXP applies one action's XP to a user. Fails with a NotFound error
// when the user does not exist, with a validation error for an unknown
// action or missing course context, and with a duplicate-event error when
// the event key was already awarded within the dedup window.
func (l *Ledger) AwardXP(ctx context.Context, userID shared.UserID, action ActionKind, awardCtx AwardContext) (*AwardResult, error) {
	if !action.IsValid() {
		return nil, shared.ErrUnknownAction
	}

	xpToAward, err := AwardAmount(action, awardCtx)
	if err != nil {
		return nil, err
	}

	marked := false
	if l.idem != nil && awardCtx.EventKey != "" {
		first, err := l.idem.MarkOnce(ctx, awardCtx.EventKey)
		if err != nil {
			return nil, shared.WrapError("progression", "AwardXP", shared.ErrPersistence, "idempotency check failed", err)
		}
		if !first {
			return nil, shared.ErrDuplicateEvent
		}
		marked = true
	}

	record, err := l.store.GetProgression(ctx, userID)
	if err != nil {
		l.releaseKey(ctx, awardCtx.EventKey, marked)
		return nil, err
	}

	// Partially-initialized records degrade to zero rather than failing.
	previousXP := record.TotalXP
	if previousXP < 0 {
		previousXP = 0
	}
	previousLevel := LevelFromTotalXP(previousXP).Level

	newTotal := previousXP + xpToAward
	progress := LevelFromTotalXP(newTotal)

	if err := l.store.SaveProgression(ctx, userID, newTotal, progress.Level); err != nil {
		l.releaseKey(ctx, awardCtx.EventKey, marked)
		return nil, err
	}

	result := &AwardResult{
		UserID:               userID,
		XPAwarded:            xpToAward,
		TotalXP:              newTotal,
		Level:                progress.Level,
		XPToNextLevel:        progress.XPToNextLevel(),
		LevelProgressPercent: progress.ProgressPercent(),
		IsLevelUp:            progress.Level > previousLevel,
	}

	l.log.Info("xp awarded",
		logger.UserID(userID.String()),
		logger.ActionKind(action.String()),
		logger.XPAmount(xpToAward),
		logger.LevelField(result.Level),
		logger.Bool("is_level_up", result.IsLevelUp),
	)

	return result, nil
}

// releaseKey frees a freshly-claimed event key when the award behind it did
// not persist, so the client's retry is not rejected as a duplicate for the
// rest of the dedup window. Best effort: a failed release only costs the
// retry until the TTL expires, which is the pre-release behavior anyway.
func (l *Ledger) releaseKey(ctx context.Context, eventKey string, marked bool) {
	if !marked {
		return
	}
	if err := l.idem.Unmark(ctx, eventKey); err != nil {
		l.log.Warn("failed to release event key after failed award",
			logger.String("event_key", eventKey),
			logger.Err(err),
		)
	}
}

// Snapshot returns a user's current position on the curve without applying
// any award. The same degradation rule applies: missing or negative stored
// XP reads as zero.
func (l *Ledger) Snapshot(ctx context.Context, userID shared.UserID) (*AwardResult, error) {
	record, err := l.store.GetProgression(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalXP := record.TotalXP
	if totalXP < 0 {
		totalXP = 0
	}
	progress := LevelFromTotalXP(totalXP)

	return &AwardResult{
		UserID:               userID,
		XPAwarded:            0,
		TotalXP:              totalXP,
		Level:                progress.Level,
		XPToNextLevel:        progress.XPToNextLevel(),
		LevelProgressPercent: progress.ProgressPercent(),
		IsLevelUp:            false,
	}, nil
}
