package progression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrek/skilltrek-hub/internal/domain/course"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

type fakeStore struct {
	records map[shared.UserID]*Record
	saves   int

	// failNextSave makes the next SaveProgression fail once.
	failNextSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[shared.UserID]*Record)}
}

func (s *fakeStore) GetProgression(ctx context.Context, userID shared.UserID) (*Record, error) {
	r, ok := s.records[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *fakeStore) SaveProgression(ctx context.Context, userID shared.UserID, totalXP, level int) error {
	if s.failNextSave {
		s.failNextSave = false
		return shared.NewDomainError("progression", "SaveProgression", shared.ErrPersistence, "write failed")
	}
	r, ok := s.records[userID]
	if !ok {
		return shared.ErrUserNotFound
	}
	r.TotalXP = totalXP
	r.Level = level
	s.saves++
	return nil
}

type fakeIdem struct {
	seen map[string]bool
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{seen: make(map[string]bool)}
}

func (f *fakeIdem) MarkOnce(ctx context.Context, key string) (bool, error) {
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdem) Unmark(ctx context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

const testUser = shared.UserID("6f1c3f7a-9f24-4a0d-8f57-0b6a5c9e1d22")

func seededLedger(totalXP int) (*Ledger, *fakeStore) {
	store := newFakeStore()
	progress := LevelFromTotalXP(totalXP)
	store.records[testUser] = &Record{
		UserID:   testUser,
		Username: "demo",
		TotalXP:  totalXP,
		Level:    progress.Level,
	}
	return NewLedger(store, newFakeIdem(), nil), store
}

func threeSectionCourse() *course.Course {
	return &course.Course{
		ID:    "course-1",
		Title: "Go Basics",
		Sections: []course.Section{
			{ID: "s1", IsCompleted: true},
			{ID: "s2", IsCompleted: true},
			{ID: "s3", IsCompleted: true},
		},
	}
}

func TestAwardXP_CourseCompletion(t *testing.T) {
	ledger, store := seededLedger(0)

	res, err := ledger.AwardXP(context.Background(), testUser, ActionCourseCompletion, AwardContext{
		Course: threeSectionCourse(),
	})
	require.NoError(t, err)

	assert.Equal(t, 800, res.XPAwarded) // 500 base + 3×100
	assert.Equal(t, 800, res.TotalXP)
	assert.Equal(t, 2, res.Level)
	assert.True(t, res.IsLevelUp)
	assert.Equal(t, 1, store.saves, "exactly one persisted update per call")
}

func TestAwardXP_UserNotFound(t *testing.T) {
	ledger := NewLedger(newFakeStore(), nil, nil)

	_, err := ledger.AwardXP(context.Background(), testUser, ActionSectionCompletion, AwardContext{})
	assert.True(t, shared.IsNotFound(err))
}

func TestAwardXP_CourseCompletionRequiresCourse(t *testing.T) {
	ledger, _ := seededLedger(0)

	_, err := ledger.AwardXP(context.Background(), testUser, ActionCourseCompletion, AwardContext{})
	assert.True(t, shared.IsValidation(err))
}

func TestAwardXP_UnknownAction(t *testing.T) {
	ledger, _ := seededLedger(0)

	_, err := ledger.AwardXP(context.Background(), testUser, ActionKind("streak_bonus"), AwardContext{})
	assert.True(t, shared.IsValidation(err))
}

func TestAwardXP_DuplicateEventKeyRejected(t *testing.T) {
	ledger, store := seededLedger(0)
	key := EventKey(testUser, "course-1", "s1", ActionSectionCompletion)

	first, err := ledger.AwardXP(context.Background(), testUser, ActionSectionCompletion, AwardContext{EventKey: key})
	require.NoError(t, err)
	assert.Equal(t, 250, first.TotalXP)

	_, err = ledger.AwardXP(context.Background(), testUser, ActionSectionCompletion, AwardContext{EventKey: key})
	assert.True(t, shared.IsDuplicateEvent(err))
	assert.Equal(t, 250, store.records[testUser].TotalXP, "duplicate must not change the total")
	assert.Equal(t, 1, store.saves)
}

// A claimed event key must be released when the award behind it fails to
// persist, so the caller's retry is a full retry and not a duplicate.
func TestAwardXP_FailedSaveReleasesEventKey(t *testing.T) {
	store := newFakeStore()
	store.records[testUser] = &Record{UserID: testUser, Username: "demo", TotalXP: 0, Level: 1}
	idem := newFakeIdem()
	ledger := NewLedger(store, idem, nil)

	key := EventKey(testUser, "course-1", "s1", ActionSectionCompletion)
	store.failNextSave = true

	_, err := ledger.AwardXP(context.Background(), testUser, ActionSectionCompletion, AwardContext{EventKey: key})
	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))
	assert.Empty(t, idem.seen, "key must be released after the failed save")

	res, err := ledger.AwardXP(context.Background(), testUser, ActionSectionCompletion, AwardContext{EventKey: key})
	require.NoError(t, err)
	assert.Equal(t, 250, res.TotalXP)
	assert.Equal(t, 1, store.saves)
}

func TestAwardXP_LevelUpIsInformational(t *testing.T) {
	ledger, _ := seededLedger(1200)

	res, err := ledger.AwardXP(context.Background(), testUser, ActionLevelUp, AwardContext{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.XPAwarded)
	assert.Equal(t, 1200, res.TotalXP)
	assert.False(t, res.IsLevelUp)
}

func TestAwardXP_NegativeStoredXPDegradesToZero(t *testing.T) {
	store := newFakeStore()
	store.records[testUser] = &Record{UserID: testUser, TotalXP: -40, Level: 1}
	ledger := NewLedger(store, nil, nil)

	res, err := ledger.AwardXP(context.Background(), testUser, ActionQuizCompletion, AwardContext{})
	require.NoError(t, err)
	assert.Equal(t, 250, res.TotalXP)
	assert.Equal(t, 1, res.Level)
}

// A user completes a 2-section course: two section awards then the course
// bonus. The final total must land on the curve exactly where direct
// computation puts it.
func TestAwardXP_TwoSectionCourseScenario(t *testing.T) {
	ledger, _ := seededLedger(0)
	ctx := context.Background()

	twoSection := &course.Course{
		ID: "course-2",
		Sections: []course.Section{
			{ID: "s1", IsCompleted: true},
			{ID: "s2", IsCompleted: true},
		},
	}

	res, err := ledger.AwardXP(ctx, testUser, ActionSectionCompletion, AwardContext{
		EventKey: EventKey(testUser, twoSection.ID, "s1", ActionSectionCompletion),
	})
	require.NoError(t, err)
	assert.Equal(t, 250, res.TotalXP)

	res, err = ledger.AwardXP(ctx, testUser, ActionSectionCompletion, AwardContext{
		EventKey: EventKey(testUser, twoSection.ID, "s2", ActionSectionCompletion),
	})
	require.NoError(t, err)
	assert.Equal(t, 500, res.TotalXP)
	assert.True(t, res.IsLevelUp)

	res, err = ledger.AwardXP(ctx, testUser, ActionCourseCompletion, AwardContext{
		EventKey: EventKey(testUser, twoSection.ID, "", ActionCourseCompletion),
		Course:   twoSection,
	})
	require.NoError(t, err)

	assert.Equal(t, 700, res.XPAwarded) // 500 + 2×100
	assert.Equal(t, 1200, res.TotalXP)

	expected := LevelFromTotalXP(1200)
	assert.Equal(t, expected.Level, res.Level)
	assert.Equal(t, expected.XPToNextLevel(), res.XPToNextLevel)
	// 1200 ≥ TotalXPForLevel(3) = 1100, so three awards reach level 3.
	assert.GreaterOrEqual(t, 1200, TotalXPForLevel(3))
	assert.Equal(t, 3, res.Level)
}

func TestSnapshot(t *testing.T) {
	ledger, _ := seededLedger(800)

	snap, err := ledger.Snapshot(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 800, snap.TotalXP)
	assert.Equal(t, 2, snap.Level)
	assert.Equal(t, 300, snap.XPToNextLevel)
	assert.Equal(t, 50, snap.LevelProgressPercent)
}
