package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/models"
	"gorm.io/gorm"
)

func TestIntakeRotatesEachPoolIndependently(t *testing.T) {
	f := newFixture(t)
	ids := seedProfiles(t, f.db, "A1", "A2", "E1", "S1", "S2")
	ctx := context.Background()

	first, err := f.intake.Intake(ctx, sampleIntake())
	require.NoError(t, err)
	second, err := f.intake.Intake(ctx, sampleIntake())
	require.NoError(t, err)
	third, err := f.intake.Intake(ctx, sampleIntake())
	require.NoError(t, err)

	assert.Equal(t, []uint{ids["A1"], ids["E1"], ids["S1"]}, []uint(first.Assignees))
	assert.Equal(t, []uint{ids["A2"], ids["E1"], ids["S2"]}, []uint(second.Assignees))
	assert.Equal(t, []uint{ids["A1"], ids["E1"], ids["S1"]}, []uint(third.Assignees))

	assert.Equal(t, models.StatusOpen, first.Status)
	assert.Equal(t, models.PriorityMedium, first.Priority)
	assert.Equal(t, []string{"tickets:INSERT", "tickets:INSERT", "tickets:INSERT"}, f.publisher.tables())
	assert.Equal(t, []uint{first.ID, second.ID, third.ID}, f.notifier.assigned)

	cursors, err := NewGormCursorStore(f.db).Cursors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Role]int{models.RoleAdmin: 0, models.RoleEngineer: 0, models.RoleSupport: 0}, cursors)
}

func TestIntakeWrapsAfterFullRotation(t *testing.T) {
	f := newFixture(t)
	ids := seedProfiles(t, f.db, "A1", "A2", "A3", "E1", "S1")

	seen := make([]uint, 0, 7)
	for i := 0; i < 7; i++ {
		ticket, err := f.intake.Intake(context.Background(), sampleIntake())
		require.NoError(t, err)
		seen = append(seen, ticket.Assignees[0])
	}
	a1, a2, a3 := ids["A1"], ids["A2"], ids["A3"]
	assert.Equal(t, []uint{a1, a2, a3, a1, a2, a3, a1}, seen)
}

func TestIntakeEmptyPoolWritesNothing(t *testing.T) {
	f := newFixture(t)
	seedProfiles(t, f.db, "A1", "E1")

	_, err := f.intake.Intake(context.Background(), sampleIntake())
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientUsers(err))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "support")
	assert.NotContains(t, appErr.Details, "admin")

	var tickets, trackers int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Count(&tickets).Error)
	require.NoError(t, f.db.Model(&models.AssignmentTracker{}).Count(&trackers).Error)
	assert.Zero(t, tickets)
	assert.Zero(t, trackers)
	assert.Empty(t, f.publisher.tables())
	assert.Empty(t, f.notifier.assigned)
}

func TestIntakeValidation(t *testing.T) {
	f := newFixture(t)
	seedProfiles(t, f.db, "A1", "E1", "S1")

	tests := []struct {
		name    string
		mutate  func(*IntakeRequest)
		message string
	}{
		{"missing timestamp", func(r *IntakeRequest) { r.Timestamp = time.Time{} }, "timestamp is required"},
		{"missing system ip", func(r *IntakeRequest) { r.SystemIP = "" }, "system_ip is required"},
		{"blank log line", func(r *IntakeRequest) { r.LogLine = "   \t" }, "log_line is required"},
		{"bad priority", func(r *IntakeRequest) { r.Priority = "urgent" }, "priority is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleIntake()
			tt.mutate(&req)
			_, err := f.intake.Intake(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.message, apperrors.PublicMessage(err))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIntakeKeepsOptionalFields(t *testing.T) {
	f := newFixture(t)
	seedProfiles(t, f.db, "A1", "E1", "S1")

	req := sampleIntake()
	app, path, sev := "billing", "/var/log/billing.log", " high "
	req.Application, req.LogPath, req.Severity = &app, &path, &sev
	req.Priority = "Critical"

	ticket, err := f.intake.Intake(context.Background(), req)
	require.NoError(t, err)

	stored, err := f.tickets.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityCritical, stored.Priority)
	assert.Equal(t, "billing", *stored.Application)
	assert.Equal(t, "/var/log/billing.log", *stored.LogPath)
	assert.Equal(t, "high", *stored.Severity)
	assert.Nil(t, stored.Description)
	assert.True(t, stored.Timestamp.Equal(req.Timestamp))
}

func TestIntakeTreatsViewerAsSupport(t *testing.T) {
	f := newFixture(t)
	ids := seedProfiles(t, f.db, "A1", "E1", "V1")

	ticket, err := f.intake.Intake(context.Background(), sampleIntake())
	require.NoError(t, err)
	assert.Equal(t, ids["V1"], ticket.Assignees[2])
}

func TestIntakeConcurrentCallsSpreadEvenly(t *testing.T) {
	f := newFixture(t)
	ids := seedProfiles(t, f.db, "A1", "A2", "A3", "E1", "E2", "S1")

	const calls = 30
	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.intake.Intake(context.Background(), sampleIntake())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var tickets []models.Ticket
	require.NoError(t, f.db.Find(&tickets).Error)
	require.Len(t, tickets, calls)

	admins := map[uint]int{}
	engineers := map[uint]int{}
	for _, tk := range tickets {
		admins[tk.Assignees[0]]++
		engineers[tk.Assignees[1]]++
	}
	assert.Equal(t, map[uint]int{ids["A1"]: 10, ids["A2"]: 10, ids["A3"]: 10}, admins)
	assert.Equal(t, map[uint]int{ids["E1"]: 15, ids["E2"]: 15}, engineers)
}

func TestGormCursorStoreRollsBackWithTransaction(t *testing.T) {
	database := newTestDB(t)
	store := NewGormCursorStore(database)
	ctx := context.Background()

	idx, err := store.Advance(ctx, models.RoleAdmin, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	failed := assert.AnError
	err = database.Transaction(func(tx *gorm.DB) error {
		idx, err := store.WithTx(tx).Advance(ctx, models.RoleAdmin, 3)
		require.NoError(t, err)
		assert.Equal(t, 1, idx)
		return failed
	})
	require.ErrorIs(t, err, failed)

	cursors, err := store.Cursors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, cursors[models.RoleAdmin])
	assert.Equal(t, -1, cursors[models.RoleSupport])

	idx, err = store.Advance(ctx, models.RoleAdmin, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestCursorStoreClampsAfterPoolShrinks(t *testing.T) {
	store := NewGormCursorStore(newTestDB(t))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Advance(ctx, models.RoleEngineer, 5)
		require.NoError(t, err)
	}
	// cursor is 3; with two members the next step is (3+1)%2
	idx, err := store.Advance(ctx, models.RoleEngineer, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = store.Advance(ctx, models.RoleEngineer, 0)
	assert.True(t, apperrors.IsInsufficientUsers(err))
}

func newRedisStore(t *testing.T) (*RedisCursorStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCursorStore(client, "test:tracker:"), mr
}

func TestRedisCursorStoreAdvances(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	var got []int
	for i := 0; i < 4; i++ {
		idx, err := store.Advance(ctx, models.RoleSupport, 3)
		require.NoError(t, err)
		got = append(got, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0}, got)
	assert.Equal(t, "0", mustGet(t, mr, "test:tracker:support"))

	cursors, err := store.Cursors(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Role]int{models.RoleAdmin: -1, models.RoleEngineer: -1, models.RoleSupport: 0}, cursors)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestRedisCursorStoreConcurrentAdvancesHitEveryIndexEqually(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	const workers, perWorker, pool = 6, 10, 4
	var (
		mu     sync.Mutex
		counts = map[int]int{}
		wg     sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				idx, err := store.Advance(ctx, models.RoleAdmin, pool)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				counts[idx]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, map[int]int{0: 15, 1: 15, 2: 15, 3: 15}, counts)
}

func TestIntakeWithRedisCursorStore(t *testing.T) {
	f := newFixture(t)
	store, _ := newRedisStore(t)
	f.intake = NewIntakeService(f.db, f.directory, store, f.publisher, f.notifier)
	ids := seedProfiles(t, f.db, "A1", "A2", "E1", "S1", "S2")

	first, err := f.intake.Intake(context.Background(), sampleIntake())
	require.NoError(t, err)
	second, err := f.intake.Intake(context.Background(), sampleIntake())
	require.NoError(t, err)

	assert.Equal(t, []uint{ids["A1"], ids["E1"], ids["S1"]}, []uint(first.Assignees))
	assert.Equal(t, []uint{ids["A2"], ids["E1"], ids["S2"]}, []uint(second.Assignees))
}
