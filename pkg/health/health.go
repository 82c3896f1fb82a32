package health

import (
	"context"
	"sync"
	"time"
)

// Activity is a point-in-time activity summary.
type Activity struct {
	Steps          int
	ActiveCalories int
	WorkoutsThisWk int
}

// Body is a point-in-time body composition summary.
type Body struct {
	WeightKg   float64
	BodyFatPct float64
}

// Goals captures the user's active targets.
type Goals struct {
	DailyCalories int
	DailyProtein  int
	Primary       string
}

// Snapshot is the joined, best-effort view of a user's health signals.
// Missing data leaves zero values; a snapshot is never an error.
type Snapshot struct {
	Activity Activity
	Body     Body
	Goals    Goals
	HasData  bool
	TakenAt  time.Time
}

// Provider yields the individual health signals. Each read is independent
// and best-effort.
type Provider interface {
	Activity(ctx context.Context) (Activity, error)
	Body(ctx context.Context) (Body, error)
	Goals(ctx context.Context) (Goals, error)
}

// Assemble fetches all signals concurrently and joins them into one
// snapshot. Individual failures degrade to defaults rather than failing
// the pipeline.
func Assemble(ctx context.Context, provider Provider) Snapshot {
	snapshot := Snapshot{TakenAt: time.Now().UTC()}
	if provider == nil {
		return snapshot
	}

	var (
		wg                             sync.WaitGroup
		activity                       Activity
		body                           Body
		goals                          Goals
		activityErr, bodyErr, goalsErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		activity, activityErr = provider.Activity(ctx)
	}()
	go func() {
		defer wg.Done()
		body, bodyErr = provider.Body(ctx)
	}()
	go func() {
		defer wg.Done()
		goals, goalsErr = provider.Goals(ctx)
	}()
	wg.Wait()

	if activityErr == nil {
		snapshot.Activity = activity
		snapshot.HasData = true
	}
	if bodyErr == nil {
		snapshot.Body = body
		snapshot.HasData = true
	}
	if goalsErr == nil {
		snapshot.Goals = goals
		snapshot.HasData = true
	}
	return snapshot
}

// Static is a fixed-value provider for tests and offline runs.
type Static struct {
	ActivityData Activity
	BodyData     Body
	GoalsData    Goals
}

// Activity returns the fixed activity summary.
func (s *Static) Activity(context.Context) (Activity, error) {
	return s.ActivityData, nil
}

// Body returns the fixed body summary.
func (s *Static) Body(context.Context) (Body, error) {
	return s.BodyData, nil
}

// Goals returns the fixed goals.
func (s *Static) Goals(context.Context) (Goals, error) {
	return s.GoalsData, nil
}
