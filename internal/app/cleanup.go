package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"yds-challenge-service/internal/domain"
)

// CleanupPolicy decides which rooms are stale.
type CleanupPolicy struct {
	// WaitingTTL is how long a room may wait for its start.
	WaitingTTL time.Duration
	// FinishedRetention is how long finished rooms are kept for results and history.
	FinishedRetention time.Duration
}

// CleanupReport counts deleted rooms by status.
type CleanupReport struct {
	Waiting  int
	Finished int
}

// CleanupStaleRooms deletes abandoned lobbies and expired finished rooms.
// A zero duration disables that half of the sweep.
func (s *RoomService) CleanupStaleRooms(ctx context.Context, policy CleanupPolicy) (CleanupReport, error) {
	var rep CleanupReport
	now := s.now()
	if policy.WaitingTTL > 0 {
		n, err := s.store.DeleteRooms(ctx, domain.RoomWaiting, now.Add(-policy.WaitingTTL))
		if err != nil {
			return rep, fmt.Errorf("delete waiting rooms: %w", err)
		}
		rep.Waiting = n
	}
	if policy.FinishedRetention > 0 {
		n, err := s.store.DeleteRooms(ctx, domain.RoomFinished, now.Add(-policy.FinishedRetention))
		if err != nil {
			return rep, fmt.Errorf("delete finished rooms: %w", err)
		}
		rep.Finished = n
	}
	return rep, nil
}

// Janitor runs CleanupStaleRooms on a cron schedule.
type Janitor struct {
	service *RoomService
	policy  CleanupPolicy
	log     *zap.Logger
	cron    *cron.Cron
}

// NewJanitor schedules the sweep with a standard five-field cron spec or a
// descriptor such as "@hourly".
func NewJanitor(service *RoomService, policy CleanupPolicy, schedule string, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{service: service, policy: policy, log: logger, cron: cron.New()}
	if _, err := j.cron.AddFunc(schedule, j.sweep); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	j.log.Info("room cleanup started")
	rep, err := j.service.CleanupStaleRooms(ctx, j.policy)
	if err != nil {
		j.log.Error("room cleanup failed", zap.Error(err))
		return
	}
	j.log.Info("room cleanup done", zap.Int("waiting_deleted", rep.Waiting), zap.Int("finished_deleted", rep.Finished))
}

// Start begins the schedule in its own goroutine.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to return.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}
