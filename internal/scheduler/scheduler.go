// Package scheduler runs the periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type StationResetter interface {
	ResetDailyBalances(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	stations StationResetter
	timeout  time.Duration
}

func New(stations StationResetter, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cronLogger{}))),
		stations: stations,
		timeout:  time.Minute,
	}
}

// Start registers the station reset on schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.ResetStations); err != nil {
		return fmt.Errorf("schedule station reset %q: %w", schedule, err)
	}
	log.Info().Str("schedule", schedule).Msg("scheduled station daily balance reset")
	s.cron.Start()
	return nil
}

// Stop returns a context that is done once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) ResetStations() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.stations.ResetDailyBalances(ctx)
	if err != nil {
		log.Error().Err(err).Msg("station daily balance reset failed")
		return
	}
	log.Info().Int64("stations", n).Msg("station daily balances reset")
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
