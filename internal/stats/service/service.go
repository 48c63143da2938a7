package service

import (
	"context"
	"time"

	"github.com/nostrid/nip05-registry/internal/common/clock"
	"github.com/nostrid/nip05-registry/internal/common/constants"
	commonerrors "github.com/nostrid/nip05-registry/internal/common/errors"
	"github.com/nostrid/nip05-registry/internal/common/logger"
	identityrepo "github.com/nostrid/nip05-registry/internal/identity/repository"
)

// Repository is the slice of identity storage the stats service reads.
// The identity PgRepository satisfies it.
type Repository interface {
	CountUsers(ctx context.Context) (int64, error)
	CountWithRelays(ctx context.Context) (int64, error)
	CountWithLightningAddress(ctx context.Context) (int64, error)
	RegistrationsByDay(ctx context.Context, since time.Time) ([]identityrepo.DayCount, error)
}

type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type SystemStats struct {
	TotalUsers           int64      `json:"totalUsers"`
	UsersWithRelays      int64      `json:"usersWithRelays"`
	UsersWithLightning   int64      `json:"usersWithLightning"`
	RegistrationTimeline []DayCount `json:"registrationTimeline"`
}

type StatsService struct {
	repo  Repository
	clock clock.Clock
	log   *logger.Logger
}

func NewStatsService(repo Repository, clk clock.Clock, log *logger.Logger) *StatsService {
	return &StatsService{
		repo:  repo,
		clock: clk,
		log:   log,
	}
}

func (s *StatsService) Collect(ctx context.Context) (SystemStats, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return SystemStats{}, s.storageError(ctx, err)
	}

	withRelays, err := s.repo.CountWithRelays(ctx)
	if err != nil {
		return SystemStats{}, s.storageError(ctx, err)
	}

	withLightning, err := s.repo.CountWithLightningAddress(ctx)
	if err != nil {
		return SystemStats{}, s.storageError(ctx, err)
	}

	since := s.clock.Now().AddDate(0, 0, -constants.StatsTimelineDays)
	byDay, err := s.repo.RegistrationsByDay(ctx, since)
	if err != nil {
		return SystemStats{}, s.storageError(ctx, err)
	}

	timeline := make([]DayCount, 0, len(byDay))
	for _, dc := range byDay {
		timeline = append(timeline, DayCount{
			Day:   dc.Day.Format("2006-01-02"),
			Count: dc.Count,
		})
	}

	return SystemStats{
		TotalUsers:           total,
		UsersWithRelays:      withRelays,
		UsersWithLightning:   withLightning,
		RegistrationTimeline: timeline,
	}, nil
}

func (s *StatsService) storageError(ctx context.Context, err error) error {
	s.log.WithFields(ctx, logger.Fields{
		"action": "stats_failed",
	}).Errorf("stats query failed: %v", err)
	return commonerrors.ErrStorage.WithCause(err)
}
