package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/config"
	"github.com/techagentng/wastewatch/db"
	errs "github.com/techagentng/wastewatch/errors"
	"github.com/techagentng/wastewatch/models"
)

// RewardService reads balances and the credit ledger. Credits are written by
// the report lifecycle when a report is resolved.
type RewardService interface {
	Balance(ctx context.Context, citizenID uuid.UUID) (*models.RewardBalance, error)
	Ledger(ctx context.Context, citizenID uuid.UUID) ([]models.Reward, error)
	RewardForReport(ctx context.Context, reportID uuid.UUID) (*models.Reward, error)
	GetAllRewardsBalanceCount(ctx context.Context) (int, error)
	GetAllRewards(ctx context.Context) ([]models.Reward, error)
}

type rewardService struct {
	Config     *config.Config
	rewardRepo db.RewardRepository
	directory  db.DirectoryRepository
}

func NewRewardService(rewardRepo db.RewardRepository, directory db.DirectoryRepository, conf *config.Config) RewardService {
	return &rewardService{
		Config:     conf,
		rewardRepo: rewardRepo,
		directory:  directory,
	}
}

func (s *rewardService) Balance(ctx context.Context, citizenID uuid.UUID) (*models.RewardBalance, error) {
	citizen, err := s.directory.FindCitizenByID(ctx, citizenID)
	if err != nil {
		return nil, storageError(err, msgCitizenAbsent)
	}
	return &models.RewardBalance{
		CitizenID: citizen.ID,
		Balance:   citizen.RewardBalance,
		Rate:      citizen.RewardPerResolution,
	}, nil
}

func (s *rewardService) Ledger(ctx context.Context, citizenID uuid.UUID) ([]models.Reward, error) {
	rewards, err := s.rewardRepo.ListByCitizen(ctx, citizenID)
	if err != nil {
		return nil, errs.Dependency(err, "error getting rewards")
	}
	return rewards, nil
}

func (s *rewardService) RewardForReport(ctx context.Context, reportID uuid.UUID) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetRewardByReportID(ctx, reportID)
	if err != nil {
		return nil, storageError(err, "No reward has been issued for this report.")
	}
	return reward, nil
}

func (s *rewardService) GetAllRewardsBalanceCount(ctx context.Context) (int, error) {
	total, err := s.rewardRepo.SumAllRewards(ctx)
	if err != nil {
		return 0, errs.Dependency(err, "error getting total rewards balance")
	}
	return total, nil
}

func (s *rewardService) GetAllRewards(ctx context.Context) ([]models.Reward, error) {
	rewards, err := s.rewardRepo.GetAllRewards(ctx)
	if err != nil {
		return nil, errs.Dependency(err, "error getting all rewards")
	}
	return rewards, nil
}
