package models

import "github.com/google/uuid"

// Reward is the ledger entry written when a report is resolved. ReportID is
// unique so a report can credit its citizen at most once.
type Reward struct {
	Model
	ReportID     uuid.UUID `json:"reportId" gorm:"type:uuid;uniqueIndex;not null"`
	CitizenID    uuid.UUID `json:"citizenId" gorm:"type:uuid;index;not null"`
	Points       int       `json:"points"`
	BalanceAfter int       `json:"balanceAfter"`
}

type RewardBalance struct {
	CitizenID uuid.UUID `json:"citizenId"`
	Balance   int       `json:"balance"`
	Rate      int       `json:"rewardPerResolution"`
}
