package repository

import (
	"time"

	"drivesync/internal/engine"
	"drivesync/internal/logger"
	"drivesync/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Save(result engine.Result) error {
	status := model.StatusSuccess
	errMsg := ""
	if result.Err != nil {
		status = model.StatusFailed
		errMsg = result.Err.Error()
	}

	syncedAt := result.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now()
	}

	history := model.History{
		Kind:     string(result.Action.Kind),
		Key:      result.Action.Key.String(),
		Status:   status,
		ErrMsg:   errMsg,
		SyncedAt: syncedAt,
	}

	return r.db.Create(&history).Error
}

// Observe records result. A failed write is logged and otherwise ignored so
// history problems never stall syncing.
func (r *HistoryRepository) Observe(result engine.Result) {
	if err := r.Save(result); err != nil {
		logger.Log.Warn("failed to record history",
			zap.String("key", result.Action.Key.String()),
			zap.Error(err))
	}
}

type Stats struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

func (r *HistoryRepository) GetStats() (Stats, error) {
	var stats Stats
	if err := r.db.Model(&model.History{}).Count(&stats.Total).Error; err != nil {
		return stats, err
	}

	if err := r.db.Model(&model.History{}).
		Where("status = ?", model.StatusSuccess).
		Count(&stats.Success).Error; err != nil {
		return stats, err
	}

	stats.Failed = stats.Total - stats.Success
	return stats, nil
}

func (r *HistoryRepository) GetRecent(limit int) ([]model.History, error) {
	var histories []model.History
	result := r.db.
		Order("synced_at desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}

func (r *HistoryRepository) GetFailed(limit int) ([]model.History, error) {
	var histories []model.History
	result := r.db.
		Where("status = ?", model.StatusFailed).
		Order("synced_at desc").
		Limit(limit).
		Find(&histories)

	return histories, result.Error
}
