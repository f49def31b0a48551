package postgres

import (
	"context"

	tasklogDatamodel "github.com/frahmantamala/ad-user-manager/internal/core/datamodel/tasklog"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	"gorm.io/gorm"
)

// TaskLogRepository stores one row per entry; insertion order is the id
// order.
type TaskLogRepository struct {
	db *gorm.DB
}

func NewTaskLogRepository(db *gorm.DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

func (r *TaskLogRepository) Load(ctx context.Context) ([]tasklog.Entry, error) {
	var rows []*tasklogDatamodel.TaskLog
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]tasklog.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, tasklog.FromDataModel(row))
	}
	return entries, nil
}

func (r *TaskLogRepository) Append(ctx context.Context, entry tasklog.Entry, _ []tasklog.Entry) error {
	return r.db.WithContext(ctx).Create(tasklog.ToDataModel(entry)).Error
}
