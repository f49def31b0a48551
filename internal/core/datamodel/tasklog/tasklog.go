package tasklog

import "time"

type TaskLog struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"column:username;not null"`
	Type      string    `gorm:"column:type;not null"`
	Status    string    `gorm:"column:status;not null"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	Message   string    `gorm:"column:message"`
	Label     string    `gorm:"column:label"`
}

func (TaskLog) TableName() string {
	return "task_logs"
}
