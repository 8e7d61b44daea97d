// Package reminders runs the daily pending-order reminder sweep through
// asynq: a cron-registered task asks Make which clients to nudge, then texts
// each of them.
package reminders

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskDailyReminder = "reminders.daily"

type DailyReminderPayload struct {
	TriggeredAt time.Time `json:"triggeredAt"`
}

func NewDailyReminderTask(payload DailyReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailyReminder, data), nil
}

func ParseDailyReminderPayload(task *asynq.Task) (DailyReminderPayload, error) {
	var payload DailyReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DailyReminderPayload{}, err
	}
	return payload, nil
}
