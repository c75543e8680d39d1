package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskFollowupDue = "prospects.followup_due"

const TaskVisitReminder = "planning.visit_reminder"

type FollowupDuePayload struct {
	ProspectID string `json:"prospectId"`
	Stage      string `json:"stage"`
}

type VisitReminderPayload struct {
	VisitID string `json:"visitId"`
}

func NewFollowupDueTask(payload FollowupDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowupDue, data), nil
}

func ParseFollowupDuePayload(task *asynq.Task) (FollowupDuePayload, error) {
	var payload FollowupDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowupDuePayload{}, err
	}
	return payload, nil
}

func NewVisitReminderTask(payload VisitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVisitReminder, data), nil
}

func ParseVisitReminderPayload(task *asynq.Task) (VisitReminderPayload, error) {
	var payload VisitReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return VisitReminderPayload{}, err
	}
	return payload, nil
}
