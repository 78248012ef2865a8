package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskLeadScoreSync copies a completed questionnaire's score onto its lead.
const TaskLeadScoreSync = "leads.score_sync"

type LeadScoreSyncPayload struct {
	LeadID string `json:"leadId"`
	UserID string `json:"userId"`
}

func NewLeadScoreSyncTask(payload LeadScoreSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadScoreSync, data), nil
}

func ParseLeadScoreSyncPayload(task *asynq.Task) (LeadScoreSyncPayload, error) {
	var payload LeadScoreSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadScoreSyncPayload{}, err
	}
	return payload, nil
}
