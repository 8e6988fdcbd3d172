package asynq

const (
	// QueueRewards carries the daily reward run tasks. It outranks the
	// default queue so a delayed run is picked up before housekeeping work.
	QueueRewards = "rewards"

	DailyRewardTask = "reward:daily:run"
)

type DailyRewardPayload struct {
	RunDate string `json:"run_date"` // YYYY-MM-DD
}
