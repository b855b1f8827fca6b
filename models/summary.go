package models

// DispatchSummary reports the outcome of one dispatch run. It exists only
// for the duration of the run and is used for logging and the tick response.
type DispatchSummary struct {
	RunID   string `json:"run_id"`
	ItemIDs []int  `json:"item_ids"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Removed int    `json:"removed"`
}
