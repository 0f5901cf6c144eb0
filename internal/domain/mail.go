package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const MailTypePlanFinished = "plan_finished"

type PlanFinishedMailData struct {
	PlanID          int64  `json:"planID"`
	PlanName        string `json:"planName"`
	Status          string `json:"status"`
	WorkerCount     int    `json:"workerCount"`
	TotalUnderstaff int64  `json:"totalUnderstaff"`
	TotalOverstaff  int64  `json:"totalOverstaff"`
}
