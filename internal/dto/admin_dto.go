package dto

type UpdateStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	AdminNote string `json:"admin_note" validate:"max=1000"`
}

type AdminReportListResponse struct {
	Count   int64            `json:"count"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	Reports []ReportResponse `json:"reports"`
}

type JobAcceptedResponse struct {
	Detail string `json:"detail"`
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
