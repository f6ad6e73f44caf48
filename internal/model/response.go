package model

// DataResponse is the standard success envelope: {"data": ...}.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the standard error envelope: {"error": "..."}.
// The message is caller-actionable but never echoes internal detail;
// full context stays in server logs.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EnrollResponse is returned by the enrollment endpoint on success.
type EnrollResponse struct {
	Success        bool   `json:"success"`
	EnrollmentID   string `json:"enrollmentId"`
	PendingPayment bool   `json:"pendingPayment"`
}

// ConflictResponse is returned when an enrollment already exists. The
// pendingPayment flag lets the client distinguish "finish your payment"
// messaging from a plain duplicate.
type ConflictResponse struct {
	Error          string `json:"error"`
	PendingPayment bool   `json:"pendingPayment"`
}
