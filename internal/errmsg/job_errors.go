package errmsg

import "net/http"

var (
	JobNotFound = NewStatusError(
		http.StatusNotFound,
		"job not found",
	)
	JobQueueFull = NewStatusError(
		http.StatusServiceUnavailable,
		"job queue is full",
	)
	JobAlreadyFinished = NewStatusError(
		http.StatusConflict,
		"job already finished",
	)
	JobInvalidFilter = NewStatusError(
		http.StatusBadRequest,
		"invalid job filter",
	)
	JobLogUnavailable = NewStatusError(
		http.StatusNotFound,
		"job has no log yet",
	)
)

type _JobNotFound struct {
	StatusCode int    `json:"statusCode" example:"404"`
	Message    string `json:"message" example:"job not found"`
}

type _JobQueueFull struct {
	StatusCode int    `json:"statusCode" example:"503"`
	Message    string `json:"message" example:"job queue is full"`
}

type _JobAlreadyFinished struct {
	StatusCode int    `json:"statusCode" example:"409"`
	Message    string `json:"message" example:"job already finished"`
}

type _JobInvalidFilter struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Message    string `json:"message" example:"invalid job filter"`
}
