package errmsg

import "net/http"

func InternalServerError(err error) StatusError {
	return NewStatusError(
		http.StatusInternalServerError,
		"internal server error: "+err.Error(),
	)
}

var Draining = NewStatusError(
	http.StatusServiceUnavailable,
	"runner is draining, try again later",
)

type _Draining struct {
	StatusCode int    `json:"statusCode" example:"503"`
	Message    string `json:"message" example:"runner is draining, try again later"`
}
