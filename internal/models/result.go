package models

import "net/http"

// Non-standard codes understood by the frontend.
const (
	StatusInvalidToken      = 498
	StatusNeedsVerification = 499
)

type Payload struct {
	Status   bool   `json:"status"`
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
}

// Result is what every account operation returns. A zero Code is a plain
// result: the HTTP layer picks 200 or 400 from Payload.Status.
type Result struct {
	Payload Payload
	Code    int
}

func OK(message string, data any) Result {
	return Result{Payload: Payload{Status: true, Message: message, Data: data}}
}

func Fail(message string) Result {
	return Result{Payload: Payload{Status: false, Message: message}}
}

func WithCode(code int, status bool, message string, data any) Result {
	return Result{Payload: Payload{Status: status, Message: message, Data: data}, Code: code}
}

func (r Result) HTTPStatus() int {
	if r.Code != 0 {
		return r.Code
	}
	if r.Payload.Status {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}
