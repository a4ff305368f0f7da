package models

import (
	"net/http"
	"time"
)

// ResponseVersion is reported in every envelope.
const ResponseVersion = 2

// ResponseModel Base response structure that can be reused
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
	// Updated is the feed timestamp the data was built from, RFC 3339.
	Updated string `json:"updated,omitempty"`
}

// ResponseCurrentTime returns the current time in epoch milliseconds.
func ResponseCurrentTime() int64 {
	return time.Now().UnixMilli()
}

func NewResponse(code int, data interface{}, text string) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: ResponseCurrentTime(),
		Data:        data,
		Text:        text,
		Version:     ResponseVersion,
	}
}

func NewOKResponse(data interface{}) ResponseModel {
	return NewResponse(http.StatusOK, data, "OK")
}

// NewDataResponse is an OK response stamped with the feed timestamp. A zero
// timestamp is omitted.
func NewDataResponse(data interface{}, updated time.Time) ResponseModel {
	resp := NewOKResponse(data)
	resp.Updated = FormatTime(updated)
	return resp
}

// FormatTime renders t as RFC 3339, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
