package handlers

// ErrorResponse is the JSON body returned for 4xx rejections
// (bad login payloads, wrong credentials, malformed query params).
type ErrorResponse struct {
	Message string `json:"message"`
}
