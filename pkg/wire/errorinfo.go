package wire

import (
	"github.com/coder/websocket"
)

// CodeUnknown is used when the transport gave us no close status.
const CodeUnknown = -1

// ErrorInfo is the one shape every transport failure is normalized into
// before it reaches the client's error hook.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NormalizeError maps a transport error into an ErrorInfo. Websocket close
// statuses become the code; anything else gets CodeUnknown.
func NormalizeError(err error) ErrorInfo {
	if err == nil {
		return ErrorInfo{}
	}
	if status := websocket.CloseStatus(err); status != -1 {
		return ErrorInfo{Code: int(status), Message: err.Error()}
	}
	return ErrorInfo{Code: CodeUnknown, Message: err.Error()}
}
