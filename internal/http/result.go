package httpapi

// Result response envelope shared by every JSON endpoint.
// - code: ResultSuccess on success, ResultError otherwise
// - type: "success" | "error" | "warning"
// - message: human readable
// - result: payload
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// OkWithWarnings success envelope whose type tells the client to show the
// advisory message next to the data.
func OkWithWarnings[T any](result T, message string) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "warning", Message: message, Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
