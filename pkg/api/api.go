// Package api contains the wire types of the remote mutation endpoint.
package api

// Пути HTTP API
const (
	BasePath   = "/api/v1"
	HealthPath = BasePath + "/health"
)

// MutationResponse представляет ответ сервера на примененную мутацию
type MutationResponse struct {
	ID      string `json:"id"`                // id сущности
	Version int64  `json:"version,omitempty"` // версия сущности на сервере
}

// HealthResponse представляет ответ проверки доступности
type HealthResponse struct {
	Status string `json:"status"` // "ok"
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
