package constant

// Ключи атрибутов slog
const (
	Error        = "error"
	UserID       = "user_id"
	UserName     = "user_name"
	RoomCode     = "room_code"
	JobID        = "job_id"
	ConnectionID = "connection_id"
	Event        = "event"
	Worker       = "worker"
)

// APIVersion - версия HTTP API, отдается в /status и в --version
const APIVersion = "0.3"
