package constants

type contextKey string

const (
	LoggerKey    contextKey = "logger"
	TxKey        contextKey = "tx"
	PoolKey      contextKey = "pool"
	UserIDKey    contextKey = "user_id"
	RequestIDKey contextKey = "request_id"
	ParamsKey    contextKey = "params"
)
