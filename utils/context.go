package utils

// ContextKey is the type of request-scoped values placed on context.Context
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
	UsernameKey   ContextKey = "username"
)

// IdentityLocalsKey is the fiber locals key holding the recovered *services.Identity
const IdentityLocalsKey = "identity"
