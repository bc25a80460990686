package session

type contextKey string

// IDContextKey carries the resolved session ID through the request context.
// Set by the session middleware, read by the handlers.
const IDContextKey contextKey = "sessionID"
