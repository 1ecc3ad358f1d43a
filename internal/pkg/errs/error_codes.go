/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrServiceStopping indicates that the server no longer accepts new connections.
	ErrServiceStopping = 1008
)

// 2xxx: Chat Message Errors
const (
	// ErrInvalidMessage indicates that an inbound event was undecodable or missing required fields.
	ErrInvalidMessage = 2201

	// ErrNotFriends indicates that the sender is not friends with the target user,
	// or that the friendship could not be verified.
	ErrNotFriends = 2202

	// ErrRecipientOffline indicates that the target user has no open connection.
	ErrRecipientOffline = 2203

	// ErrSendToSelf indicates that the sender addressed a message to themself.
	ErrSendToSelf = 2204

	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2205
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUnauthorized indicates a missing or invalid session credential.
	ErrUnauthorized = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
