/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and the System notifications pushed over chat connections.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrServiceStopping:   {Code: ErrServiceStopping, Message: "Server is shutting down.", Status: http.StatusServiceUnavailable},

	// 2xxx: Chat Message Errors
	ErrInvalidMessage:        {Code: ErrInvalidMessage, Message: "Message object is invalid"},
	ErrNotFriends:            {Code: ErrNotFriends, Message: "Not friends with target user"},
	ErrRecipientOffline:      {Code: ErrRecipientOffline, Message: "User is not online"},
	ErrSendToSelf:            {Code: ErrSendToSelf, Message: "Don't send messages to yourself"},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long"},

	// 3xxx: User, Session, and Security Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
