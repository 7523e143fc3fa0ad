package main

// Exit codes
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError  = 2 // Configuration error (unreadable or invalid config)
	ExitDataError    = 3 // Data error (validation failure, unsupported file)
	ExitAPIError     = 4 // Backend rejected the request
	ExitNetworkError = 5 // Backend unreachable or sent an unreadable response
	ExitNotFound     = 6 // Author, paper or snapshot not found
)
