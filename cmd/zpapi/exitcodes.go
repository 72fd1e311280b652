package main

// Exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // Runtime or API failure
	ExitConfigError = 2 // Missing credentials, bad filter, missing input files
)
