package ports

// Server defines the interface for the long-running front end of the agent
type Server interface {
	// Start begins serving in the background
	Start() error

	// Stop gracefully shuts the server down
	Stop() error
}
