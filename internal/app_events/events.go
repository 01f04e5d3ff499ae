package appevents

// AppUIMessage is a marker interface for messages sent from the App's logic controller to the TUI.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage is a base struct that can be embedded in other types to implement the AppUIMessage interface.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// ErrorMsg reports a failure the user should see.
type ErrorMsg struct {
	UIMessage
	Err error
}

// StatusUpdateMsg carries a one-line status for the footer.
type StatusUpdateMsg struct {
	UIMessage
	Message string
}
