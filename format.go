package main

// format renders one event in the text/event-stream wire format. An empty
// event name omits the event line. Neither argument is escaped, so callers
// must not pass text containing a blank line.
func format(data, event string) string {
	msg := "data: " + data + "\n\n"
	if event != "" {
		msg = "event: " + event + "\n" + msg
	}
	return msg
}
