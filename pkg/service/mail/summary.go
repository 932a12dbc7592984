package mail

import (
	"fmt"
	"time"
)

// SummarySubject formats the subject line of a post-meeting summary email
func SummarySubject(sentAt time.Time) string {
	return fmt.Sprintf("Summary | Meeting on %s | Steno", sentAt.Format("02 Jan 2006 3:04PM"))
}

// SummaryBody renders the post-meeting summary email. When the summary is
// empty, only the action items section is included.
func SummaryBody(meetingSummary, actionItems string) string {
	if meetingSummary == "" {
		return fmt.Sprintf("<h1>Action Items</h1>\n%s", actionItems)
	}
	return fmt.Sprintf("<h1>Meeting Summary</h1>\n<p>%s</p>\n<h1>Action Items</h1>\n%s",
		meetingSummary, actionItems)
}

// ShareSubject formats the subject line of a shared-notes email
func ShareSubject(sharerEmail string) string {
	return fmt.Sprintf("%s shared meeting notes with you | Steno", sharerEmail)
}

// ShareBody renders the shared-notes email
func ShareBody(sharerEmail, notes, actionItems string) string {
	return fmt.Sprintf("<p>%s shared meeting notes with you.</p>\n%s",
		sharerEmail, SummaryBody(notes, actionItems))
}
