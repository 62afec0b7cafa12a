package leave

import "fmt"

// Request kinds used in Subject.Kind and metric labels.
const (
	KindLeave    = "leave"
	KindOvertime = "overtime"
)

func applicationNotification(kind string, to Recipient, related Subject) Notification {
	return Notification{
		Recipient: to,
		Subject:   fmt.Sprintf("New %s Application", title(kind)),
		Body: fmt.Sprintf("There has been a new %s application.  Please log in to process it.",
			kind),
		Related: related,
	}
}

func processedNotification(kind string, to Recipient, related Subject) Notification {
	return Notification{
		Recipient: to,
		Subject:   fmt.Sprintf("Your %s application has been processed", kind),
		Body: fmt.Sprintf("Your %s application status is %s.  Log in for more info.",
			kind, related.Status.Display()),
		Related: related,
	}
}

func title(kind string) string {
	switch kind {
	case KindLeave:
		return "Leave"
	case KindOvertime:
		return "Overtime"
	}
	return kind
}
