package domain

// NoticeLevel defines the visual weight of a notice.
type NoticeLevel string

const (
	NoticeInfo        NoticeLevel = "info"
	NoticeDestructive NoticeLevel = "destructive"
)

// DefaultFailureTitle is the static title shown for any failed request.
const DefaultFailureTitle = "Request Failed"

// Notice is a user-visible notification (a toast in the browser).
type Notice struct {
	Level       NoticeLevel `json:"level"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
}

// FailureNotice builds the destructive notice for a failed request.
// An empty title falls back to DefaultFailureTitle.
func FailureNotice(title, description string) Notice {
	if title == "" {
		title = DefaultFailureTitle
	}
	return Notice{
		Level:       NoticeDestructive,
		Title:       title,
		Description: description,
	}
}
