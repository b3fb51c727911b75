package domain

// NoticeKind selects the icon of a user-facing modal.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notice is a modal message shown to the user after an operation.
type Notice struct {
	Kind  NoticeKind `json:"kind"`
	Title string     `json:"title"`
	Text  string     `json:"text"`
}

func SuccessNotice(title, text string) Notice {
	return Notice{Kind: NoticeSuccess, Title: title, Text: text}
}

func ErrorNotice(title string, err error) Notice {
	text := ""
	if err != nil {
		text = err.Error()
	}
	return Notice{Kind: NoticeError, Title: title, Text: text}
}
