package entities

// NotificationEmailData feeds the notification email template.
type NotificationEmailData struct {
	UserName    string
	Title       string
	Body        string
	CurrentYear int
}
