package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type message struct {
	Subject string
	Text    string
	HTML    string
}

type templateData struct {
	Name       string
	Employee   string
	EmployeeID string
	FormName   string
	Link       string
	UserFormID string
}

var htmlTemplates = template.Must(template.New("mail").Parse(`
{{define "form_assigned"}}<p>Dear {{.Name}},</p>
<p>You have been assigned a new form{{if .FormName}} <strong>{{.FormName}}</strong>{{end}}. Please fill it in:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
{{define "user_form_submitted"}}<p>Dear {{.Name}},</p>
<p>{{.Employee}} (employee ID {{.EmployeeID}}) submitted a form that needs your approval:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
{{define "user_form_rejected"}}<p>Dear {{.Name}},</p>
<p>Your form {{.UserFormID}} was rejected. Please update it and submit again:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
`))

func render(event Event, frontendURL string) (message, error) {
	data := templateData{
		Name:       event.Recipient.DisplayName(),
		Employee:   event.Employee.DisplayName(),
		EmployeeID: event.Employee.EmployeeID,
		FormName:   event.FormName,
		Link:       strings.TrimRight(frontendURL, "/") + "/user-forms/" + event.UserFormID.String(),
		UserFormID: event.UserFormID.String(),
	}
	var msg message
	switch event.Kind {
	case KindFormAssigned:
		msg.Subject = "Notification: New Form"
		msg.Text = "You have a new form to fill in: " + data.Link
	case KindUserFormSubmitted:
		msg.Subject = "Notification: Form needs approval"
		msg.Text = fmt.Sprintf("%s submitted a form for your approval: %s", data.Employee, data.Link)
	case KindUserFormRejected:
		msg.Subject = "Notification: Form needs updated to be approved"
		msg.Text = "Your form was rejected, please update it: " + data.Link
	default:
		return message{}, fmt.Errorf("notify: unknown event kind %q", event.Kind)
	}
	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, string(event.Kind), data); err != nil {
		return message{}, fmt.Errorf("notify: render %s: %w", event.Kind, err)
	}
	msg.HTML = buf.String()
	return msg, nil
}
