package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type Template struct {
	TitleTemplate string
	BodyTemplate  string
}

var templates = map[NotificationType]Template{
	TypeWelcome: {
		TitleTemplate: "Your challenge \"{{title}}\" has started",
		BodyTemplate:  "{{slots}} uploads scheduled, one every {{cadence_days}} day(s). Your first deadline is {{deadline}}.",
	},
	TypeReminder: {
		TitleTemplate: "Upload due in {{hours}}h",
		BodyTemplate:  "Your next video for \"{{title}}\" is due {{deadline}}. Keep your {{streak}}-upload streak alive!",
	},
	TypeMissed: {
		TitleTemplate: "You missed an upload",
		BodyTemplate:  "The deadline for slot {{slot}} of \"{{title}}\" passed on {{deadline}}. Your streak has been reset, but the next slot is a fresh start.",
	},
	TypeStreak: {
		TitleTemplate: "{{streak}} uploads in a row!",
		BodyTemplate:  "You've kept \"{{title}}\" on schedule for {{streak}} consecutive uploads.",
	},
	TypeCompletion: {
		TitleTemplate: "Challenge complete!",
		BodyTemplate:  "You finished \"{{title}}\" with {{points}} points and a longest streak of {{longest_streak}}.",
	},
	TypeAchievementUnlocked: {
		TitleTemplate: "Achievement unlocked: {{achievement}}",
		BodyTemplate:  "{{description}} (+{{points}} points)",
	},
	TypeUploadSuccess: {
		TitleTemplate: "Upload recorded",
		BodyTemplate:  "\"{{video_title}}\" counted toward \"{{title}}\" for {{points}} points.",
	},
}

// Render fills {{key}} placeholders from data. Unknown types fall back to the raw
// type name.
func Render(t NotificationType, data map[string]any) (title, body string) {
	tpl, ok := templates[t]
	if !ok {
		return string(t), ""
	}
	return renderTemplate(tpl.TitleTemplate, data), renderTemplate(tpl.BodyTemplate, data)
}

func renderTemplate(tpl string, data map[string]any) string {
	result := tpl
	for key, value := range data {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, fmt.Sprintf("%v", value))
	}
	return result
}

var emailLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body style="font-family:sans-serif">
<h2>{{.Title}}</h2>
<p>Hi {{.Name}},</p>
<p>{{.Body}}</p>
</body></html>`))

// BuildEmail renders the plain text and HTML parts for an already rendered
// notification.
func BuildEmail(to, name, title, body string) (EmailMessage, error) {
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	err := emailLayout.Execute(&buf, struct{ Title, Name, Body string }{title, name, body})
	if err != nil {
		return EmailMessage{}, fmt.Errorf("render email: %w", err)
	}
	return EmailMessage{
		To:      to,
		Subject: title,
		Text:    fmt.Sprintf("Hi %s,\n\n%s\n", name, body),
		HTML:    buf.String(),
	}, nil
}
