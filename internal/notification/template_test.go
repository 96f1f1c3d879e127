package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	title, body := Render(TypeReminder, map[string]any{
		"hours":    2,
		"title":    "Daily Shorts",
		"deadline": "Jan 3",
		"streak":   4,
	})
	assert.Equal(t, "Upload due in 2h", title)
	assert.Equal(t, `Your next video for "Daily Shorts" is due Jan 3. Keep your 4-upload streak alive!`, body)

	title, body = Render(NotificationType("unknown"), nil)
	assert.Equal(t, "unknown", title)
	assert.Empty(t, body)
}

func TestBuildEmailEscapesHTML(t *testing.T) {
	msg, err := BuildEmail("a@example.com", "", "Title <b>", "body & more")
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", msg.To)
	assert.Equal(t, "Title <b>", msg.Subject)
	assert.Contains(t, msg.Text, "Hi there,")
	assert.Contains(t, msg.HTML, "Title &lt;b&gt;")
	assert.Contains(t, msg.HTML, "body &amp; more")
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender(t *testing.T) {
	api := &fakeSES{}
	s := &SESSender{client: api, from: "noreply@example.com"}

	id, err := s.Send(context.Background(), EmailMessage{To: "u@example.com", Subject: "Hi", Text: "t", HTML: "<p>h</p>"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, "noreply@example.com", aws.ToString(api.in.FromEmailAddress))
	assert.Equal(t, []string{"u@example.com"}, api.in.Destination.ToAddresses)
	assert.Equal(t, "<p>h</p>", aws.ToString(api.in.Content.Simple.Body.Html.Data))

	api.err = errors.New("throttled")
	_, err = s.Send(context.Background(), EmailMessage{To: "u@example.com"})
	assert.ErrorContains(t, err, "throttled")
}
