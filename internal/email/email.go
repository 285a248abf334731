package email

import (
	"context"
	"fmt"
	"net/url"
)

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers messages. Implementations return a provider-side
// delivery id on success.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// InvitationMessage builds the email sent to a newly invited member.
// The raw token is embedded in the accept link only; callers must not
// log the resulting message body.
func InvitationMessage(to, displayName, inviterName, baseURL, token string) Message {
	link := fmt.Sprintf("%s/accept-invitation?token=%s", baseURL, url.QueryEscape(token))

	greeting := "Hi"
	if displayName != "" {
		greeting = "Hi " + displayName
	}

	from := "A member"
	if inviterName != "" {
		from = inviterName
	}

	html := fmt.Sprintf(`<p>%s,</p>
<p>%s has invited you to join their cash flow workspace.</p>
<p><a href="%s">Accept your invitation</a></p>
<p>This invitation expires in 7 days. If you weren't expecting it, you can ignore this email.</p>`,
		greeting, from, link)

	return Message{
		To:      to,
		Subject: "You've been invited to Cash Flow",
		HTML:    html,
	}
}
