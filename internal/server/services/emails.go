package services

import (
	"fmt"

	"github.com/bloomlabs/bloom/internal/server/drivers/mailer"
	"github.com/bloomlabs/bloom/internal/server/drivers/queue"
)

// Email rendering for the messages the worker pulls off the queue. Plain
// fmt templates are enough here; codes are short-lived so nothing sensitive
// outlives the email.

func RenderRegistrationEmail(from string, data queue.RegistrationEmailData) mailer.Email {
	return mailer.Email{
		From:    from,
		To:      data.Email,
		Subject: fmt.Sprintf("Bloom code: %s", data.Code),
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>Your confirmation code is: <strong>%s</strong></p>
<p>It expires in 30 minutes. If you did not request it, you can ignore this email.</p>`,
			data.Username, data.Code),
	}
}

func RenderSignInEmail(from string, data queue.SignInEmailData) mailer.Email {
	return mailer.Email{
		From:    from,
		To:      data.Email,
		Subject: fmt.Sprintf("Bloom code: %s", data.Code),
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>Your sign-in code is: <strong>%s</strong></p>
<p>It expires in 30 minutes. If you did not try to sign in, somebody may know your email address; no action is needed.</p>`,
			data.Name, data.Code),
	}
}

func RenderGroupInvitationEmail(from, baseURL string, data queue.GroupInvitationEmailData) mailer.Email {
	return mailer.Email{
		From:    from,
		To:      data.Email,
		Subject: fmt.Sprintf("%s invited you to the group %s", data.InviterName, data.GroupName),
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>%s invited you to join the group <strong>%s</strong>.</p>
<p>Sign in at <a href="%s">%s</a> to accept or decline.</p>`,
			data.Name, data.InviterName, data.GroupName, baseURL, baseURL),
	}
}

func RenderEmailChangedEmail(from string, data queue.EmailChangedEmailData) mailer.Email {
	return mailer.Email{
		From:    from,
		To:      data.Email,
		Subject: "Your Bloom email address was changed",
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>The email address of your account was changed to <strong>%s</strong>.</p>
<p>If this was not you, contact support immediately.</p>`,
			data.Name, data.NewEmail),
	}
}

func RenderVerifyEmailEmail(from string, data queue.VerifyEmailEmailData) mailer.Email {
	return mailer.Email{
		From:    from,
		To:      data.Email,
		Subject: fmt.Sprintf("Bloom code: %s", data.Code),
		HTML: fmt.Sprintf(`<p>Hello %s,</p>
<p>Confirm your new email address with this code: <strong>%s</strong></p>
<p>It expires in 30 minutes.</p>`,
			data.Name, data.Code),
	}
}
