// Package gmail sends mail through a user's own Gmail mailbox using the
// Gmail REST API and a caller-supplied OAuth access token.
//
// Messages are assembled as RFC 5322 multipart documents with
// github.com/emersion/go-message and submitted with users.messages.send.
// Every returned error is tagged with one of the mailer failure classes so
// callers can decide whether to refresh, retry or give up:
//
//	id, err := client.Send(ctx, accessToken, email)
//	if mailer.Classify(err) == mailer.ClassAuthExpired {
//		// refresh the access token and try once more
//	}
package gmail
