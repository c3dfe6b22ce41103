package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	application "agora/contexts/governance/election-service/application"
	"agora/contexts/governance/election-service/domain/entities"
	"agora/contexts/governance/election-service/ports"
)

// LogNotifier writes the decision to the process log. It is the default when
// no mail relay is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyCandidacyDecision(ctx context.Context, notification ports.CandidacyNotification) error {
	application.ResolveLogger(n.Logger).InfoContext(ctx, "candidacy decision notification",
		"event", "election_notification_logged",
		"module", application.ModuleName,
		"layer", "adapter",
		"candidacy_id", notification.CandidacyID,
		"recipient", notification.Recipient.Email,
		"status", string(notification.Status),
		"subject", Subject(notification),
	)
	return nil
}

// SMTPNotifier mails the candidate through a plain SMTP relay.
type SMTPNotifier struct {
	Addr     string
	From     string
	Username string
	Password string
	Logger   *slog.Logger

	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func (n SMTPNotifier) NotifyCandidacyDecision(ctx context.Context, notification ports.CandidacyNotification) error {
	recipient := strings.TrimSpace(notification.Recipient.Email)
	if recipient == "" {
		return errors.New("candidate has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if n.Username != "" {
		host := n.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", n.Username, n.Password, host)
	}
	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		n.From, recipient, Subject(notification), Body(notification),
	)
	send := n.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(n.Addr, auth, n.From, []string{recipient}, []byte(message)); err != nil {
		return fmt.Errorf("send candidacy notification: %w", err)
	}
	return nil
}

func Subject(notification ports.CandidacyNotification) string {
	if notification.Status == entities.CandidacyStatusApproved {
		return "Votre candidature a été validée"
	}
	return "Votre candidature a été rejetée"
}

func Body(notification ports.CandidacyNotification) string {
	var b strings.Builder
	name := notification.Recipient.DisplayName()
	if name == "" {
		name = "Madame, Monsieur"
	}
	fmt.Fprintf(&b, "Bonjour %s,\n\n", name)
	verdict := "rejetée"
	if notification.Status == entities.CandidacyStatusApproved {
		verdict = "validée"
	}
	fmt.Fprintf(&b, "Votre candidature au poste « %s » pour l'élection « %s » a été %s.\n",
		notification.PositionTitle, notification.ElectionTitle, verdict)
	if comments := strings.TrimSpace(notification.Comments); comments != "" {
		fmt.Fprintf(&b, "\nCommentaire : %s\n", comments)
	}
	return b.String()
}
