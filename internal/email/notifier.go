package email

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
)

// GrantNotifier avisa por email a un usuario que recibió acceso a una
// database. Best-effort: el envío corre en una goroutine aparte y un
// fallo solo se loguea, nunca afecta la operación que lo disparó.
type GrantNotifier struct {
	sender Sender
}

func NewGrantNotifier(sender Sender) *GrantNotifier {
	return &GrantNotifier{sender: sender}
}

// GrantCreated dispara la notificación de invitación.
func (n *GrantNotifier) GrantCreated(ctx context.Context, toEmail, databaseName string, level domain.Level) {
	if n.sender == nil {
		return
	}
	go func() {
		subject := fmt.Sprintf("Te dieron acceso a %q", databaseName)
		text := fmt.Sprintf(
			"Te otorgaron el nivel %s sobre la database %q.\n\nYa podés entrar y colaborar.",
			level, databaseName,
		)
		html := fmt.Sprintf(
			"<p>Te otorgaron el nivel <strong>%s</strong> sobre la database <strong>%s</strong>.</p><p>Ya podés entrar y colaborar.</p>",
			level, databaseName,
		)
		if err := n.sender.Send(toEmail, subject, html, text); err != nil {
			logger.L().Warn("grant notification failed",
				logger.Component("email.notifier"),
				logger.Any("to", toEmail),
				logger.Err(err),
			)
		}
	}()
}
