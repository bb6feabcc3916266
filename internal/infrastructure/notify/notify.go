// Package notify holds the low-stock alert delivery adapters.
package notify

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	appinv "github.com/Zhima-Mochi/storefront/internal/application/inventory"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

// StaticDirectory is a fixed administrator list.
type StaticDirectory []appinv.Admin

var _ appinv.AdminDirectory = StaticDirectory(nil)

// ParseAdmins reads "username:email" entries separated by commas. A bare email uses its local part as the name.
func ParseAdmins(spec string) (StaticDirectory, error) {
	var out StaticDirectory
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, email, ok := strings.Cut(entry, ":")
		if !ok {
			email = entry
			name, _, _ = strings.Cut(entry, "@")
		}
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, fmt.Errorf("notify: admin %q: %w", entry, err)
		}
		out = append(out, appinv.Admin{Username: strings.TrimSpace(name), Email: strings.TrimSpace(email)})
	}
	return out, nil
}

func (d StaticDirectory) Admins(context.Context) ([]appinv.Admin, error) {
	return append([]appinv.Admin(nil), d...), nil
}

// LogMailer writes each alert as a structured log line instead of sending it.
type LogMailer struct {
	log observability.Logger
}

var _ appinv.Mailer = (*LogMailer)(nil)

func NewLogMailer(logger observability.Logger) *LogMailer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogMailer{log: logger.With(observability.F("component", "log_mailer"))}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logctx.FromOr(ctx, m.log).Info("low_stock_mail",
		observability.F("to", to),
		observability.F("subject", subject),
		observability.F("body", body),
	)
	return nil
}
