package inventory

import (
	"context"
	"errors"
	"fmt"

	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
)

type Admin struct {
	Username string
	Email    string
}

type AdminDirectory interface {
	Admins(ctx context.Context) ([]Admin, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AdminEmailListener mails every administrator about a low-stock product.
type AdminEmailListener struct {
	directory AdminDirectory
	mailer    Mailer
}

func NewAdminEmailListener(directory AdminDirectory, mailer Mailer) *AdminEmailListener {
	return &AdminEmailListener{directory: directory, mailer: mailer}
}

func (l *AdminEmailListener) OnLowStock(ctx context.Context, p *dominv.Product, current, threshold int) error {
	admins, err := l.directory.Admins(ctx)
	if err != nil {
		return fmt.Errorf("admin listener: list admins: %w", err)
	}
	subject := "Product Stock Alert: " + p.Name
	var errs []error
	for _, a := range admins {
		body := fmt.Sprintf(
			"Dear %s,\n\nThe following product is running low on stock:\n\n"+
				"Product Name: %s\nCurrent Stock Level: %d\nStock Threshold: %d\n\n"+
				"Please replenish the inventory.\n",
			a.Username, p.Name, current, threshold,
		)
		if err := l.mailer.Send(ctx, a.Email, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("mail %s: %w", a.Email, err))
		}
	}
	return errors.Join(errs...)
}
