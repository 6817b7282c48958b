package mailer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	gomail "gopkg.in/gomail.v2"

	"github.com/estebanArmonica/crypto-trading/internal/config"
)

// Sender отправляет письма пользователям: коды верификации,
// приветствие, подтверждение покупки, торговые алерты.
type Sender interface {
	SendVerificationCode(to, code string) error
	SendWelcome(to, name, surname string) error
	SendPurchaseConfirmation(to, name, coinID string, amount decimal.Decimal, pricePerCoin float64, total decimal.Decimal, transactionID string) error
	SendEMAAlert(to, name, coinID, signalType string, currentPrice, emaValue float64, confidence string) error
}

type smtpSender struct {
	log    *slog.Logger
	dialer *gomail.Dialer
	from   string
	brand  string
}

func New(log *slog.Logger, cfg config.SMTPConfig) Sender {
	return &smtpSender{
		log:    log,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
		from:   cfg.From,
		brand:  cfg.Company,
	}
}

func (s *smtpSender) send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", s.brand, s.from))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.log.Error("failed to send email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err),
		)
		return fmt.Errorf("mailer: send to %s: %w", to, err)
	}
	return nil
}

func (s *smtpSender) SendVerificationCode(to, code string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Código de verificación</h2>
			<p>Tu código de verificación es:</p>
			<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px;">%s</p>
			<p>El código expira en 15 minutos.</p>
			<p style="color: #666; font-size: 12px;">%s</p>
		</div>`, code, s.brand)
	return s.send(to, "Código de verificación - "+s.brand, body)
}

func (s *smtpSender) SendWelcome(to, name, surname string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>¡Bienvenido, %s %s!</h2>
			<p>Tu cuenta ha sido creada exitosamente.</p>
			<p>Ya puedes iniciar sesión y comenzar a operar.</p>
			<p style="color: #666; font-size: 12px;">%s</p>
		</div>`, name, surname, s.brand)
	return s.send(to, "Bienvenido a "+s.brand, body)
}

func (s *smtpSender) SendPurchaseConfirmation(to, name, coinID string, amount decimal.Decimal, pricePerCoin float64, total decimal.Decimal, transactionID string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>¡Compra confirmada!</h2>
			<p>Hola %s, tu compra ha sido procesada exitosamente.</p>
			<table style="width: 100%%; border-collapse: collapse;">
				<tr><td style="padding: 8px; color: #666;">ID de transacción</td><td style="padding: 8px; font-weight: bold;">%s</td></tr>
				<tr><td style="padding: 8px; color: #666;">Criptomoneda</td><td style="padding: 8px; font-weight: bold;">%s</td></tr>
				<tr><td style="padding: 8px; color: #666;">Cantidad</td><td style="padding: 8px; font-weight: bold;">%s</td></tr>
				<tr><td style="padding: 8px; color: #666;">Precio por unidad</td><td style="padding: 8px; font-weight: bold;">$%.2f</td></tr>
				<tr><td style="padding: 8px; color: #666;">Total</td><td style="padding: 8px; font-weight: bold;">$%s</td></tr>
			</table>
			<p style="color: #666; font-size: 12px;">%s - %s</p>
		</div>`,
		name, transactionID, coinID, amount.String(), pricePerCoin, total.StringFixed(2),
		s.brand, time.Now().Format(time.RFC1123))
	return s.send(to, "Confirmación de compra - "+coinID, body)
}

func (s *smtpSender) SendEMAAlert(to, name, coinID, signalType string, currentPrice, emaValue float64, confidence string) error {
	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Alerta de Trading: %s</h2>
			<p>Hola %s, se detectó una señal <strong>%s</strong> para <strong>%s</strong>.</p>
			<ul>
				<li>Precio actual: $%.4f</li>
				<li>Valor EMA: $%.4f</li>
				<li>Confianza: %s</li>
			</ul>
			<p style="color: #666; font-size: 12px;">%s - %s</p>
		</div>`,
		signalType, name, signalType, coinID, currentPrice, emaValue, confidence,
		s.brand, time.Now().Format(time.RFC1123))
	return s.send(to, fmt.Sprintf("Alerta %s - %s", signalType, coinID), body)
}
