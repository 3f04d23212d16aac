package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"parkingapp/internal/config"
	"parkingapp/internal/db"
	"parkingapp/internal/entities"
	applog "parkingapp/internal/log"
	"parkingapp/internal/repository"
)

//go:embed templates/notification_email.html
var notificationEmailHTML string

var notificationEmailTmpl = template.Must(template.New("notification_email").Parse(notificationEmailHTML))

type EmailSender interface {
	SendEmail(to db.UserContact, subject, plainText, html string) error
}

type SMSSender interface {
	SendSMS(toNumber, body string) error
}

// NotificationService delivers reservation notifications by email and SMS.
// Sends run in the background; Wait blocks until the ones started so far end.
type NotificationService struct {
	Contacts repository.ContactRepository
	Email    EmailSender
	SMS      SMSSender

	wg sync.WaitGroup
}

// NewNotificationService wires the channels configured in cfg. A channel
// without credentials is left nil and skipped.
func NewNotificationService(contacts repository.ContactRepository, cfg config.Config) *NotificationService {
	s := &NotificationService{Contacts: contacts}
	if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
		s.Email = &SendGridSender{APIKey: cfg.SendGridAPIKey, FromEmail: cfg.SendGridFromEmail, FromName: cfg.SendGridFromName}
	} else {
		log.Println("WARNING: SendGrid is not configured, notification emails are disabled")
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromNumber != "" {
		s.SMS = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	} else {
		log.Println("WARNING: Twilio is not configured, notification SMS are disabled")
	}
	return s
}

func (s *NotificationService) NotifyUser(ctx context.Context, userID, title, body, category string, metadata map[string]string) error {
	c, err := s.Contacts.GetContact(ctx, userID)
	if err != nil {
		return err
	}
	s.send(ctx, *c, title, body, category, metadata)
	return nil
}

func (s *NotificationService) NotifyOwner(ctx context.Context, parkingID, title, body, category string, metadata map[string]string) error {
	c, err := s.Contacts.GetParkingOwnerContact(ctx, parkingID)
	if err != nil {
		return err
	}
	s.send(ctx, *c, title, body, category, metadata)
	return nil
}

func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) send(ctx context.Context, to db.UserContact, title, body, category string, metadata map[string]string) {
	// The request context ends with the response; keep only its values.
	ctx = context.WithoutCancel(ctx)
	fields := map[string]any{"user_id": to.ID, "category": category, "reservation_id": metadata["reservationId"]}

	if s.Email != nil && to.Email != "" {
		html, err := renderNotificationEmail(entities.NotificationEmailData{
			UserName:    to.Name,
			Title:       title,
			Body:        body,
			CurrentYear: time.Now().Year(),
		})
		if err != nil {
			applog.Error(ctx, "notification.email.render", err, fields)
		} else {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.Email.SendEmail(to, title, body, html); err != nil {
					applog.Error(ctx, "notification.email.fail", err, fields)
				}
			}()
		}
	}

	if s.SMS != nil && to.Phone != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.SMS.SendSMS(to.Phone, "Parking App: "+title+". "+body); err != nil {
				applog.Error(ctx, "notification.sms.fail", err, fields)
			}
		}()
	}
}

func renderNotificationEmail(data entities.NotificationEmailData) (string, error) {
	var buf bytes.Buffer
	if err := notificationEmailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render notification email: %w", err)
	}
	return buf.String(), nil
}

type SendGridSender struct {
	APIKey    string
	FromEmail string
	FromName  string
}

func (s *SendGridSender) SendEmail(to db.UserContact, subject, plainText, html string) error {
	from := mail.NewEmail(s.FromName, s.FromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail(to.Name, to.Email), plainText, html)

	response, err := sendgrid.NewSendClient(s.APIKey).Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send to %s: %w", to.Email, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	log.Printf("Email sent to %s (subject: %s), status %d", to.Email, subject, response.StatusCode)
	return nil
}

type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username:   accountSID,
		Password:   authToken,
		AccountSid: accountSID,
	})
	return &TwilioSender{client: client, from: fromNumber}
}

func (s *TwilioSender) SendSMS(toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		log.Printf("WARNING: number %q is not in E.164 format, the SMS may fail", toNumber)
	}
	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send to %s: %w", toNumber, err)
	}
	if resp != nil && resp.Sid != nil {
		log.Printf("SMS sent to %s, sid %s", toNumber, *resp.Sid)
	}
	return nil
}
