package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ems-platform/auth-service/internal/config"
	"github.com/ems-platform/auth-service/internal/domain/service"
)

const (
	graphTokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphSendMailFormat = "https://graph.microsoft.com/v1.0/users/%s/sendMail"
	graphScope          = "https://graph.microsoft.com/.default"

	otpSubject = "EMS password change verification code"
)

// otpBodyTemplate is the fallback body used when no template directory is
// configured. A file named otp_email.html in the template directory overrides it.
const otpBodyTemplate = `<html><body>
<p>Hello {{.FullName}},</p>
<p>Your verification code for changing your EMS password is:</p>
<p style="font-size:24px;font-weight:bold;letter-spacing:4px">{{.Code}}</p>
<p>The code expires in {{.TTLMinutes}} minutes. If you did not request a password change, ignore this message.</p>
</body></html>`

type otpTemplateData struct {
	FullName   string
	Code       string
	TTLMinutes int
}

// graphMailer sends mail through the Microsoft Graph sendMail endpoint using
// an application token obtained via the client-credentials flow. The oauth2
// client caches and refreshes the token on its own.
type graphMailer struct {
	httpClient *http.Client
	sender     string
	otpTTL     time.Duration
	tmpl       *template.Template
	logger     *zap.Logger
}

// NewGraphMailer builds the Graph-backed mail service.
func NewGraphMailer(cfg config.MailConfig, otpTTL time.Duration, logger *zap.Logger) (service.MailService, error) {
	if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.Sender == "" {
		return nil, fmt.Errorf("mail is enabled but tenant_id, client_id, client_secret and sender must all be set")
	}

	tmpl, err := loadOTPTemplate(cfg.TemplateDir)
	if err != nil {
		return nil, err
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf(graphTokenURLFormat, cfg.TenantID),
		Scopes:       []string{graphScope},
	}

	return &graphMailer{
		httpClient: cc.Client(context.Background()),
		sender:     cfg.Sender,
		otpTTL:     otpTTL,
		tmpl:       tmpl,
		logger:     logger,
	}, nil
}

func loadOTPTemplate(dir string) (*template.Template, error) {
	if dir == "" {
		return template.Must(template.New("otp_email").Parse(otpBodyTemplate)), nil
	}
	tmpl, err := template.ParseFiles(filepath.Join(dir, "otp_email.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to load otp email template: %w", err)
	}
	return tmpl, nil
}

type graphMessage struct {
	Message struct {
		Subject string `json:"subject"`
		Body    struct {
			ContentType string `json:"contentType"`
			Content     string `json:"content"`
		} `json:"body"`
		ToRecipients []struct {
			EmailAddress struct {
				Address string `json:"address"`
			} `json:"emailAddress"`
		} `json:"toRecipients"`
	} `json:"message"`
	SaveToSentItems bool `json:"saveToSentItems"`
}

func (m *graphMailer) SendOTPEmail(ctx context.Context, recipient, fullName, otpCode string) error {
	var body bytes.Buffer
	err := m.tmpl.Execute(&body, otpTemplateData{
		FullName:   fullName,
		Code:       otpCode,
		TTLMinutes: int(m.otpTTL.Minutes()),
	})
	if err != nil {
		return fmt.Errorf("failed to render otp email: %w", err)
	}

	var msg graphMessage
	msg.Message.Subject = otpSubject
	msg.Message.Body.ContentType = "HTML"
	msg.Message.Body.Content = body.String()
	msg.Message.ToRecipients = make([]struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	}, 1)
	msg.Message.ToRecipients[0].EmailAddress.Address = recipient

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal sendMail request: %w", err)
	}

	endpoint := fmt.Sprintf(graphSendMailFormat, url.PathEscape(m.sender))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sendMail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call graph sendMail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		m.logger.Error("graph sendMail rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", detail))
		return fmt.Errorf("graph sendMail returned status %d", resp.StatusCode)
	}

	m.logger.Info("otp email sent", zap.String("recipient", recipient))
	return nil
}

var _ service.MailService = (*graphMailer)(nil)
