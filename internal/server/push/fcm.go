package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FCMSender delivers messages through Firebase Cloud Messaging HTTP v1.
type FCMSender struct {
	messages *fcm.ProjectsMessagesService
	parent   string
	base     *url.URL
}

// NewFCMSender builds a sender for projectID authenticated with a service
// account credentials file. Relative message URLs are resolved against
// baseURL, since webpush links must be absolute https.
func NewFCMSender(ctx context.Context, projectID, credentialsFile, baseURL string, opts ...option.ClientOption) (*FCMSender, error) {
	if projectID == "" {
		return nil, errors.New("fcm project id is required")
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init fcm client: %w", err)
	}
	return &FCMSender{
		messages: svc.Projects.Messages,
		parent:   "projects/" + projectID,
		base:     base,
	}, nil
}

func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	link := s.link(msg.URL)
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: map[string]string{"url": msg.URL},
		},
	}
	if link != "" {
		req.Message.Data["url"] = link
		req.Message.Webpush = &fcm.WebpushConfig{
			FcmOptions: &fcm.WebpushFcmOptions{Link: link},
		}
	}

	if _, err := s.messages.Send(s.parent, req).Context(ctx).Do(); err != nil {
		if isUnregistered(err) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// link resolves raw against the base URL and returns it only when the
// result is an absolute https URL.
func (s *FCMSender) link(raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := s.base.ResolveReference(ref)
	if abs.Scheme != "https" || abs.Host == "" {
		return ""
	}
	return abs.String()
}

// isUnregistered reports whether FCM rejected the token as no longer valid.
func isUnregistered(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == http.StatusNotFound {
		return true
	}
	return strings.Contains(apiErr.Body, "UNREGISTERED")
}
