// Package gmail adapts the Gmail API to InboxKeeper: it dispatches rule
// actions as label modifications and lists/fetches messages for ingestion.
package gmail

import (
	"context"

	gmailapi "google.golang.org/api/gmail/v1"
)

const user = "me"

// API is the subset of the Gmail service InboxKeeper calls.
type API interface {
	BatchModify(ctx context.Context, req *gmailapi.BatchModifyMessagesRequest) error
	ListLabels(ctx context.Context) ([]*gmailapi.Label, error)
	CreateLabel(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error)
	ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*gmailapi.ListMessagesResponse, error)
	GetRawMessage(ctx context.Context, id string) (*gmailapi.Message, error)
}

// serviceAPI implements API over a *gmailapi.Service.
type serviceAPI struct {
	srv *gmailapi.Service
}

// NewAPI wraps an authenticated Gmail service.
func NewAPI(srv *gmailapi.Service) API {
	return &serviceAPI{srv: srv}
}

func (s *serviceAPI) BatchModify(ctx context.Context, req *gmailapi.BatchModifyMessagesRequest) error {
	return s.srv.Users.Messages.BatchModify(user, req).Context(ctx).Do()
}

func (s *serviceAPI) ListLabels(ctx context.Context) ([]*gmailapi.Label, error) {
	resp, err := s.srv.Users.Labels.List(user).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Labels, nil
}

func (s *serviceAPI) CreateLabel(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error) {
	return s.srv.Users.Labels.Create(user, label).Context(ctx).Do()
}

func (s *serviceAPI) ListMessages(ctx context.Context, labelID string, pageSize int64, pageToken string) (*gmailapi.ListMessagesResponse, error) {
	call := s.srv.Users.Messages.List(user).LabelIds(labelID).MaxResults(pageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (s *serviceAPI) GetRawMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	return s.srv.Users.Messages.Get(user, id).Format("raw").Context(ctx).Do()
}
