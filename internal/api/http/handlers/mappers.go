package handlers

import (
	"time"

	"github.com/helpdeskhq/helpdesk/internal/api/dto"
	"github.com/helpdeskhq/helpdesk/internal/domain"
	"github.com/helpdeskhq/helpdesk/internal/service"
)

func userResponse(view *service.UserView) dto.UserResponse {
	return dto.UserResponse{
		ID:             view.ID,
		Name:           view.Name,
		Email:          view.Email,
		Phone:          view.Phone,
		DocumentNumber: view.DocumentNumber,
		CompanyID:      view.CompanyID,
		Roles:          domain.RoleLabels(view.Roles),
		EffectiveRole:  roleLabel(view.EffectiveRole),
		Active:         view.Active,
		Redacted:       view.Redacted,
		CreatedAt:      view.CreatedAt,
		UpdatedAt:      view.UpdatedAt,
	}
}

func userResponses(views []service.UserView) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(views))
	for i := range views {
		out = append(out, userResponse(&views[i]))
	}
	return out
}

func companyResponse(c *domain.Company) dto.CompanyResponse {
	return dto.CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		TradeName: c.TradeName,
		TaxID:     c.TaxID,
		Email:     c.Email,
		Phone:     c.Phone,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func callResponse(call *domain.Call) dto.CallResponse {
	tags := call.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.CallResponse{
		ID:          call.ID,
		Protocol:    call.Protocol,
		CompanyID:   call.CompanyID,
		ClientID:    call.ClientID,
		OperatorID:  call.OperatorID,
		Title:       call.Title,
		Description: call.Description,
		Status:      call.Status,
		Priority:    call.Priority,
		Tags:        tags,
		CreatedAt:   call.CreatedAt,
		UpdatedAt:   call.UpdatedAt,
		ClosedAt:    call.ClosedAt,
	}
}

func callMessageResponse(msg *domain.CallMessage) dto.CallMessageResponse {
	return dto.CallMessageResponse{
		ID:          msg.ID,
		AuthorID:    msg.AuthorID,
		AuthorRole:  roleLabel(msg.AuthorRole),
		MessageType: msg.MessageType,
		Body:        msg.Body,
		CreatedAt:   msg.CreatedAt,
	}
}

func callDetailResponse(detail *service.CallDetail) dto.CallDetailResponse {
	msgs := make([]dto.CallMessageResponse, 0, len(detail.Messages))
	for i := range detail.Messages {
		msgs = append(msgs, callMessageResponse(&detail.Messages[i]))
	}
	return dto.CallDetailResponse{CallResponse: callResponse(detail.Call), Messages: msgs}
}

func callHistoryResponse(h *domain.CallHistory) dto.CallHistoryResponse {
	return dto.CallHistoryResponse{
		ID:          h.ID,
		ChangedByID: h.ChangedByID,
		ChangeType:  h.ChangeType,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}

func chatSessionResponse(s *domain.ChatSession) dto.ChatSessionResponse {
	return dto.ChatSessionResponse{
		ID:          s.ID,
		ClientID:    s.ClientID,
		ClientName:  s.ClientName,
		CompanyID:   s.CompanyID,
		OperatorID:  s.OperatorID,
		Subject:     s.Subject,
		Status:      s.Status,
		RequestedAt: s.RequestedAt,
		AcceptedAt:  s.AcceptedAt,
		ClosedAt:    s.ClosedAt,
	}
}

func chatMessageResponse(m *domain.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:         m.ID,
		AuthorID:   m.AuthorID,
		AuthorRole: roleLabel(m.AuthorRole),
		Body:       m.Body,
		SentAt:     m.SentAt,
	}
}

func queuedChatResponse(q *service.QueuedChat) dto.QueuedChatResponse {
	return dto.QueuedChatResponse{
		Session:        chatSessionResponse(&q.Session),
		Position:       q.Position,
		WaitingSeconds: int64(q.Waiting / time.Second),
	}
}

func articleResponse(a *domain.Article) dto.ArticleResponse {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.ArticleResponse{
		ID:        a.ID,
		Kind:      a.Kind,
		Title:     a.Title,
		Summary:   a.Summary,
		Body:      a.Body,
		VideoURL:  a.VideoURL,
		Tags:      tags,
		Audience:  domain.RoleLabels(a.Audience),
		Published: a.Published,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
