// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aquaally/ally/internal/annotate"
	"github.com/aquaally/ally/internal/conversation"
	"github.com/aquaally/ally/internal/export"
	"github.com/aquaally/ally/internal/history"
	"github.com/aquaally/ally/internal/model"
	"github.com/aquaally/ally/internal/session"
)

// ============================================================================
// RESPONSE TYPES
// ============================================================================

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ListResponse is returned by GET /conversations.
type ListResponse struct {
	Conversations []model.Conversation `json:"conversations"`
}

// GroupedResponse is returned by GET /conversations?group=1.
type GroupedResponse struct {
	Groups []GroupResponse `json:"groups"`
}

// GroupResponse is one date bucket of a grouped listing.
type GroupResponse struct {
	Bucket        string               `json:"bucket"`
	Conversations []model.Conversation `json:"conversations"`
}

// MessagesResponse is returned by GET /conversations/:id/messages.
type MessagesResponse struct {
	Conversation model.Conversation `json:"conversation"`
	Messages     []model.Message    `json:"messages"`
}

// UpdateRequest is the body of PATCH /conversations/:id.
type UpdateRequest struct {
	Title    *string `json:"title"`
	IsPinned *bool   `json:"is_pinned"`
}

// BulkDeleteRequest is the body of POST /conversations/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDeleteResponse reports how many of the requested conversations
// existed and were removed.
type BulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// AnnotateRequest is the body of POST /annotate.
type AnnotateRequest struct {
	Content string `json:"content"`
}

// AnnotateResponse carries the cleaned text and its derived affordances.
type AnnotateResponse struct {
	Content      string               `json:"content"`
	FollowUps    []model.FollowUpItem `json:"follow_ups"`
	QuickActions []model.QuickAction  `json:"quick_actions"`
}

// ============================================================================
// HELPERS
// ============================================================================

// managerFor builds a conversation manager for the request's user with the
// list already loaded, so row actions see the same no-op rules as the TUI.
func (s *Server) managerFor(c echo.Context) (*conversation.Manager, error) {
	sess := session.NewWithUser(session.User{ID: UserID(c)}, session.TierFree)
	mgr := conversation.New(s.store, sess,
		conversation.WithLogger(s.logger),
		conversation.WithClock(s.now))
	if err := mgr.FetchConversations(c.Request().Context()); err != nil {
		return nil, err
	}
	return mgr, nil
}

// filtered lists the user's conversations narrowed by the q and filter
// query parameters.
func (s *Server) filtered(c echo.Context) ([]model.Conversation, error) {
	quick, err := history.ParseQuickFilter(c.QueryParam("filter"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	convs, err := s.store.ListConversations(c.Request().Context(), UserID(c))
	if err != nil {
		return nil, err
	}
	out := history.Filter(convs, c.QueryParam("q"), quick, s.now())
	if out == nil {
		out = []model.Conversation{}
	}
	return out, nil
}

func attachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       s.opts.Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleListConversations(c echo.Context) error {
	convs, err := s.filtered(c)
	if err != nil {
		return err
	}

	switch c.QueryParam("group") {
	case "1", "true":
		groups := history.GroupByDate(convs, s.now())
		resp := GroupedResponse{Groups: make([]GroupResponse, 0, len(groups))}
		for _, g := range groups {
			resp.Groups = append(resp.Groups, GroupResponse{Bucket: string(g.Bucket), Conversations: g.Conversations})
		}
		return c.JSON(http.StatusOK, resp)
	}
	return c.JSON(http.StatusOK, ListResponse{Conversations: convs})
}

func (s *Server) handleConversationsCSV(c echo.Context) error {
	convs, err := s.filtered(c)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	attachment(c, "conversations.csv")
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteConversationsCSV(c.Response(), convs)
}

func (s *Server) handleListMessages(c echo.Context) error {
	ctx, user, id := c.Request().Context(), UserID(c), c.Param("id")
	conv, err := s.store.GetConversation(ctx, user, id)
	if err != nil {
		return err
	}
	msgs, err := s.store.ListMessages(ctx, user, id)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return c.JSON(http.StatusOK, MessagesResponse{Conversation: conv, Messages: msgs})
}

func (s *Server) handleExport(c echo.Context) error {
	exporter, err := export.ForFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mgr, err := s.managerFor(c)
	if err != nil {
		return err
	}
	doc, err := mgr.ExportDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	data, err := exporter.Export(doc)
	if err != nil {
		return err
	}
	attachment(c, export.Filename(doc.Conversation.Title, exporter.FileExtension()))
	return c.Blob(http.StatusOK, exporter.MimeType(), data)
}

func (s *Server) handleUpdateConversation(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == nil && req.IsPinned == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title must not be empty")
	}

	ctx, id := c.Request().Context(), c.Param("id")
	mgr, err := s.managerFor(c)
	if err != nil {
		return err
	}
	conv, ok := mgr.Find(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}

	if req.Title != nil {
		if err := mgr.RenameConversation(ctx, id, *req.Title); err != nil {
			return err
		}
	}
	if req.IsPinned != nil && *req.IsPinned != conv.IsPinned {
		if err := mgr.PinConversation(ctx, id); err != nil {
			return err
		}
	}

	updated, _ := mgr.Find(id)
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteConversation(c echo.Context) error {
	id := c.Param("id")
	mgr, err := s.managerFor(c)
	if err != nil {
		return err
	}
	if _, ok := mgr.Find(id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	if _, err := mgr.DeleteConversation(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(c echo.Context) error {
	var req BulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids must not be empty")
	}

	mgr, err := s.managerFor(c)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		if _, ok := mgr.Find(id); ok {
			found[id] = true
		}
	}
	if _, err := mgr.BulkDeleteConversations(c.Request().Context(), req.IDs); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, BulkDeleteResponse{Deleted: len(found)})
}

func (s *Server) handleAnnotate(c echo.Context) error {
	var req AnnotateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content must not be empty")
	}

	clean, followUps := annotate.ParseFollowUpSuggestions(req.Content)
	actions := annotate.DetectQuickActions(clean)
	if followUps == nil {
		followUps = []model.FollowUpItem{}
	}
	if actions == nil {
		actions = []model.QuickAction{}
	}
	return c.JSON(http.StatusOK, AnnotateResponse{Content: clean, FollowUps: followUps, QuickActions: actions})
}
