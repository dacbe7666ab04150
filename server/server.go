// Package server exposes the approval workflow over HTTP. It owns the
// boundary concerns the engine leaves to its callers: authentication,
// ownership filtering, email-link verification and notifications.
package server

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/sicko7947/approvalflow"
	"github.com/sicko7947/approvalflow/actiontoken"
	"github.com/sicko7947/approvalflow/auth"
	"github.com/sicko7947/approvalflow/engine"
	"github.com/sicko7947/approvalflow/notify"
)

// Workflow is the subset of the engine the HTTP boundary drives
type Workflow interface {
	CreateSubmission(ctx context.Context, in engine.CreateInput) (*approvalflow.Submission, error)
	Transition(ctx context.Context, id string, status approvalflow.Status) (*approvalflow.TransitionResult, error)
	DecidePending(ctx context.Context, id string, action approvalflow.Action) (*approvalflow.TransitionResult, error)
	GetSubmission(ctx context.Context, id string) (*approvalflow.Submission, bool, error)
	GetAllSubmissions(ctx context.Context) ([]*approvalflow.Submission, error)
	GetSubmissionsByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error)
	GetSubmissionCounts(ctx context.Context) (approvalflow.StatusCounts, error)
	DeleteSubmission(ctx context.Context, id string) (bool, error)
}

// ActionTokens signs and verifies email action links
type ActionTokens interface {
	Sign(submissionID string, action approvalflow.Action) (string, error)
	Verify(token string) (actiontoken.Claims, error)
}

// Revoker invalidates a caller's bearer token
type Revoker interface {
	Revoke(ctx context.Context, identity auth.Identity) error
}

// Notifier hands messages to background delivery
type Notifier interface {
	Dispatch(msg notify.Message)
}

// Deps are the collaborators the server wires together
type Deps struct {
	Workflow Workflow
	Verifier auth.Verifier
	Revoker  Revoker
	Tokens   ActionTokens
	Notifier Notifier
	Logger   zerolog.Logger
}

// Config holds boundary settings
type Config struct {
	ManagerEmail  string
	PublicBaseURL string
}

// Server is the HTTP boundary
type Server struct {
	app      *fiber.App
	workflow Workflow
	verifier auth.Verifier
	revoker  Revoker
	tokens   ActionTokens
	notifier Notifier
	logger   zerolog.Logger
	config   Config
}

const identityKey = "identity"

// New builds the fiber app and registers all routes
func New(deps Deps, cfg Config) *Server {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")

	s := &Server{
		workflow: deps.Workflow,
		verifier: deps.Verifier,
		revoker:  deps.Revoker,
		tokens:   deps.Tokens,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		config:   cfg,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "approvalflow",
		ErrorHandler: s.handleError,
	})
	s.registerRoutes()

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until shutdown
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting up to timeout for in-flight requests
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "approvalflow",
		})
	})

	// Email links carry their own authorization. Opening one only previews
	// the decision; the confirmation form posts back to apply it.
	s.app.Get("/actions/email", s.handleEmailActionPreview)
	s.app.Post("/actions/email", s.handleEmailAction)

	v1 := s.app.Group("/api/v1", s.authenticate)

	v1.Post("/auth/logout", s.handleLogout)

	submissions := v1.Group("/submissions")
	submissions.Post("", s.handleCreate)
	submissions.Get("", s.handleList)
	submissions.Get("/counts", s.requireManager, s.handleCounts)
	submissions.Get("/:id", s.handleGet)
	submissions.Post("/:id/approve", s.requireManager, s.handleDecision(approvalflow.StatusApproved))
	submissions.Post("/:id/reject", s.requireManager, s.handleDecision(approvalflow.StatusRejected))
	submissions.Put("/:id/status", s.requireManager, s.handleSetStatus)
	submissions.Delete("/:id", s.handleDelete)
}

// approvalLinks signs approve and reject links for a new submission
func (s *Server) approvalLinks(id string) (string, string, error) {
	approve, err := s.tokens.Sign(id, approvalflow.ActionApprove)
	if err != nil {
		return "", "", err
	}
	reject, err := s.tokens.Sign(id, approvalflow.ActionReject)
	if err != nil {
		return "", "", err
	}
	link := func(token string) string {
		return s.config.PublicBaseURL + "/actions/email?token=" + url.QueryEscape(token)
	}
	return link(approve), link(reject), nil
}

// notifyApprovalRequest tells the manager about a new submission
func (s *Server) notifyApprovalRequest(sub *approvalflow.Submission) {
	if s.notifier == nil || s.config.ManagerEmail == "" {
		return
	}
	msg := notify.Message{
		Kind:       notify.KindApprovalRequest,
		Recipient:  s.config.ManagerEmail,
		Submission: sub,
	}
	approveURL, rejectURL, err := s.approvalLinks(sub.ID)
	if err != nil {
		s.logger.Error().
			Str("event", approvalflow.EventNotificationFailed).
			Str("submission_id", sub.ID).
			Err(err).
			Msg("Failed to sign approval links")
	} else {
		msg.ApproveURL = approveURL
		msg.RejectURL = rejectURL
	}
	s.notifier.Dispatch(msg)
}

// notifyDecision tells the writer about a status change
func (s *Server) notifyDecision(result *approvalflow.TransitionResult) {
	if s.notifier == nil || !result.Changed || result.Submission.WriterEmail == "" {
		return
	}
	kind, ok := notify.KindForStatus(result.Submission.Status)
	if !ok {
		return
	}
	s.notifier.Dispatch(notify.Message{
		Kind:       kind,
		Recipient:  result.Submission.WriterEmail,
		Submission: result.Submission,
	})
}

// respondError renders a workflow error at its response tier
func respondError(c fiber.Ctx, err error) error {
	return c.Status(approvalflow.HTTPStatus(err)).JSON(fiber.Map{
		"error": approvalflow.PublicMessage(err),
		"code":  approvalflow.ErrorCode(err),
	})
}

// handleError renders errors returned by handlers and fiber itself
func (s *Server) handleError(c fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": fe.Message,
		})
	}

	status := approvalflow.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("Request failed")
	}
	return respondError(c, err)
}
