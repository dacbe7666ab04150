package server

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sicko7947/approvalflow"
	"github.com/sicko7947/approvalflow/actiontoken"
	"github.com/sicko7947/approvalflow/auth"
	"github.com/sicko7947/approvalflow/engine"
)

// authenticate resolves the bearer token into an identity
func (s *Server) authenticate(c fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}

	identity, err := s.verifier.Verify(c.Context(), token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected bearer token")
		return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// requireManager rejects callers without the manager role
func (s *Server) requireManager(c fiber.Ctx) error {
	if !identityFrom(c).IsManager() {
		return fiber.NewError(fiber.StatusForbidden, "Manager role required")
	}
	return c.Next()
}

func identityFrom(c fiber.Ctx) auth.Identity {
	identity, _ := c.Locals(identityKey).(auth.Identity)
	return identity
}

// canSee applies the ownership policy: managers see everything, writers their own
func canSee(identity auth.Identity, sub *approvalflow.Submission) bool {
	return identity.IsManager() || sub.IsOwnedBy(identity.Email)
}

func (s *Server) handleLogout(c fiber.Ctx) error {
	if s.revoker == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.revoker.Revoke(c.Context(), identityFrom(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleCreate(c fiber.Ctx) error {
	var in engine.CreateInput
	if err := c.Bind().JSON(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	in.WriterEmail = identityFrom(c).Email

	sub, err := s.workflow.CreateSubmission(c.Context(), in)
	if err != nil {
		return err
	}

	s.notifyApprovalRequest(sub)

	return c.Status(fiber.StatusCreated).JSON(sub)
}

func (s *Server) handleList(c fiber.Ctx) error {
	var (
		subs []*approvalflow.Submission
		err  error
	)
	if raw := c.Query("status"); raw != "" {
		status, perr := approvalflow.ParseStatus(raw)
		if perr != nil {
			return perr
		}
		subs, err = s.workflow.GetSubmissionsByStatus(c.Context(), status)
	} else {
		subs, err = s.workflow.GetAllSubmissions(c.Context())
	}
	if err != nil {
		return err
	}

	identity := identityFrom(c)
	visible := make([]*approvalflow.Submission, 0, len(subs))
	for _, sub := range subs {
		if canSee(identity, sub) {
			visible = append(visible, sub)
		}
	}

	return c.JSON(fiber.Map{
		"submissions": visible,
		"count":       len(visible),
	})
}

func (s *Server) handleCounts(c fiber.Ctx) error {
	counts, err := s.workflow.GetSubmissionCounts(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(counts)
}

func (s *Server) handleGet(c fiber.Ctx) error {
	id := c.Params("id")
	sub, found, err := s.workflow.GetSubmission(c.Context(), id)
	if err != nil {
		return err
	}
	if !found || !canSee(identityFrom(c), sub) {
		return approvalflow.NewNotFoundError(id)
	}
	return c.JSON(sub)
}

func (s *Server) handleDecision(status approvalflow.Status) fiber.Handler {
	return func(c fiber.Ctx) error {
		return s.transition(c, status)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetStatus(c fiber.Ctx) error {
	var req statusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	status, err := approvalflow.ParseStatus(req.Status)
	if err != nil {
		return err
	}
	return s.transition(c, status)
}

// transition applies a manager's web decision; last write wins
func (s *Server) transition(c fiber.Ctx, status approvalflow.Status) error {
	result, err := s.workflow.Transition(c.Context(), c.Params("id"), status)
	if err != nil {
		return err
	}

	s.notifyDecision(result)

	return c.JSON(result)
}

func (s *Server) handleDelete(c fiber.Ctx) error {
	id := c.Params("id")
	identity := identityFrom(c)

	if !identity.IsManager() {
		sub, found, err := s.workflow.GetSubmission(c.Context(), id)
		if err != nil {
			return err
		}
		if !found || !canSee(identity, sub) {
			return approvalflow.NewNotFoundError(id)
		}
	}

	deleted, err := s.workflow.DeleteSubmission(c.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return approvalflow.NewNotFoundError(id)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleEmailActionPreview answers the link itself. It only describes the
// pending decision; mail scanners that prefetch links must not change state.
func (s *Server) handleEmailActionPreview(c fiber.Ctx) error {
	token := c.Query("token")
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return s.rejectEmailToken(c, err)
	}

	sub, found, err := s.workflow.GetSubmission(c.Context(), claims.SubmissionID)
	if err != nil {
		return err
	}
	if !found {
		return approvalflow.NewNotFoundError(claims.SubmissionID)
	}

	if sub.Status != approvalflow.StatusPending {
		return c.JSON(fiber.Map{
			"result":     "already_processed",
			"message":    "This submission has already been " + sub.Status.String(),
			"submission": sub,
		})
	}

	return c.JSON(fiber.Map{
		"result":     "confirm",
		"action":     claims.Action,
		"message":    "Confirm to " + string(claims.Action) + " this submission",
		"submission": sub,
		"confirm": fiber.Map{
			"method": fiber.MethodPost,
			"url":    "/actions/email?token=" + url.QueryEscape(token),
		},
	})
}

// handleEmailAction applies the decision carried by a signed email link.
// Only a still-pending submission is changed; anything else reports the
// decision already recorded.
func (s *Server) handleEmailAction(c fiber.Ctx) error {
	claims, err := s.tokens.Verify(c.Query("token"))
	if err != nil {
		return s.rejectEmailToken(c, err)
	}

	result, err := s.workflow.DecidePending(c.Context(), claims.SubmissionID, claims.Action)
	if err != nil {
		return err
	}

	if !result.Changed {
		return c.JSON(fiber.Map{
			"result":     "already_processed",
			"message":    "This submission has already been " + result.Submission.Status.String(),
			"submission": result.Submission,
		})
	}

	s.notifyDecision(result)

	return c.JSON(fiber.Map{
		"result":     "applied",
		"message":    "Submission " + result.Submission.Status.String(),
		"submission": result.Submission,
	})
}

func (s *Server) rejectEmailToken(c fiber.Ctx, err error) error {
	s.logger.Warn().
		Str("event", approvalflow.EventEmailActionRejected).
		Err(err).
		Msg("Rejected email action token")
	message := "Invalid or tampered link"
	if errors.Is(err, actiontoken.ErrTokenExpired) {
		message = "This link has expired"
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
		"code":  approvalflow.ErrCodeValidation,
	})
}
