package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/stepwise/internal/coach"
	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/skillgraph"
)

type handler struct {
	tutor Tutor
	log   *logger.Logger
}

type chatRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply    string               `json:"reply"`
	Phase    string               `json:"phase"`
	Mastered []skillgraph.SkillID `json:"mastered,omitempty"`
}

type planSkill struct {
	ID      skillgraph.SkillID `json:"id"`
	Name    string             `json:"name"`
	Subject string             `json:"subject,omitempty"`
	Stage   string             `json:"stage,omitempty"`
}

type planResponse struct {
	Skills []planSkill `json:"skills"`
}

func (h *handler) root(c *gin.Context) {
	RespondOK(c, gin.H{"message": "Stepwise tutor API is running!"})
}

func (h *handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", coach.ErrEmptyToken)
		return
	}

	reply, err := h.tutor.HandleTurn(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, chatResponse{Reply: reply.Text, Phase: reply.Phase.String(), Mastered: reply.Mastered})
}

func (h *handler) plan(c *gin.Context) {
	skills, err := h.tutor.CurrentPlan(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := planResponse{Skills: make([]planSkill, len(skills))}
	for i, s := range skills {
		out.Skills[i] = planSkill{ID: s.ID, Name: s.Name, Subject: s.Subject, Stage: s.Stage}
	}
	RespondOK(c, out)
}

func (h *handler) reset(c *gin.Context) {
	if err := h.tutor.Reset(c.Request.Context(), c.Param("token")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, coach.ErrEmptyToken):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, coach.ErrPersistence):
		RespondError(c, http.StatusServiceUnavailable, "unavailable", errors.New("storage is unavailable, please try again shortly"))
	default:
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}
