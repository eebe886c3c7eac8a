package academiclessons

import (
	"encoding/json"

	"github.com/reddinamica/reddinamica/internal/domain/lifecycle"
	"github.com/reddinamica/reddinamica/internal/domain/models"
)

type justificationRequest struct {
	Methodology string `json:"methodology" validate:"max=10000"`
	Objectives  string `json:"objectives" validate:"max=10000"`
}

type createLessonRequest struct {
	Title          string               `json:"title" validate:"required,notblank,max=200"`
	Resume         string               `json:"resume"`
	AcademicGroup  string               `json:"academicGroup" validate:"required,objectid"`
	Justification  justificationRequest `json:"justification"`
	References     string               `json:"references"`
	Tags           json.RawMessage      `json:"tags"`
	KnowledgeAreas []string             `json:"knowledge_areas" validate:"omitempty,dive,notblank"`
}

type updateLessonRequest struct {
	Title          *string               `json:"title" validate:"omitempty,notblank,max=200"`
	Resume         *string               `json:"resume"`
	Justification  *justificationRequest `json:"justification"`
	References     *string               `json:"references"`
	Tags           json.RawMessage       `json:"tags"`
	KnowledgeAreas []string              `json:"knowledge_areas" validate:"omitempty,dive,notblank"`
}

type stateRequest struct {
	State   string `json:"state" validate:"required"`
	Message string `json:"message"`
}

type stateResponse struct {
	State    lifecycle.State        `json:"state"`
	Status   string                 `json:"status"`
	Comments []models.LessonComment `json:"comments"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

type rejectRequest struct {
	Reason   string `json:"reason"`
	Feedback string `json:"feedback"`
}

type gradeRequest struct {
	Grade    *float64 `json:"grade" validate:"required,min=0,max=5"`
	Feedback string   `json:"feedback"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,notblank"`
}

type respondRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

type transferLeaderRequest struct {
	UserID string `json:"userId" validate:"required,objectid"`
}

type contentRequest struct {
	Content string `json:"content" validate:"required,notblank"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required,notblank"`
	Type    string `json:"type" validate:"omitempty,oneof=general feedback"`
}

type conversationRequest struct {
	Name         string   `json:"name" validate:"required,notblank,max=120"`
	Participants []string `json:"participants" validate:"omitempty,dive,objectid"`
}
