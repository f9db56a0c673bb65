package mappings

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/frameworks"
	"portfolio-mapper-backend/internal/reporting"
	"portfolio-mapper-backend/internal/shared/server/middleware"
	"portfolio-mapper-backend/internal/shared/server/respond"
)

// Handler exposes the mapping lifecycle over HTTP.
type Handler struct {
	Service *Service
}

// Register mounts the mapping routes on an API group.
func (h *Handler) Register(api *gin.RouterGroup) {
	api.POST("/mappings", h.create)
	api.GET("/mappings/:id", h.get)
	api.POST("/mappings/:id/pii-ack", h.acknowledgePII)
	api.GET("/mappings/:id/export.csv", h.exportCSV)
	api.GET("/mappings/:id/export.pdf", h.exportPDF)
	api.GET("/frameworks", h.listFrameworks)
	api.GET("/roles", h.listRoles)
}

type createRequest struct {
	Role           string   `json:"role" binding:"required"`
	AcademicLevel  string   `json:"academicLevel"`
	FrameworkCodes []string `json:"frameworkCodes"`
	ReflectionText string   `json:"reflectionText" binding:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Request body is invalid.", err.Error())
		return
	}

	session, err := h.Service.Start(c.Request.Context(), middleware.RequestIDFromContext(c), StartInput{
		RoleID:         req.Role,
		LevelKey:       config.LevelKey(req.AcademicLevel),
		FrameworkCodes: req.FrameworkCodes,
		Reflection:     req.ReflectionText,
	})
	if err != nil {
		var badReq *BadRequestError
		if errors.As(err, &badReq) {
			respond.Error(c, http.StatusBadRequest, "INVALID_REQUEST", badReq.Message, nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, CodeInternalError, "Could not start the mapping.", nil)
		return
	}

	c.Set("mappingId", session.ID)
	c.Set("stateTransition", fmt.Sprintf("%s->%s", StateIdle, session.State))
	respond.JSON(c, http.StatusAccepted, session)
}

func (h *Handler) get(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}
	respond.OK(c, session)
}

func (h *Handler) acknowledgePII(c *gin.Context) {
	id := c.Param("id")
	session, err := h.Service.AcknowledgePII(c.Request.Context(), middleware.RequestIDFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "No mapping session with that id.", nil)
		case errors.Is(err, ErrInvalidTransition):
			respond.Error(c, http.StatusConflict, "INVALID_STATE", "The session is not waiting for an acknowledgement.", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, CodeInternalError, "Could not resume the mapping.", nil)
		}
		return
	}

	c.Set("mappingId", session.ID)
	c.Set("stateTransition", fmt.Sprintf("%s->%s", StateAwaitingPIIAck, session.State))
	respond.OK(c, session)
}

func (h *Handler) exportCSV(c *gin.Context) {
	session, ok := h.loadComplete(c)
	if !ok {
		return
	}
	data, err := reporting.CSV(h.reportInput(session))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeInternalError, "Could not build the CSV export.", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "mapping-"+session.ID+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *Handler) exportPDF(c *gin.Context) {
	session, ok := h.loadComplete(c)
	if !ok {
		return
	}
	data, err := reporting.PDF(h.reportInput(session))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, CodeInternalError, "Could not build the PDF export.", nil)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "mapping-"+session.ID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", data)
}

type frameworkSummary struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	Organisation string `json:"organisation"`
	Abbreviation string `json:"abbreviation"`
	Version      string `json:"version"`
}

func (h *Handler) listFrameworks(c *gin.Context) {
	out := make([]frameworkSummary, 0, len(h.Service.Library))
	for _, code := range frameworks.SortedCodes(h.Service.Library) {
		fw := h.Service.Library[code]
		if !fw.Metadata.Visible() {
			continue
		}
		out = append(out, frameworkSummary{
			Code:         code,
			Title:        fw.Metadata.Title,
			Organisation: fw.Metadata.Organisation,
			Abbreviation: fw.Metadata.Abbreviation,
			Version:      fw.Metadata.Version,
		})
	}
	respond.OK(c, gin.H{"frameworks": out})
}

type roleSummary struct {
	ID                   string          `json:"id"`
	DisplayName          string          `json:"displayName"`
	DefaultAcademicLevel config.LevelKey `json:"defaultAcademicLevel"`
	FrameworkCodes       []string        `json:"frameworkCodes"`
}

func (h *Handler) listRoles(c *gin.Context) {
	ids := make([]string, 0, len(h.Service.Catalog.Roles))
	for id := range h.Service.Catalog.Roles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]roleSummary, 0, len(ids))
	for _, id := range ids {
		role := h.Service.Catalog.Roles[id]
		allowed := frameworks.ResolveAllowed(role.DisplayName, role.AllowedFrameworkCodes, h.Service.Library)
		visible := make([]string, 0, len(allowed))
		for _, code := range frameworks.SortedCodes(allowed) {
			if allowed[code].Metadata.Visible() {
				visible = append(visible, code)
			}
		}
		out = append(out, roleSummary{
			ID:                   id,
			DisplayName:          role.DisplayName,
			DefaultAcademicLevel: role.DefaultAcademicLevel,
			FrameworkCodes:       visible,
		})
	}
	respond.OK(c, gin.H{"roles": out})
}

func (h *Handler) load(c *gin.Context) (*Session, bool) {
	session, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "NOT_FOUND", "No mapping session with that id.", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, CodeInternalError, "Could not load the mapping.", nil)
		}
		return nil, false
	}
	return session, true
}

func (h *Handler) loadComplete(c *gin.Context) (*Session, bool) {
	session, ok := h.load(c)
	if !ok {
		return nil, false
	}
	if session.State != StateComplete {
		respond.Error(c, http.StatusConflict, "INVALID_STATE", "The mapping has not completed yet.", nil)
		return nil, false
	}
	return session, true
}

func (h *Handler) reportInput(session *Session) reporting.Input {
	role := h.Service.Catalog.Roles[session.RoleID]
	level := h.Service.Catalog.Levels[session.LevelKey]

	var summary string
	var rows []reporting.Competency
	if session.Result != nil {
		summary = session.Result.OverallSummary
		rows = make([]reporting.Competency, 0, len(session.Result.AssessedCompetencies))
		for _, c := range session.Result.AssessedCompetencies {
			abbreviation := ""
			if fw, ok := h.Service.Library[c.FrameworkCode]; ok {
				abbreviation = fw.Metadata.Abbreviation
			}
			rows = append(rows, reporting.Competency{
				FrameworkCode:         c.FrameworkCode,
				FrameworkAbbreviation: abbreviation,
				CompetencyID:          c.CompetencyID,
				CompetencyText:        c.CompetencyText,
				MatchStrength:         c.MatchStrength,
				AchievedLevel:         c.AchievedLevel,
				Justification:         c.JustificationForLevel,
				EmergingEvidence:      c.EmergingEvidenceForNextLevel,
			})
		}
	}

	return reporting.Input{
		SessionID:      session.ID,
		RoleName:       role.DisplayName,
		LevelName:      level.Name,
		ReflectionText: session.ReflectionText,
		OverallSummary: summary,
		Competencies:   rows,
		GeneratedAt:    session.UpdatedAt,
	}
}
