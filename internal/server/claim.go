package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	claimdomain "github.com/smallbiznis/claimflow/internal/claim/domain"
	"github.com/smallbiznis/claimflow/pkg/db/pagination"
)

type claimRequest struct {
	ClaimantName string                  `json:"claimant_name"`
	Description  string                  `json:"description"`
	Items        []claimdomain.LineInput `json:"items"`
}

func (r claimRequest) toDomain() claimdomain.CreateClaimRequest {
	items := make([]claimdomain.LineInput, 0, len(r.Items))
	for _, item := range r.Items {
		item.ItemName = strings.TrimSpace(item.ItemName)
		items = append(items, item)
	}
	return claimdomain.CreateClaimRequest{
		ClaimantName: strings.TrimSpace(r.ClaimantName),
		Description:  strings.TrimSpace(r.Description),
		Items:        items,
	}
}

type transitionRequest struct {
	TargetStatus string `json:"target_status"`
	Comment      string `json:"comment"`
}

func (s *Server) CreateClaim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Create(c.Request.Context(), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListClaims(c *gin.Context) {
	var query pagination.Pagination
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetClaimByID(c *gin.Context) {
	resp, err := s.claimSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateDraftClaim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.UpdateDraft(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.toDomain())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionClaim(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.claimSvc.Transition(c.Request.Context(), strings.TrimSpace(c.Param("id")), claimdomain.TransitionRequest{
		TargetStatus: strings.TrimSpace(req.TargetStatus),
		Comment:      req.Comment,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListClaimHistory(c *gin.Context) {
	resp, err := s.claimSvc.History(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
