package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/services"
)

type RecommendationController struct {
	recommendations *services.RecommendationService
}

func NewRecommendationController(recommendations *services.RecommendationService) *RecommendationController {
	return &RecommendationController{recommendations: recommendations}
}

func (rc *RecommendationController) GetRecommendations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	recs, err := rc.recommendations.List(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, recs)
}

func (rc *RecommendationController) GenerateRecommendations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	recs, err := rc.recommendations.Generate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, recs)
}
