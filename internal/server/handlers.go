package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/FranksOps/adblast/internal/adcopy"
	"github.com/FranksOps/adblast/internal/harvest"
	"github.com/FranksOps/adblast/internal/pipeline"
	"github.com/FranksOps/adblast/internal/relevance"
	"github.com/gin-gonic/gin"
)

type harvestRequest struct {
	Vertical string `json:"vertical"`
	Location string `json:"location"`
	Offer    string `json:"offer"`
	Audience string `json:"audience"`
}

type harvestResponse struct {
	*harvest.Outcome
	TierLabel string             `json:"tier_label"`
	Signals   []relevance.Signal `json:"signals"`
}

// adsRequest keeps the original Portuguese field names. vertical and
// location are optional; when vertical is set the ads are grounded in a
// fresh harvest.
type adsRequest struct {
	Offer    string `json:"oferta"`
	Client   string `json:"cliente"`
	Niche    string `json:"nicho"`
	Vertical string `json:"vertical"`
	Location string `json:"location"`
	Audience string `json:"audience"`
}

func success(c *gin.Context, data any, extra gin.H) {
	body := gin.H{"success": true, "data": data}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "AdBlast",
		"version": Version,
	})
}

func (s *Server) harvest(c *gin.Context) {
	var req harvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Requisição inválida: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Vertical) == "" {
		fail(c, http.StatusBadRequest, "O campo 'vertical' é obrigatório")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	res, err := s.pipeline.Run(ctx, pipeline.Input{Request: harvest.Request{
		Vertical: req.Vertical,
		Location: req.Location,
		Offer:    req.Offer,
		Audience: req.Audience,
	}})
	if err != nil {
		s.respondError(c, err)
		return
	}

	success(c, harvestResponse{
		Outcome:   res.Outcome,
		TierLabel: res.Outcome.Tier.Label(),
		Signals:   relevance.Annotate(res.Outcome.Keywords, res.Outcome.Location),
	}, nil)
}

func (s *Server) generateAds(c *gin.Context) {
	if s.pipeline.Writer == nil {
		fail(c, http.StatusInternalServerError, "API Key do provedor de IA não configurada. Verifique o arquivo .env")
		return
	}

	var req adsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Nenhum dado válido enviado na requisição")
		return
	}

	brief := adcopy.Brief{
		Client: strings.TrimSpace(req.Client),
		Offer:  strings.TrimSpace(req.Offer),
		Niche:  strings.TrimSpace(req.Niche),
	}
	if err := brief.Validate(); err != nil {
		msg := strings.TrimPrefix(err.Error(), adcopy.ErrIncompleteBrief.Error()+": ")
		fail(c, http.StatusBadRequest, strings.ToUpper(msg[:1])+msg[1:])
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if strings.TrimSpace(req.Vertical) == "" {
		ads, err := s.pipeline.Writer.Generate(ctx, brief, nil)
		if err != nil {
			s.respondError(c, err)
			return
		}
		success(c, ads, nil)
		return
	}

	res, err := s.pipeline.Run(ctx, pipeline.Input{
		Request: harvest.Request{
			Vertical: req.Vertical,
			Location: req.Location,
			Offer:    brief.Offer,
			Audience: req.Audience,
		},
		Brief: &brief,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	success(c, res.Ads, gin.H{"harvest": res.Outcome})
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, adcopy.ErrInvalidResponse):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, adcopy.ErrIncompleteBrief), errors.Is(err, harvest.ErrVerticalRequired):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	s.logger.Error("request failed", "path", c.FullPath(), "status", status, "err", err,
		"request_id", c.GetString("request_id"))
	fail(c, status, err.Error())
}
