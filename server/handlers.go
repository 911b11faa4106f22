package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/carkit/core"
	"github.com/rushteam/carkit/service"
)

// constraintQuery 查询串形式的候选约束，GET 接口共用
type constraintQuery struct {
	CompanyNames []string `form:"company_name"`
	CarNames     []string `form:"car_name"`
	Engines      []string `form:"engine"`
	FuelType     string   `form:"fuel_type"`
	Seats        *int     `form:"seats" binding:"omitempty,gt=0"`

	MinPrice      *float64 `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice      *float64 `form:"max_price" binding:"omitempty,gte=0"`
	MinHorsepower *float64 `form:"min_horsepower" binding:"omitempty,gte=0"`
	MaxHorsepower *float64 `form:"max_horsepower" binding:"omitempty,gte=0"`
	MinTotalSpeed *float64 `form:"min_total_speed" binding:"omitempty,gte=0"`
	MaxTotalSpeed *float64 `form:"max_total_speed" binding:"omitempty,gte=0"`
	MinSeats      *float64 `form:"min_seats" binding:"omitempty,gte=0"`
	MaxSeats      *float64 `form:"max_seats" binding:"omitempty,gte=0"`

	Expr string `form:"expr"`
}

func (q constraintQuery) constraints() (service.Constraints, error) {
	c := service.Constraints{
		CompanyNames: q.CompanyNames,
		CarNames:     q.CarNames,
		Engines:      q.Engines,
		FuelType:     q.FuelType,
		Seats:        q.Seats,
		Price:        core.Range{Min: q.MinPrice, Max: q.MaxPrice},
		Horsepower:   core.Range{Min: q.MinHorsepower, Max: q.MaxHorsepower},
		TotalSpeed:   core.Range{Min: q.MinTotalSpeed, Max: q.MaxTotalSpeed},
		SeatsRange:   core.Range{Min: q.MinSeats, Max: q.MaxSeats},
		Expr:         q.Expr,
	}
	return c, checkRanges(map[string]core.Range{
		"price":       c.Price,
		"horsepower":  c.Horsepower,
		"total_speed": c.TotalSpeed,
		"seats":       c.SeatsRange,
	})
}

func checkRanges(ranges map[string]core.Range) error {
	for name, r := range ranges {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return core.NewInvalidInput(moduleServer, fmt.Sprintf("%s: min %g is greater than max %g", name, *r.Min, *r.Max))
		}
	}
	return nil
}

type pageQuery struct {
	Limit  int `form:"limit" binding:"gte=0,lte=1000"`
	Offset int `form:"offset" binding:"gte=0"`
}

type topNQuery struct {
	TopN int `form:"top_n" binding:"gte=0,lte=100"`
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewInvalidInput(moduleServer, fmt.Sprintf("invalid id %q", c.Param("id")))
	}
	return id, nil
}

func (s *Server) searchCars(c *gin.Context) {
	var cq constraintQuery
	var page pageQuery
	if err := c.ShouldBindQuery(&cq); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, err)
		return
	}
	cons, err := cq.constraints()
	if err != nil {
		writeError(c, err)
		return
	}
	q := cons.Query()
	q.Limit = page.Limit
	q.Offset = page.Offset

	cars, err := s.rec.SearchCars(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars, "count": len(cars)})
}

func (s *Server) getCar(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	car, err := s.rec.GetCar(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func (s *Server) companies(c *gin.Context) {
	names, err := s.rec.Companies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": names})
}

func (s *Server) models(c *gin.Context) {
	var q struct {
		CompanyName string `form:"company_name" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	names, err := s.rec.Models(c.Request.Context(), q.CompanyName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": names})
}

func (s *Server) engines(c *gin.Context) {
	var q struct {
		CompanyName string `form:"company_name" binding:"required"`
		CarName     string `form:"car_name" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	names, err := s.rec.Engines(c.Request.Context(), q.CompanyName, q.CarName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"engines": names})
}

// SimilarRequest 相似推荐请求体
type SimilarRequest struct {
	CompanyName string              `json:"company_name" binding:"required"`
	CarName     string              `json:"car_name" binding:"required"`
	Features    []core.Feature      `json:"features"`
	Constraints service.Constraints `json:"constraints"`
	Limit       int                 `json:"limit" binding:"gte=0,lte=100"`
}

func (s *Server) similar(c *gin.Context) {
	var req SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := checkConstraints(req.Constraints); err != nil {
		writeError(c, err)
		return
	}
	res, err := s.rec.SimilarToCar(c.Request.Context(), service.SimilarRequest{
		CompanyName: req.CompanyName,
		CarName:     req.CarName,
		Features:    req.Features,
		Constraints: req.Constraints,
		Limit:       req.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PreferenceRequest 区间偏好推荐请求体
type PreferenceRequest struct {
	Ranges      map[core.Feature]core.Range `json:"ranges"`
	Features    []core.Feature              `json:"features"`
	Constraints service.Constraints         `json:"constraints"`
	Limit       int                         `json:"limit" binding:"gte=0,lte=100"`
}

func (s *Server) preference(c *gin.Context) {
	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ranges := make(map[string]core.Range, len(req.Ranges))
	for f, r := range req.Ranges {
		ranges[f.String()] = r
	}
	if err := checkRanges(ranges); err != nil {
		writeError(c, err)
		return
	}
	if err := checkConstraints(req.Constraints); err != nil {
		writeError(c, err)
		return
	}
	res, err := s.rec.MatchPreference(c.Request.Context(), service.PreferenceRequest{
		Ranges:      req.Ranges,
		Features:    req.Features,
		Constraints: req.Constraints,
		Limit:       req.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func checkConstraints(cons service.Constraints) error {
	return checkRanges(map[string]core.Range{
		"constraints.price":       cons.Price,
		"constraints.horsepower":  cons.Horsepower,
		"constraints.total_speed": cons.TotalSpeed,
		"constraints.seats_range": cons.SeatsRange,
	})
}

func (s *Server) collaborative(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var top topNQuery
	var cq constraintQuery
	if err := c.ShouldBindQuery(&top); err != nil {
		badRequest(c, err)
		return
	}
	if err := c.ShouldBindQuery(&cq); err != nil {
		badRequest(c, err)
		return
	}
	cons, err := cq.constraints()
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := s.rec.Collaborative(c.Request.Context(), userID, top.TopN, &cons)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) popular(c *gin.Context) {
	var q struct {
		UserID int64 `form:"user_id" binding:"gte=0"`
		TopN   int   `form:"top_n" binding:"gte=0,lte=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.rec.Popular(c.Request.Context(), q.UserID, q.TopN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) quiz(c *gin.Context) {
	var q struct {
		N int `form:"n" binding:"gte=0,lte=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	cars, err := s.rec.QuizCars(c.Request.Context(), q.N)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": cars})
}

// RatingsRequest 提交评分的请求体
type RatingsRequest struct {
	Ratings []RatingItem `json:"ratings" binding:"required,min=1,dive"`
}

// RatingItem 一条评分
type RatingItem struct {
	CarID  int64 `json:"car_id" binding:"required,gt=0"`
	Rating int   `json:"rating" binding:"required,gte=1,lte=5"`
}

func (s *Server) submitRatings(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req RatingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inputs := make([]service.RatingInput, len(req.Ratings))
	for i, r := range req.Ratings {
		inputs[i] = service.RatingInput{CarID: r.CarID, Rating: r.Rating}
	}
	n, err := s.rec.SubmitRatings(c.Request.Context(), userID, inputs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"saved": n})
}

func (s *Server) userRatings(c *gin.Context) {
	userID, err := pathID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var q struct {
		Limit int `form:"limit" binding:"gte=0"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	rated, err := s.rec.UserRatings(c.Request.Context(), userID, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": rated})
}
