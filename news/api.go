package news

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationError describes a rejected request parameter. It is surfaced to
// the caller as a 400 response before any network or database activity.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Scraper runs one scraping pipeline pass for a topic listing page.
// Implemented by scrape.Scraper.
type Scraper interface {
	Scrape(ctx context.Context, page int, topic string) ([]Item, error)
}

// Importer pulls a remote feed into the news store. Implemented by
// FeedImporter.
type Importer interface {
	Import(ctx context.Context, feedURL string) (int, error)
}

// APIServer serves the scraping endpoint and the stored news CRUD API.
type APIServer struct {
	scraper  Scraper
	store    *Store
	importer Importer
	log      *zap.Logger
}

// NewAPIServer creates an API server around the given collaborators.
func NewAPIServer(scraper Scraper, store *Store, importer Importer, log *zap.Logger) *APIServer {
	return &APIServer{
		scraper:  scraper,
		store:    store,
		importer: importer,
		log:      log,
	}
}

// SetupRouter configures the Gin router with all API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api/v1")
	api.GET("/scrape", s.HandleScrape)
	api.GET("/news", s.HandleListNews)
	api.POST("/news", s.HandleCreateNews)
	api.GET("/news/:id", s.HandleGetNews)
	api.PUT("/news/:id", s.HandleUpdateNews)
	api.DELETE("/news/:id", s.HandleDeleteNews)
	api.POST("/news/import-feed", s.HandleImportFeed)

	return router
}

// Start runs the HTTP server on the given address.
func (s *APIServer) Start(addr string) error {
	return s.SetupRouter().Run(addr)
}

// writeError sends the flat {"error": message} envelope used by every
// failure response.
func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// parsePageParams validates the page and page_size query parameters. It runs
// before any scraping or database work.
func parsePageParams(c *gin.Context) (page, pageSize int, err error) {
	page, convErr := strconv.Atoi(c.DefaultQuery("page", "1"))
	if convErr != nil {
		return 0, 0, &ValidationError{Message: "Invalid page number"}
	}
	if page < 1 {
		return 0, 0, &ValidationError{Message: "Page number must be a positive integer"}
	}

	pageSize, convErr = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if convErr != nil {
		return 0, 0, &ValidationError{Message: "Invalid page size"}
	}
	if pageSize < 1 || pageSize > 100 {
		return 0, 0, &ValidationError{Message: "Page size must be between 1 and 100"}
	}

	return page, pageSize, nil
}

// requestURL reconstructs the absolute URL of the current request, used to
// build next/previous pagination links.
func requestURL(c *gin.Context) *url.URL {
	u := *c.Request.URL
	u.Host = c.Request.Host
	u.Scheme = "http"
	if c.Request.TLS != nil {
		u.Scheme = "https"
	}
	return &u
}

// HandleScrape handles GET /api/v1/scrape: run the scraping pipeline for a
// topic page, then filter, sort, and paginate the items in memory. Nothing
// is persisted. The endpoint never returns a 5xx for unpredictable
// third-party markup; failures surface as 400 with the error message.
func (s *APIServer) HandleScrape(c *gin.Context) {
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	topic := c.DefaultQuery("topic", "tech")

	items, err := s.scraper.Scrape(c.Request.Context(), page, topic)
	if err != nil {
		s.log.Warn("scrape pipeline failed", zap.String("topic", topic), zap.Error(err))
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	items = Filter(items, FilterOptions{
		Keyword:         c.Query("keyword"),
		Keywords:        c.Query("keywords"),
		ExcludeKeyword:  c.Query("exclude_keyword"),
		ExcludeKeywords: c.Query("exclude_keywords"),
	})
	items = Sort(items, c.Query("ordering"))

	c.JSON(http.StatusOK, Paginate(items, page, pageSize, requestURL(c)))
}

// StoredPageResult is one page of stored news records.
type StoredPageResult struct {
	Count    int          `json:"count"`
	Next     *string      `json:"next"`
	Previous *string      `json:"previous"`
	Results  []StoredNews `json:"results"`
}

// HandleListNews handles GET /api/v1/news with keyword and tag filters.
func (s *APIServer) HandleListNews(c *gin.Context) {
	page, pageSize, err := parsePageParams(c)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	filter := StoreFilter{
		Tag:            c.Query("tags"),
		Keyword:        c.Query("keyword"),
		ExcludeKeyword: c.Query("exclude_keyword"),
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	}
	if v := c.Query("tags_list"); v != "" {
		filter.Tag = ""
		filter.Tags = splitKeywords(v)
	}
	if v := c.Query("keywords"); v != "" {
		filter.Keywords = splitKeywords(v)
	}
	if v := c.Query("exclude_keywords"); v != "" {
		filter.ExcludeKeywords = splitKeywords(v)
	}

	total, err := s.store.Count(filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	records, err := s.store.List(filter)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []StoredNews{}
	}

	result := StoredPageResult{Count: total, Results: records}
	totalPages := (total + pageSize - 1) / pageSize
	if page < totalPages {
		result.Next = pageURL(requestURL(c), page+1)
	}
	if page > 1 {
		result.Previous = pageURL(requestURL(c), page-1)
	}

	c.JSON(http.StatusOK, result)
}

// newsRequest is the JSON body for creating or updating a stored record.
type newsRequest struct {
	Title  string   `json:"title"`
	Text   string   `json:"text"`
	Source string   `json:"source"`
	Tags   []string `json:"tags"`
}

// HandleCreateNews handles POST /api/v1/news.
func (s *APIServer) HandleCreateNews(c *gin.Context) {
	var req newsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || req.Text == "" || req.Source == "" {
		writeError(c, http.StatusBadRequest, "title, text and source are required")
		return
	}

	record, err := s.store.Create(req.Title, req.Text, req.Source, req.Tags)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusCreated, record)
}

// parseNewsID extracts and validates the :id path parameter.
func parseNewsID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "Invalid news ID")
		return uuid.Nil, false
	}
	return id, true
}

// HandleGetNews handles GET /api/v1/news/:id.
func (s *APIServer) HandleGetNews(c *gin.Context) {
	id, ok := parseNewsID(c)
	if !ok {
		return
	}

	record, err := s.store.Get(id)
	if errors.Is(err, ErrNewsNotFound) {
		writeError(c, http.StatusNotFound, "News not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}

// HandleUpdateNews handles PUT /api/v1/news/:id.
func (s *APIServer) HandleUpdateNews(c *gin.Context) {
	id, ok := parseNewsID(c)
	if !ok {
		return
	}

	var req newsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	update := NewsUpdate{Tags: req.Tags}
	if req.Title != "" {
		update.Title = &req.Title
	}
	if req.Text != "" {
		update.Text = &req.Text
	}
	if req.Source != "" {
		update.Source = &req.Source
	}

	record, err := s.store.Update(id, update)
	if errors.Is(err, ErrNewsNotFound) {
		writeError(c, http.StatusNotFound, "News not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, record)
}

// HandleDeleteNews handles DELETE /api/v1/news/:id.
func (s *APIServer) HandleDeleteNews(c *gin.Context) {
	id, ok := parseNewsID(c)
	if !ok {
		return
	}

	err := s.store.Delete(id)
	if errors.Is(err, ErrNewsNotFound) {
		writeError(c, http.StatusNotFound, "News not found")
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.Status(http.StatusNoContent)
}

// importFeedRequest is the JSON body for the feed import endpoint.
type importFeedRequest struct {
	URL string `json:"url"`
}

// HandleImportFeed handles POST /api/v1/news/import-feed: fetch an RSS or
// Atom feed and store its entries as news records.
func (s *APIServer) HandleImportFeed(c *gin.Context) {
	var req importFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		writeError(c, http.StatusBadRequest, "url is required")
		return
	}

	imported, err := s.importer.Import(c.Request.Context(), req.URL)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"imported": imported})
}
