// Package gateway routes authenticated requests to the backend services,
// stamping the caller's identity and correlation headers onto every proxied
// request so backends never parse tokens themselves.
package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"grocerly/internal/config"
	"grocerly/internal/middleware"
	"grocerly/internal/transport/httpdto"
	"grocerly/pkg/logger"
)

type Proxy struct {
	catalog      *httputil.ReverseProxy
	shoppingList *httputil.ReverseProxy
	notifier     *httputil.ReverseProxy
	log          *logger.Logger
}

func NewProxy(cfg config.GatewayConfig, log *logger.Logger) (*Proxy, error) {
	catalog, err := newServiceProxy(cfg.CatalogURL, log)
	if err != nil {
		return nil, err
	}
	shoppingList, err := newServiceProxy(cfg.ShoppingListURL, log)
	if err != nil {
		return nil, err
	}
	notifier, err := newServiceProxy(cfg.NotifierURL, log)
	if err != nil {
		return nil, err
	}
	return &Proxy{
		catalog:      catalog,
		shoppingList: shoppingList,
		notifier:     notifier,
		log:          log,
	}, nil
}

func newServiceProxy(rawURL string, log *logger.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	p := httputil.NewSingleHostReverseProxy(target)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Errorf("gateway: proxy to %s failed: %v", target.Host, err)
		w.WriteHeader(http.StatusBadGateway)
	}
	return p, nil
}

// Catalog forwards to the catalog service.
func (p *Proxy) Catalog(c *gin.Context) {
	p.forward(c, p.catalog)
}

// ShoppingList forwards to the shopping-list service.
func (p *Proxy) ShoppingList(c *gin.Context) {
	p.forward(c, p.shoppingList)
}

// Route picks the backend by path prefix. Mounted as the NoRoute handler so
// backends own their route shapes.
func (p *Proxy) Route(c *gin.Context) {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/categories"),
		strings.HasPrefix(path, "/items"),
		strings.HasPrefix(path, "/seed"):
		p.Catalog(c)
	case strings.HasPrefix(path, "/lists"),
		strings.HasPrefix(path, "/catalog"):
		p.ShoppingList(c)
	default:
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("not found", "NOT_FOUND"))
	}
}

// Notifier forwards websocket upgrades to the notifier service. Token
// validation happens there; the gateway only routes.
func (p *Proxy) Notifier(c *gin.Context) {
	p.notifier.ServeHTTP(c.Writer, c.Request)
}

func (p *Proxy) forward(c *gin.Context, target *httputil.ReverseProxy) {
	rc := middleware.RequestContext(c)
	if rc.Family == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	// Backends trust these; strip anything the client sent.
	c.Request.Header.Set(middleware.HeaderFamily, rc.Family)
	c.Request.Header.Set(middleware.HeaderUserID, rc.UserID)
	c.Request.Header.Set(middleware.HeaderRequestID, rc.RequestID)
	c.Request.Header.Set(middleware.HeaderOperationID, rc.OperationID)
	c.Request.Header.Set(middleware.HeaderTraceID, rc.TraceID)
	c.Request.Header.Del("Authorization")

	target.ServeHTTP(c.Writer, c.Request)
}
