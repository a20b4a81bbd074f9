package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"

	"github.com/dualiteteste-sys/revo-billing/internal/catalog"
	"github.com/dualiteteste-sys/revo-billing/internal/logging"
	"github.com/dualiteteste-sys/revo-billing/internal/tenant"
	"github.com/dualiteteste-sys/revo-billing/internal/validation"
)

// Handler provides the billing HTTP endpoints: the Stripe webhook and the
// synchronous checkout/portal/summary operations.
type Handler struct {
	siteURL  string
	verifier *Verifier
	router   *Router
	tenants  tenant.Store
	guard    *tenant.Guard
	plans    catalog.Store
	subs     SubscriptionStore
	provider ProviderClient
	logger   *slog.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(siteURL string, verifier *Verifier, router *Router, tenants tenant.Store,
	guard *tenant.Guard, plans catalog.Store, subs SubscriptionStore,
	provider ProviderClient, logger *slog.Logger) *Handler {
	return &Handler{
		siteURL:  siteURL,
		verifier: verifier,
		router:   router,
		tenants:  tenants,
		guard:    guard,
		plans:    plans,
		subs:     subs,
		provider: provider,
		logger:   logger,
	}
}

// RegisterWebhookRoutes sets up the provider-facing webhook endpoint.
// No auth middleware: the signature check is the authentication.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.HandleWebhook)
}

// RegisterBillingRoutes sets up the browser-facing billing endpoints.
func (h *Handler) RegisterBillingRoutes(r *gin.RouterGroup) {
	r.POST("/billing/checkout", h.CreateCheckoutSession)
	r.POST("/billing/portal", h.CreatePortalSession)
	r.GET("/billing/checkout/summary", h.GetCheckoutSummary)
}

// HandleWebhook handles POST /webhooks/stripe.
//
// The signature is checked against the raw body bytes exactly as received.
// 400 means a forged or malformed delivery Stripe should not retry; 500
// means a downstream failure and triggers redelivery.
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "failed to read request body"})
		return
	}

	event, err := h.verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		webhookEventsTotal.WithLabelValues("unverified", "invalid_signature").Inc()
		logging.L(c.Request.Context()).Warn("webhook signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature", "message": "webhook signature verification failed"})
		return
	}

	if err := h.router.Handle(c.Request.Context(), &event); err != nil {
		if errors.Is(err, ErrMalformedEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": "event payload could not be decoded"})
			return
		}
		logging.L(c.Request.Context()).Error("webhook handling failed",
			"type", string(event.Type), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "event handling failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// CreateCheckoutSession handles POST /v1/billing/checkout.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req struct {
		TenantID     string `json:"tenant_id" binding:"required"`
		PlanSlug     string `json:"plan_slug" binding:"required"`
		BillingCycle string `json:"billing_cycle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "tenant_id, plan_slug and billing_cycle required"})
		return
	}

	req.PlanSlug = validation.SanitizeString(req.PlanSlug, 64)
	if errs := validation.Validate(
		validation.Required("plan_slug", req.PlanSlug),
		validation.ValidSlug("plan_slug", req.PlanSlug),
		validation.MaxLength("tenant_id", req.TenantID, 64),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	cycle := catalog.Cycle(req.BillingCycle)
	if !catalog.ValidCycle(cycle) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cycle", "message": "billing_cycle must be monthly or yearly"})
		return
	}

	if !h.guard.Authorize(c, req.TenantID) {
		return
	}

	ctx := c.Request.Context()

	t, err := h.tenants.Get(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found", "message": "company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load company"})
		return
	}

	plan, err := h.plans.PlanBySlug(ctx, req.PlanSlug, cycle)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan_not_found", "message": "no active plan for that slug and cycle"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load plan"})
		return
	}

	customerID, err := h.ensureCustomer(c, t)
	if err != nil {
		logging.L(ctx).Error("customer provisioning failed", "tenant", t.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider_error", "message": "failed to provision billing customer"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(plan.PriceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(h.siteURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(h.siteURL + "/billing/plans"),
		// Tenant correlation for the webhook path: on the session for the
		// summary endpoint, on the subscription for the reconciler.
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataTenantKey: t.ID},
		},
	}
	params.AddMetadata(MetadataTenantKey, t.ID)

	session, err := h.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		logging.L(ctx).Error("checkout session creation failed", "tenant", t.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider_error", "message": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}

// ensureCustomer returns the tenant's Stripe customer ID, lazily creating
// and persisting one on first checkout. If a concurrent request won the
// attach, the re-read below picks up the winner; the orphaned customer on
// the Stripe side is harmless.
func (h *Handler) ensureCustomer(c *gin.Context, t *tenant.Tenant) (string, error) {
	if t.StripeCustomerID != "" {
		return t.StripeCustomerID, nil
	}

	ctx := c.Request.Context()
	params := &stripe.CustomerParams{
		Name: stripe.String(t.Name),
	}
	params.AddMetadata(MetadataTenantKey, t.ID)

	cust, err := h.provider.CreateCustomer(ctx, params)
	if err != nil {
		return "", err
	}

	if err := h.tenants.SetStripeCustomerID(ctx, t.ID, cust.ID); err != nil {
		return "", err
	}
	fresh, err := h.tenants.Get(ctx, t.ID)
	if err != nil {
		return "", err
	}
	return fresh.StripeCustomerID, nil
}

// CreatePortalSession handles POST /v1/billing/portal.
func (h *Handler) CreatePortalSession(c *gin.Context) {
	var req struct {
		TenantID string `json:"tenant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "tenant_id required"})
		return
	}

	if !h.guard.Authorize(c, req.TenantID) {
		return
	}

	ctx := c.Request.Context()

	t, err := h.tenants.Get(ctx, req.TenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found", "message": "company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load company"})
		return
	}
	if t.StripeCustomerID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no_customer", "message": "no billing customer on file for this company"})
		return
	}

	session, err := h.provider.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(t.StripeCustomerID),
		ReturnURL: stripe.String(h.siteURL + "/settings/billing"),
	})
	if err != nil {
		logging.L(ctx).Error("portal session creation failed", "tenant", t.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider_error", "message": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}

// GetCheckoutSummary handles GET /v1/billing/checkout/summary?session_id=...
//
// The summary can race the webhook that creates the authoritative record;
// until reconciliation lands the response is 202 {state: pending} so the
// caller can poll.
func (h *Handler) GetCheckoutSummary(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "session_id required"})
		return
	}

	ctx := c.Request.Context()

	session, err := h.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found", "message": "checkout session not found"})
			return
		}
		logging.L(ctx).Error("checkout session fetch failed", "session", sessionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider_error", "message": "failed to load checkout session"})
		return
	}

	tenantID := session.Metadata[MetadataTenantKey]
	if tenantID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "session_not_found", "message": "checkout session not found"})
		return
	}

	if !h.guard.Authorize(c, tenantID) {
		return
	}

	t, err := h.tenants.Get(ctx, tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load company"})
		return
	}

	sub, err := h.subs.GetByTenant(ctx, tenantID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		c.JSON(http.StatusAccepted, gin.H{"state": "pending"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":        "ready",
		"company":      t,
		"subscription": sub,
		"plan": gin.H{
			"slug":  sub.PlanSlug,
			"cycle": sub.Cycle,
		},
	})
}
