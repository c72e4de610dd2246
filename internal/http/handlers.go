package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dashboard/internal/auth"
	"dashboard/internal/domain"
	"dashboard/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Authenticator is the OAuth side of sign-in, implemented by auth.Provider.
type Authenticator interface {
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, string, error)
}

// IdentityVerifier is implemented by auth.IDTokenVerifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (auth.Identity, error)
}

type Deps struct {
	Service   *service.Service
	Sessions  *auth.SessionStore
	Provider  Authenticator
	Verifier  IdentityVerifier
	AllowList *auth.AllowList
	PublicURL string
	Logger    *zap.Logger
}

type Handler struct {
	svc       *service.Service
	sessions  *auth.SessionStore
	provider  Authenticator
	verifier  IdentityVerifier
	allowList *auth.AllowList
	publicURL string
	pages     *pages
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(deps Deps) (*Handler, error) {
	loaded, err := loadPages()
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:       deps.Service,
		sessions:  deps.Sessions,
		provider:  deps.Provider,
		verifier:  deps.Verifier,
		allowList: deps.AllowList,
		publicURL: strings.TrimRight(deps.PublicURL, "/"),
		pages:     loaded,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if h.sessions.Load(r).Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	h.render(w, http.StatusOK, "landing.html", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	if err := h.sessions.Save(w, &auth.Session{State: state}); err != nil {
		h.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, h.provider.AuthCodeURL(state, h.redirectURL(r)), http.StatusFound)
}

// Callback finishes sign-in. A missing or mismatched state restarts the flow
// instead of failing the request.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	session := h.sessions.Load(r)

	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("provider returned an error", zap.String("error", providerErr))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	state := query.Get("state")
	if session.State == "" || state == "" || state != session.State {
		h.logger.Warn("callback state missing or mismatched",
			zap.Bool("session_state", session.State != ""),
			zap.Bool("query_state", state != ""),
		)
		h.sessions.Clear(w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	code := query.Get("code")
	if code == "" {
		h.sessions.Clear(w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	token, rawIDToken, err := h.provider.Exchange(r.Context(), code, h.redirectURL(r))
	if err != nil {
		h.sessions.Clear(w)
		h.renderError(w, r, fmt.Errorf("%w: %v", domain.ErrRemote, err))
		return
	}
	identity, err := h.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		h.sessions.Clear(w)
		h.logger.Warn("id token rejected", zap.Error(err))
		h.svc.RecordActivity(r.Context(), "", "sign_in_rejected", "Identity token rejected", err.Error())
		h.renderError(w, r, fmt.Errorf("%w: %v", domain.ErrAuthRejected, err))
		return
	}

	if !h.allowList.Allowed(identity.Email) {
		h.sessions.Clear(w)
		h.logger.Warn("sign-in rejected by allow-list", zap.String("email", identity.Email))
		h.svc.RecordActivity(r.Context(), identity.Email, "sign_in_rejected", "Email not on allow-list", "")
		h.render(w, http.StatusForbidden, "unauthorized.html", map[string]any{
			"Email": identity.Email,
			"Kind":  domain.KindAuthRejected,
		}, withErrorKind(domain.KindAuthRejected))
		return
	}

	if err := h.sessions.Save(w, &auth.Session{
		Email:     identity.Email,
		Token:     token,
		Permanent: true,
	}); err != nil {
		h.renderError(w, r, err)
		return
	}
	h.logger.Info("signed in", zap.String("email", identity.Email))
	h.svc.RecordActivity(r.Context(), identity.Email, "sign_in", "Signed in", identity.Name)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Load(r)
	if !session.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	now := h.now()
	snapshot, err := h.svc.Snapshot(r.Context(), session.Token, now)
	if errors.Is(err, domain.ErrReloginRequired) {
		h.sessions.Clear(w)
		h.svc.RecordActivity(r.Context(), session.Email, "relogin_required", "Credential rejected by Drive", "")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil && snapshot == nil {
		h.svc.RecordActivity(r.Context(), session.Email, "refresh_failed", "Dashboard data unavailable", err.Error())
		h.renderError(w, r, err)
		return
	}

	view, buildErr := service.BuildView(snapshot, domain.DashboardFilters{
		ActiveTab:       r.PostFormValue("active_tab"),
		Month:           r.PostFormValue("month_selector"),
		Item:            r.PostFormValue("item_selector"),
		DateRangePreset: r.PostFormValue("date_range_preset"),
	}, now)
	if buildErr != nil {
		h.renderError(w, r, buildErr)
		return
	}
	view.Email = session.Email
	if err != nil {
		view.Stale = true
		view.StaleError = service.FailureMessage(err)
	}

	// Permanent sessions slide forward on every dashboard visit.
	if saveErr := h.sessions.Save(w, session); saveErr != nil {
		h.logger.Warn("session refresh failed", zap.Error(saveErr))
	}
	h.render(w, http.StatusOK, "dashboard.html", view)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Load(r)
	if !session.Authenticated() {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.svc.Invalidate(r.Context(), session.Email)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Load(r)
	h.sessions.Clear(w)
	if session.Authenticated() {
		h.svc.RecordActivity(r.Context(), session.Email, "logout", "Signed out", "")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Load(r).Authenticated() {
		writeError(w, http.StatusUnauthorized, "sign in required")
		return
	}
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.svc.ListActivity(r.Context(), limit, offset, query.Get("search"))
	if err != nil {
		h.logger.Error("list activity failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "activity log unavailable")
		return
	}
	total, err := h.svc.CountActivity(r.Context(), query.Get("search"))
	if err != nil {
		h.logger.Error("count activity failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "activity log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled": h.svc.ActivityEnabled(),
		"items":   items,
		"count":   len(items),
		"total":   total,
	})
}

// redirectURL is the OAuth callback address, taken from PUBLIC_URL or
// rebuilt from forwarded headers when running behind a proxy.
func (h *Handler) redirectURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL + "/callback"
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return scheme + "://" + host + "/callback"
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.ErrorKind(err)
	status := errorStatus(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.String("kind", kind), zap.Error(err))
	}
	h.render(w, status, "error.html", map[string]any{
		"Kind":    kind,
		"Message": service.FailureMessage(err),
		"Status":  status,
	}, withErrorKind(kind))
}

func errorStatus(kind string) int {
	switch kind {
	case domain.KindAuthRejected:
		return http.StatusForbidden
	case domain.KindReloginRequired:
		return http.StatusUnauthorized
	case domain.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
